package iot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// Payload maps labels to probabilities.
type Payload map[string]float64

// Encoder serializes result payloads.
type Encoder interface {
	Encode(p Payload) ([]byte, error)
	Name() string
}

// Encoder names accepted by NewEncoder.
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
)

// NewEncoder returns the encoder for name. An empty name selects JSON.
func NewEncoder(name string) (Encoder, error) {
	switch name {
	case "", EncodingJSON:
		return JSONEncoder{}, nil
	case EncodingMsgpack:
		return MsgpackEncoder{}, nil
	default:
		return nil, fmt.Errorf("iot: unknown encoding %q", name)
	}
}

// Round rounds every probability to 6 decimals so 1-0.92 is sent as 0.08.
func (p Payload) Round() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = math.Round(v*1e6) / 1e6
	}
	return out
}

// JSONEncoder encodes payloads as JSON objects with sorted keys.
type JSONEncoder struct{}

// Encode implements Encoder.
func (JSONEncoder) Encode(p Payload) ([]byte, error) {
	return json.Marshal(p.Round())
}

// Name implements Encoder.
func (JSONEncoder) Name() string { return EncodingJSON }

// MsgpackEncoder encodes payloads as msgpack maps with sorted keys.
type MsgpackEncoder struct{}

// Encode implements Encoder.
func (MsgpackEncoder) Encode(p Payload) ([]byte, error) {
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)

	var buf bytes.Buffer
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(map[string]float64(p.Round())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Name implements Encoder.
func (MsgpackEncoder) Name() string { return EncodingMsgpack }

var (
	_ Encoder = JSONEncoder{}
	_ Encoder = MsgpackEncoder{}
)

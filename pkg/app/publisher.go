package app

import (
	"context"
	"fmt"

	"github.com/teslashibe/go-lens/internal/config"
	"github.com/teslashibe/go-lens/pkg/iot"
)

// NewPublisher connects the transport selected in cfg.Messaging.
func NewPublisher(ctx context.Context, cfg *config.Config) (iot.Publisher, error) {
	m := cfg.Messaging

	switch m.Transport {
	case config.TransportMQTT:
		mc := iot.DefaultMQTTConfig()
		mc.Endpoint = m.MQTT.Endpoint
		mc.ThingName = cfg.ThingName
		mc.CertFile = m.MQTT.CertFile
		mc.KeyFile = m.MQTT.KeyFile
		mc.CAFile = m.MQTT.CAFile
		return iot.DialMQTT(mc)

	case config.TransportPubSub:
		return iot.NewPubSub(ctx, iot.PubSubConfig{
			Project:  m.PubSub.Project,
			Topic:    m.PubSub.Topic,
			Endpoint: m.PubSub.Endpoint,
		})

	case config.TransportLog:
		return iot.NewLog(), nil

	default:
		return nil, fmt.Errorf("unknown transport %q", m.Transport)
	}
}

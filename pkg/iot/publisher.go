// Package iot publishes inference results and diagnostics to a cloud
// messaging endpoint.
//
// Publishing is fire-and-forget: QoS 0, and no delivery confirmation is
// consumed. A Publish error means the message could not be handed to the
// transport at all.
package iot

import (
	"errors"
	"fmt"
)

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Close() error
}

// ErrClosed is returned when publishing after Close.
var ErrClosed = errors.New("iot: publisher closed")

// Topic returns the inference topic for a thing: $aws/things/<thing>/infer.
func Topic(thingName string) string {
	return fmt.Sprintf("$aws/things/%s/infer", thingName)
}

// Tee publishes to every publisher in order and returns the joined errors.
type Tee []Publisher

// Publish implements Publisher.
func (t Tee) Publish(topic string, payload []byte) error {
	var errs []error
	for _, p := range t {
		if err := p.Publish(topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (t Tee) Close() error {
	var errs []error
	for _, p := range t {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Publisher = Tee(nil)

package iot

import (
	"log/slog"

	"github.com/teslashibe/go-lens/internal/log"
)

// Log writes messages to the structured logger instead of a broker.
type Log struct {
	Logger *slog.Logger
}

// NewLog returns a Log publisher on the component logger.
func NewLog() *Log {
	return &Log{Logger: log.Component("iot.log")}
}

// Publish implements Publisher.
func (l *Log) Publish(topic string, payload []byte) error {
	l.Logger.Info("publish", "topic", topic, "payload", string(payload))
	return nil
}

// Close implements Publisher.
func (l *Log) Close() error { return nil }

var _ Publisher = (*Log)(nil)

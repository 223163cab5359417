package iot

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	pubsub "google.golang.org/api/pubsub/v1"

	"github.com/teslashibe/go-lens/internal/log"
)

// TopicAttribute carries the MQTT-style topic on Pub/Sub messages.
const TopicAttribute = "topic"

// PubSubConfig configures the Google Cloud Pub/Sub publisher.
type PubSubConfig struct {
	Project string
	Topic   string // Topic ID, not the full resource name

	// Endpoint and HTTPClient override the API endpoint and credentials,
	// e.g. for the emulator. Application default credentials otherwise.
	Endpoint   string
	HTTPClient *http.Client

	Timeout time.Duration
}

// PubSub publishes to a single Pub/Sub topic; the logical topic travels as
// a message attribute.
type PubSub struct {
	svc     *pubsub.Service
	topic   string
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewPubSub creates a Pub/Sub publisher.
func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if cfg.Project == "" || cfg.Topic == "" {
		return nil, errors.New("iot: pubsub project and topic required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		var err error
		client, err = google.DefaultClient(ctx, pubsub.PubsubScope)
		if err != nil {
			return nil, fmt.Errorf("google credentials: %w", err)
		}
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := pubsub.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub service: %w", err)
	}

	return &PubSub{
		svc:     svc,
		topic:   fmt.Sprintf("projects/%s/topics/%s", cfg.Project, cfg.Topic),
		timeout: cfg.Timeout,
		logger:  log.Component("iot.pubsub"),
	}, nil
}

// Publish implements Publisher.
func (p *PubSub) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	req := &pubsub.PublishRequest{
		Messages: []*pubsub.PubsubMessage{{
			Data:       base64.StdEncoding.EncodeToString(payload),
			Attributes: map[string]string{TopicAttribute: topic},
		}},
	}

	resp, err := p.svc.Projects.Topics.Publish(p.topic, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("pubsub publish: %w", err)
	}

	p.logger.Debug("message published",
		"topic", topic,
		"message_ids", resp.MessageIds,
		"size", len(payload),
	)
	return nil
}

// Close implements Publisher.
func (p *PubSub) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

var _ Publisher = (*PubSub)(nil)

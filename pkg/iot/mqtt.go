package iot

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/teslashibe/go-lens/internal/log"
)

// MQTTConfig configures the MQTT publisher.
type MQTTConfig struct {
	Endpoint  string // host:port; 8883 uses TLS
	ThingName string // Used for the client ID

	// AWS IoT device credentials. When CertFile is empty the connection is
	// plain TCP (local broker).
	CertFile string
	KeyFile  string
	CAFile   string

	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// DefaultMQTTConfig returns defaults for AWS IoT Core.
func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		ConnectTimeout: 5 * time.Second,
		PublishTimeout: 2 * time.Second,
	}
}

// MQTT publishes to an MQTT broker (AWS IoT Core or a local mosquitto).
type MQTT struct {
	cfg    MQTTConfig
	client mqtt.Client
	logger *slog.Logger

	mu        sync.RWMutex
	published map[string]uint64 // count per topic
	errors    uint64
	connected bool
	closed    bool
}

// ClientID returns "<thing>-<8 hex chars>".
func ClientID(thingName string) string {
	if thingName == "" {
		thingName = "lens"
	}
	return fmt.Sprintf("%s-%s", thingName, uuid.NewString()[:8])
}

// DialMQTT connects to the broker. Reconnection afterwards is automatic.
func DialMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("iot: mqtt endpoint required")
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = 2 * time.Second
	}

	m := &MQTT{
		cfg:       cfg,
		logger:    log.Component("iot.mqtt"),
		published: make(map[string]uint64),
	}

	clientID := ClientID(cfg.ThingName)

	opts := mqtt.NewClientOptions()
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	if cfg.CertFile != "" {
		tlsCfg, err := loadTLS(cfg)
		if err != nil {
			return nil, err
		}
		opts.AddBroker("ssl://" + cfg.Endpoint)
		opts.SetTLSConfig(tlsCfg)
	} else {
		opts.AddBroker("tcp://" + cfg.Endpoint)
	}

	opts.OnConnect = func(c mqtt.Client) {
		m.mu.Lock()
		m.connected = true
		m.mu.Unlock()
		m.logger.Info("mqtt connection established",
			"endpoint", cfg.Endpoint,
			"client_id", clientID)
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		m.mu.Lock()
		m.connected = false
		m.mu.Unlock()
		m.logger.Warn("mqtt connection lost, will auto-reconnect",
			"error", err,
			"endpoint", cfg.Endpoint)
	}

	m.client = mqtt.NewClient(opts)

	m.logger.Info("connecting to mqtt broker", "endpoint", cfg.Endpoint)

	token := m.client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		m.client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connection timeout (%s)", cfg.Endpoint)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	return m, nil
}

func loadTLS(cfg MQTTConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load device certificate: %w", err)
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", cfg.CAFile)
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}

// Publish hands payload to the client. While reconnecting, QoS 0 messages
// are dropped by the client without error.
func (m *MQTT) Publish(topic string, payload []byte) error {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	token := m.client.Publish(topic, m.cfg.QoS, false, payload)
	if !token.WaitTimeout(m.cfg.PublishTimeout) {
		m.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		m.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	m.mu.Lock()
	m.published[topic]++
	m.mu.Unlock()

	m.logger.Debug("message published",
		"topic", topic,
		"size", len(payload),
	)
	return nil
}

func (m *MQTT) countError() {
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.connected = false
	m.mu.Unlock()

	if m.client.IsConnected() {
		m.client.Disconnect(250) // 250ms grace period
		m.logger.Info("mqtt disconnected")
	}
	return nil
}

// MQTTStats contains publisher statistics.
type MQTTStats struct {
	Connected bool
	Published map[string]uint64
	Errors    uint64
}

// Stats returns publisher statistics.
func (m *MQTT) Stats() MQTTStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	published := make(map[string]uint64, len(m.published))
	for k, v := range m.published {
		published[k] = v
	}

	return MQTTStats{
		Connected: m.connected,
		Published: published,
		Errors:    m.errors,
	}
}

var _ Publisher = (*MQTT)(nil)

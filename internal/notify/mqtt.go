package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig selects broker, base topic and QoS
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Topic          string
	QoS            byte
	Retained       bool
	ConnectTimeout time.Duration
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink publishes alert events to <topic>/<kind>
type MQTTSink struct {
	cfg    MQTTConfig
	client publisher
}

// NewMQTTSink connects to the broker
func NewMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker must not be empty")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", cfg.QoS)
	}
	if cfg.Topic == "" {
		cfg.Topic = "heliobio/alerts"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "heliobio"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)

	tok := client.Connect()
	if !tok.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	return &MQTTSink{cfg: cfg, client: client}, nil
}

// Name identifies the sink
func (m *MQTTSink) Name() string {
	return "mqtt:" + m.cfg.Topic
}

// Topic returns the topic an alert kind is published to
func (m *MQTTSink) Topic(ev Event) string {
	return strings.TrimRight(m.cfg.Topic, "/") + "/" + strings.ToLower(string(ev.Alert.Kind))
}

// Publish sends one event and waits for the broker ack or ctx
func (m *MQTTSink) Publish(ctx context.Context, ev Event) error {
	payload, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	tok := m.client.Publish(m.Topic(ev), m.cfg.QoS, m.cfg.Retained, payload)
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects after letting in-flight work drain for 250ms
func (m *MQTTSink) Close() error {
	m.client.Disconnect(250)
	return nil
}

package config

import (
	"fmt"
	"time"

	"github.com/sawpanic/heliobio/internal/notify"
)

// NotifyConfig configures alert fan-out
type NotifyConfig struct {
	Origin         string        `yaml:"origin"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	Kafka          KafkaSection  `yaml:"kafka"`
	MQTT           MQTTSection   `yaml:"mqtt"`
}

// KafkaSection configures the Kafka sink
type KafkaSection struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// MQTTSection configures the MQTT sink
type MQTTSection struct {
	Enabled        bool          `yaml:"enabled"`
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"client_id"`
	Topic          string        `yaml:"topic"`
	QoS            int           `yaml:"qos"`
	Retained       bool          `yaml:"retained"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DefaultNotifyConfig disables both sinks
func DefaultNotifyConfig() NotifyConfig {
	return NotifyConfig{
		Origin:         "heliobio",
		PublishTimeout: 5 * time.Second,
		Kafka:          KafkaSection{Topic: "heliobio.alerts"},
		MQTT: MQTTSection{
			ClientID:       "heliobio",
			Topic:          "heliobio/alerts",
			QoS:            1,
			ConnectTimeout: 10 * time.Second,
		},
	}
}

// Validate checks the enabled sinks
func (n NotifyConfig) Validate() error {
	if n.PublishTimeout <= 0 {
		return fmt.Errorf("publish_timeout must be positive")
	}
	if n.Kafka.Enabled {
		if len(n.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka: at least one broker is required")
		}
		if n.Kafka.Topic == "" {
			return fmt.Errorf("kafka: topic is required")
		}
	}
	if n.MQTT.Enabled {
		if n.MQTT.Broker == "" {
			return fmt.Errorf("mqtt: broker is required")
		}
		if n.MQTT.QoS < 0 || n.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt: qos must be 0, 1 or 2, got %d", n.MQTT.QoS)
		}
	}
	return nil
}

// KafkaSink returns the Kafka sink settings
func (n NotifyConfig) KafkaSink() notify.KafkaConfig {
	return notify.KafkaConfig{Brokers: n.Kafka.Brokers, Topic: n.Kafka.Topic}
}

// MQTTSink returns the MQTT sink settings
func (n NotifyConfig) MQTTSink() notify.MQTTConfig {
	return notify.MQTTConfig{
		Broker:         n.MQTT.Broker,
		ClientID:       n.MQTT.ClientID,
		Topic:          n.MQTT.Topic,
		QoS:            byte(n.MQTT.QoS),
		Retained:       n.MQTT.Retained,
		ConnectTimeout: n.MQTT.ConnectTimeout,
	}
}

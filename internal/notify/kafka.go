package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig selects brokers and topic
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes alert events to a topic keyed by alert kind
type KafkaSink struct {
	topic  string
	writer messageWriter
}

// NewKafkaSink creates a synchronous writer that waits for the leader ack
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		WriteTimeout: 5 * time.Second,
	}
	return &KafkaSink{topic: cfg.Topic, writer: w}, nil
}

// Name identifies the sink
func (k *KafkaSink) Name() string {
	return "kafka:" + k.topic
}

// Publish writes one event
func (k *KafkaSink) Publish(ctx context.Context, ev Event) error {
	payload, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Alert.Kind),
		Value: payload,
		Time:  ev.EmittedAt,
		Headers: []kafka.Header{
			{Key: "level", Value: []byte(ev.Alert.Level)},
		},
	})
}

// Close flushes and closes the writer
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/calendo/core/internal/ports"
)

// KafkaPublisher writes todo events to a Kafka topic, keyed by todo id so
// events for one todo stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

var _ ports.EventPublisher = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) Publish(ctx context.Context, event ports.TodoEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal todo event: %w", err)
	}

	var key []byte
	if event.Todo != nil {
		key = []byte(event.Todo.ID)
	}

	msg := kafka.Message{
		Key:   key,
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write todo event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ports.TodoEvent) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

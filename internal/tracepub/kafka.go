// Package tracepub streams timeline spans to Kafka.
package tracepub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/boxcoder/boxcoder/internal/timeline"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "boxcoder.spans"

const publishTimeout = 5 * time.Second

// Publisher receives spans as they are recorded.
type Publisher interface {
	PublishSpan(ctx context.Context, span timeline.Span) error
	Close() error
}

// KafkaPublisher writes each span as one JSON message keyed by trace id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for a comma-separated broker list.
func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}}
}

// Topic returns the destination topic.
func (p *KafkaPublisher) Topic() string { return p.writer.Topic }

func (p *KafkaPublisher) PublishSpan(ctx context.Context, span timeline.Span) error {
	msg, err := spanMessage(span)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish span: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func spanMessage(span timeline.Span) (kafka.Message, error) {
	value, err := json.Marshal(span)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode span: %w", err)
	}
	return kafka.Message{
		Key:   []byte(span.TraceID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "span-kind", Value: []byte(span.Kind)},
		},
		Time: span.StartedAt,
	}, nil
}

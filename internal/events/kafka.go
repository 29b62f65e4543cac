package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// KafkaPublisher writes each event to "<prefix><type>".
type KafkaPublisher struct {
	writer *kafka.Writer
	prefix string
	log    *zap.Logger
}

func NewKafkaPublisher(brokers []string, topicPrefix string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
		prefix: topicPrefix,
		log:    log.Named("events.kafka"),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	msg, err := p.message(ctx, evt)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	p.log.Debug("event published", zap.String("event_id", evt.ID), zap.String("topic", msg.Topic))
	return nil
}

func (p *KafkaPublisher) message(ctx context.Context, evt Event) (kafka.Message, error) {
	value, err := Encode(evt)
	if err != nil {
		return kafka.Message{}, err
	}
	headers := []kafka.Header{
		{Key: "event_id", Value: []byte(evt.ID)},
		{Key: "event_type", Value: []byte(evt.Type)},
	}
	carrier := &headerCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	return kafka.Message{
		Topic:   p.prefix + evt.Type,
		Key:     []byte(evt.Key),
		Value:   value,
		Headers: carrier.headers,
		Time:    evt.OccurredAt,
	}, nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if strings.EqualFold(h.Key, key) {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)

package messaging

import (
	"context"
	"log/slog"
	"time"

	"storefront/internal/domain/model"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

// kafka.Writerのうち使う部分だけ
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafkaが落ちている間はブレーカーを開けて即失敗させる
type KafkaPublisher struct {
	writer MessageWriter
	cb     *gobreaker.CircuitBreaker[any]
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(writer MessageWriter, log *slog.Logger) *KafkaPublisher {
	return newKafkaPublisher(writer, log, 5, 30*time.Second)
}

func newKafkaPublisher(writer MessageWriter, log *slog.Logger, maxFailures uint32, openTimeout time.Duration) *KafkaPublisher {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "kafka-outbox",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "step", "outbox_publish", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &KafkaPublisher{writer: writer, cb: cb}
}

// keyは注文単位（同じ注文のイベントは同じパーティションへ）
func (p *KafkaPublisher) Publish(ctx context.Context, event model.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateKey),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
		Time: event.CreatedAt.UTC(),
	}

	_, err := p.cb.Execute(func() (any, error) {
		return nil, p.writer.WriteMessages(ctx, msg)
	})
	return err
}

func (p *KafkaPublisher) State() gobreaker.State {
	return p.cb.State()
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

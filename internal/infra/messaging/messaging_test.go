package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/domain/model"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type writerMock struct {
	mock.Mock
	sent []kafka.Message
}

func (m *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, len(msgs))
	if args.Error(0) == nil {
		m.sent = append(m.sent, msgs...)
	}
	return args.Error(0)
}

func (m *writerMock) Close() error { return nil }

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, e model.OutboxEvent) error {
	return m.Called(ctx, e.ID).Error(0)
}

// ProcessPendingの挙動だけ真似る
type memoryOutbox struct {
	events []model.OutboxEvent
}

func (o *memoryOutbox) Insert(_ context.Context, e model.OutboxEvent) error {
	o.events = append(o.events, e)
	return nil
}

func (o *memoryOutbox) ProcessPending(_ context.Context, limit int, fn func(model.OutboxEvent) error) (int, error) {
	sent := 0
	for i := range o.events {
		if sent >= limit {
			break
		}
		if o.events[i].SentAt != nil {
			continue
		}
		if err := fn(o.events[i]); err != nil {
			return sent, err
		}
		now := time.Now()
		o.events[i].SentAt = &now
		sent++
	}
	return sent, nil
}

func event(id int64) model.OutboxEvent {
	return model.OutboxEvent{
		ID:           id,
		EventID:      "ev-1",
		EventType:    model.TopicOrderCreated,
		AggregateKey: "order-10",
		Payload:      []byte(`{"order_id":10}`),
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestKafkaPublisher_Message(t *testing.T) {
	w := &writerMock{}
	w.On("WriteMessages", mock.Anything, 1).Return(nil)
	p := NewKafkaPublisher(w, discard)

	require.NoError(t, p.Publish(context.Background(), event(1)))

	require.Len(t, w.sent, 1)
	msg := w.sent[0]
	assert.Equal(t, "order-10", string(msg.Key))
	assert.JSONEq(t, `{"order_id":10}`, string(msg.Value))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, model.TopicOrderCreated, string(msg.Headers[0].Value))
}

func TestKafkaPublisher_BreakerOpens(t *testing.T) {
	w := &writerMock{}
	w.On("WriteMessages", mock.Anything, 1).Return(errors.New("broker down"))
	p := newKafkaPublisher(w, discard, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.EqualError(t, p.Publish(ctx, event(1)), "broker down")
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())

	err := p.Publish(ctx, event(1))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	w.AssertNumberOfCalls(t, "WriteMessages", 3)
}

func TestOutboxRelay_RelayOnce(t *testing.T) {
	outbox := &memoryOutbox{events: []model.OutboxEvent{event(1), event(2)}}
	pub := &publisherMock{}
	pub.On("Publish", mock.Anything, int64(1)).Return(nil)
	pub.On("Publish", mock.Anything, int64(2)).Return(nil)

	r := NewOutboxRelay(outbox, pub, time.Second, discard)
	sent, err := r.RelayOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	// 2回目は何も送らない
	sent, err = r.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	pub.AssertNumberOfCalls(t, "Publish", 2)
}

func TestOutboxRelay_StopsOnPublishError(t *testing.T) {
	outbox := &memoryOutbox{events: []model.OutboxEvent{event(1), event(2), event(3)}}
	pub := &publisherMock{}
	pub.On("Publish", mock.Anything, int64(1)).Return(nil)
	pub.On("Publish", mock.Anything, int64(2)).Return(errors.New("boom"))

	r := NewOutboxRelay(outbox, pub, time.Second, discard)
	sent, err := r.RelayOnce(context.Background())

	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, sent)
	assert.NotNil(t, outbox.events[0].SentAt)
	assert.Nil(t, outbox.events[1].SentAt)
	assert.Nil(t, outbox.events[2].SentAt)
	pub.AssertNotCalled(t, "Publish", mock.Anything, int64(3))
}

type countingPublisher struct {
	n atomic.Int32
}

func (p *countingPublisher) Publish(context.Context, model.OutboxEvent) error {
	p.n.Add(1)
	return nil
}

func TestOutboxRelay_RunStopsOnCancel(t *testing.T) {
	outbox := &memoryOutbox{events: []model.OutboxEvent{event(1)}}
	pub := &countingPublisher{}

	r := NewOutboxRelay(outbox, pub, 10*time.Millisecond, discard)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return pub.n.Load() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

// 送信中にキャンセルされても返すまで待つ
type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPublisher) Publish(ctx context.Context, e model.OutboxEvent) error {
	p.entered <- struct{}{}
	<-p.release
	return nil
}

func TestOutboxRelay_StartWaitsForInflightPublish(t *testing.T) {
	outbox := &memoryOutbox{events: []model.OutboxEvent{event(1)}}
	pub := &blockingPublisher{entered: make(chan struct{}, 1), release: make(chan struct{})}

	r := NewOutboxRelay(outbox, pub, 10*time.Millisecond, discard)
	ctx, cancel := context.WithCancel(context.Background())
	done := r.Start(ctx)

	select {
	case <-pub.entered:
	case <-time.After(time.Second):
		t.Fatal("publish was not called")
	}
	cancel()

	select {
	case <-done:
		t.Fatal("done closed while publish was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(pub.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

package messaging

import (
	"context"
	"log/slog"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type Publisher interface {
	Publish(ctx context.Context, event model.OutboxEvent) error
}

// outbox_eventsを定期的に読んで送る。注文は書き換えない
type OutboxRelay struct {
	outbox    repo.OutboxRepository
	publisher Publisher
	interval  time.Duration
	batchSize int
	log       *slog.Logger
}

func NewOutboxRelay(outbox repo.OutboxRepository, publisher Publisher, interval time.Duration, log *slog.Logger) *OutboxRelay {
	return &OutboxRelay{
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: 100,
		log:       log,
	}
}

// ctxがキャンセルされるまで回る
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			sent, err := r.RelayOnce(ctx)
			if err != nil {
				r.log.Warn("outbox relay failed",
					"step", "outbox_relay",
					"status", "error",
					"sent", sent,
					"duration_ms", time.Since(start).Milliseconds(),
					"error", err.Error(),
				)
				continue
			}
			if sent > 0 {
				r.log.Info("outbox relayed",
					"step", "outbox_relay",
					"status", "ok",
					"sent", sent,
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Runを別goroutineで回す。返したchannelは送信中の1回が終わってから閉じる
func (r *OutboxRelay) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()
	return done
}

// 1回分。送れなかったイベントは次の周期で再送される
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	return r.outbox.ProcessPending(ctx, r.batchSize, func(e model.OutboxEvent) error {
		return r.publisher.Publish(ctx, e)
	})
}

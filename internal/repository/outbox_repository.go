package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type OutboxRepository interface {
	Insert(ctx context.Context, event model.OutboxEvent) error
	// 未送信のイベントを処理する。fnがエラーなら送信済みにしない
	ProcessPending(ctx context.Context, limit int, fn func(model.OutboxEvent) error) (int, error)
}

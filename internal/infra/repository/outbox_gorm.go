package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OutboxGormRepository struct {
	db *gorm.DB
}

func NewOutboxGormRepository(db *gorm.DB) *OutboxGormRepository {
	return &OutboxGormRepository{db: db}
}

func (r *OutboxGormRepository) Insert(ctx context.Context, event model.OutboxEvent) error {
	return translate(r.db.WithContext(ctx).Create(&event).Error)
}

// SKIP LOCKEDなので複数のリレーが動いても同じイベントを二重に取らない
func (r *OutboxGormRepository) ProcessPending(ctx context.Context, limit int, fn func(model.OutboxEvent) error) (int, error) {
	sent := 0
	var publishErr error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var events []model.OutboxEvent
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("sent_at IS NULL").
			Order("id asc").
			Limit(limit).
			Find(&events).Error; err != nil {
			return err
		}

		for _, ev := range events {
			if err := fn(ev); err != nil {
				// 送れた分だけ確定する
				publishErr = err
				return nil
			}
			if err := tx.Model(&model.OutboxEvent{}).
				Where("id = ?", ev.ID).
				Update("sent_at", time.Now()).Error; err != nil {
				return err
			}
			sent++
		}
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}
	return sent, publishErr
}

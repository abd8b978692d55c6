package model

import (
	"encoding/json"
	"time"
)

type AuditAction string

const (
	AuditActionUpdateStock       AuditAction = "UPDATE_STOCK"
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
)

type AuditResourceType string

const (
	AuditResourceProduct AuditResourceType = "product"
	AuditResourceOrder   AuditResourceType = "order"
)

// 管理者操作の記録。変更前後はJSON文字列で持つ
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index:idx_audit_resource" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index:idx_audit_resource" json:"resource_id"`
	BeforeJSON   string            `gorm:"type:text" json:"before_json"`
	AfterJSON    string            `gorm:"type:text" json:"after_json"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}

func NewAuditLog(actorID int64, action AuditAction, resource AuditResourceType, resourceID int64, before, after any) (AuditLog, error) {
	b, err := json.Marshal(before)
	if err != nil {
		return AuditLog{}, err
	}
	a, err := json.Marshal(after)
	if err != nil {
		return AuditLog{}, err
	}
	return AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		BeforeJSON:   string(b),
		AfterJSON:    string(a),
		CreatedAt:    time.Now(),
	}, nil
}

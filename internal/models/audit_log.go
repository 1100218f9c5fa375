package models

import "time"

type AuditAction string

const (
	AuditActionPush   AuditAction = "push"
	AuditActionDelete AuditAction = "delete"
)

// AuditLog records every batch a terminal pushed and every remote delete.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID   uint   `json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"`

	// "product", "transaction", "supplier", "purchase"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	// comma separated ids of the batch
	EntityIDs string      `gorm:"type:text" json:"entity_ids"`
	Count     int         `json:"count"`
	Action    AuditAction `gorm:"size:20" json:"action"`

	Description string `gorm:"size:255" json:"description"`
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditEntry is the machine-readable record of one lifecycle mutation.
// Append-only; rows are never updated or deleted.
type AuditEntry struct {
	Id        uint           `json:"id" gorm:"primaryKey"`
	RequestId string         `json:"request_id" gorm:"size:64;not null;index"`
	Action    string         `json:"action" gorm:"size:40;not null"`
	ActorId   string         `json:"actor_id" gorm:"size:64"`
	ActorName string         `json:"actor_name"`
	Payload   datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at"`
}

// ProceedingEntry is the human-facing note shown on a request's timeline,
// written from the same domain event as the audit entry. Append-only.
type ProceedingEntry struct {
	Id         uint      `json:"id" gorm:"primaryKey"`
	RequestId  string    `json:"request_id" gorm:"size:64;not null;index"`
	AuthorId   string    `json:"author_id" gorm:"size:64"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text" gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"created_at"`
}

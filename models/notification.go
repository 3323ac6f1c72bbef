package models

import "time"

// Notification kinds recorded in the ledger.
const (
	NotificationDueSoon = "due_soon"
	NotificationOverdue = "overdue"
)

// NotificationEntry is one row of the append-only dedup ledger. The unique
// index over (request, type, target) is what makes repeated sweeps send each
// warning at most once. TargetUserId is the dedup key component: empty for
// due_soon so the database holds at most one warning per request no matter
// who the executor was, the recipient's id for overdue so the escalation
// fans out once per supervisor. RecipientId records who actually got the
// mail and takes no part in deduplication.
type NotificationEntry struct {
	Id               uint      `json:"id" gorm:"primaryKey"`
	RequestId        string    `json:"request_id" gorm:"size:64;not null;uniqueIndex:idx_notification_dedup,priority:1"`
	NotificationType string    `json:"notification_type" gorm:"size:20;not null;uniqueIndex:idx_notification_dedup,priority:2"`
	TargetUserId     string    `json:"target_user_id" gorm:"size:64;not null;default:'';uniqueIndex:idx_notification_dedup,priority:3"`
	RecipientId      string    `json:"recipient_id" gorm:"size:64;not null;default:''"`
	CreatedAt        time.Time `json:"created_at"`
}

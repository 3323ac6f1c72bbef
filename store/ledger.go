package store

import (
	"errors"

	"gorm.io/gorm"

	"civicdesk-backend/models"
)

// Ledger is the append-only notification dedup record. Entries are written
// once and never mutated; the composite unique index backs the check-then-
// insert so concurrent sweeps cannot double-send.
type Ledger struct {
	DB *gorm.DB
}

// HasDueSoon reports whether a due-soon warning was ever sent for the
// request, regardless of who the executor was at the time.
func (l Ledger) HasDueSoon(requestID string) (bool, error) {
	return l.exists(l.DB.Where("request_id = ? AND notification_type = ?",
		requestID, models.NotificationDueSoon))
}

// HasOverdue reports whether an overdue escalation was sent for the request
// to this particular recipient.
func (l Ledger) HasOverdue(requestID, recipientID string) (bool, error) {
	return l.exists(l.DB.Where("request_id = ? AND notification_type = ? AND target_user_id = ?",
		requestID, models.NotificationOverdue, recipientID))
}

func (l Ledger) exists(q *gorm.DB) (bool, error) {
	var n int64
	if err := q.Model(&models.NotificationEntry{}).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordDueSoon appends the per-request warning entry. The dedup key leaves
// the target blank so the unique index rejects a second warning for the same
// request even across an executor reassignment; who actually received the
// mail is kept informationally.
func (l Ledger) RecordDueSoon(requestID, recipientID string) (bool, error) {
	return l.record(models.NotificationEntry{
		RequestId:        requestID,
		NotificationType: models.NotificationDueSoon,
		RecipientId:      recipientID,
	})
}

// RecordOverdue appends one escalation entry per recipient.
func (l Ledger) RecordOverdue(requestID, recipientID string) (bool, error) {
	return l.record(models.NotificationEntry{
		RequestId:        requestID,
		NotificationType: models.NotificationOverdue,
		TargetUserId:     recipientID,
		RecipientId:      recipientID,
	})
}

// record returns false when an equivalent entry already exists (a concurrent
// sweep won the insert race).
func (l Ledger) record(entry models.NotificationEntry) (bool, error) {
	err := l.DB.Create(&entry).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"civicdesk-backend/apperrors"
	"civicdesk-backend/control"
	"civicdesk-backend/models"
)

// Requests is the persistence layer for request records. Methods run against
// the session the struct was built with, so callers can scope a transaction
// via Requests{DB: tx}.
type Requests struct {
	DB *gorm.DB
}

// ListFilters narrows and pages the request listing. Zero values mean "no
// filter"; PageSize is clamped to 100.
type ListFilters struct {
	Status        string
	ControlStatus string
	TypeId        uint
	TopicId       uint
	ExecutorId    string
	Territory     string
	Search        string
	Page          int
	PageSize      int
}

var terminalStatuses = []models.Status{
	models.StatusCompleted, models.StatusArchived,
	models.StatusCancelled, models.StatusRemoved,
}

func (s Requests) Create(req *models.Request) error {
	return s.DB.Create(req).Error
}

// ByID loads one request with its executor and attachments. A miss is
// reported as apperrors.NotFound.
func (s Requests) ByID(id string) (*models.Request, error) {
	var req models.Request
	err := s.DB.Preload("Executor").Preload("Attachments").First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.NotFound{Entity: "request", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Updates applies a partial column update to one request.
func (s Requests) Updates(id string, fields map[string]any) error {
	return s.DB.Model(&models.Request{}).Where("id = ?", id).Updates(fields).Error
}

// SetControlStatus persists a recomputed control status without touching
// updated_at: reconciliation is bookkeeping, not a user edit.
func (s Requests) SetControlStatus(id string, cs control.Status) error {
	return s.DB.Model(&models.Request{}).Where("id = ?", id).
		UpdateColumn("control_status", cs).Error
}

// List returns a page of requests plus the unpaged total.
func (s Requests) List(f ListFilters) ([]models.Request, int64, error) {
	q := s.DB.Model(&models.Request{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ControlStatus != "" {
		q = q.Where("control_status = ?", f.ControlStatus)
	}
	if f.TypeId != 0 {
		q = q.Where("type_id = ?", f.TypeId)
	}
	if f.TopicId != 0 {
		q = q.Where("topic_id = ?", f.TopicId)
	}
	if f.ExecutorId != "" {
		q = q.Where("executor_id = ?", f.ExecutorId)
	}
	if f.Territory != "" {
		q = q.Where("territory = ?", f.Territory)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("full_name LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	var rows []models.Request
	err := q.Preload("Executor").Preload("Attachments").
		Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// AttachmentCount returns how many files are already linked to a request.
func (s Requests) AttachmentCount(id string) (int64, error) {
	var n int64
	err := s.DB.Model(&models.Attachment{}).Where("request_id = ?", id).Count(&n).Error
	return n, err
}

// ForEachOpen streams all non-terminal requests in batches through fn. An
// error from fn stops the stream.
func (s Requests) ForEachOpen(fn func(*models.Request) error) error {
	var batch []models.Request
	return s.DB.Where("status NOT IN ?", terminalStatuses).
		FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				if err := fn(&batch[i]); err != nil {
					return err
				}
			}
			return nil
		}).Error
}

// DueSoonCandidates returns open requests whose deadline falls inside
// (now, now+window] and that have an assigned executor.
func (s Requests) DueSoonCandidates(now time.Time, window time.Duration) ([]models.Request, error) {
	var rows []models.Request
	err := s.DB.Preload("Executor").
		Where("status NOT IN ?", terminalStatuses).
		Where("executor_id IS NOT NULL").
		Where("due_date > ? AND due_date <= ?", now, now.Add(window)).
		Find(&rows).Error
	return rows, err
}

// OverdueCandidates returns open requests whose deadline is strictly past.
func (s Requests) OverdueCandidates(now time.Time) ([]models.Request, error) {
	var rows []models.Request
	err := s.DB.Where("status NOT IN ?", terminalStatuses).
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Find(&rows).Error
	return rows, err
}

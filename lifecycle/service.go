package lifecycle

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"civicdesk-backend/apperrors"
	"civicdesk-backend/audit"
	"civicdesk-backend/control"
	"civicdesk-backend/models"
	"civicdesk-backend/notify"
	"civicdesk-backend/storage"
	"civicdesk-backend/store"
)

// DefaultMaxAttachments caps files per request (shared filesystem quota);
// override with MAX_ATTACHMENTS.
const DefaultMaxAttachments = 5

// MaxAttachments returns the configured attachment ceiling.
func MaxAttachments() int {
	if v := os.Getenv("MAX_ATTACHMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxAttachments
}

// Service orchestrates the request lifecycle: validation, persistence, control
// status reconciliation, audit and notification triggering.
type Service struct {
	DB             *gorm.DB
	Files          storage.Dir
	Audit          audit.Logger
	Notify         *notify.Engine
	Window         time.Duration
	MaxAttachments int
	Now            func() time.Time
}

func New(db *gorm.DB, files storage.Dir, engine *notify.Engine) *Service {
	return &Service{
		DB:             db,
		Files:          files,
		Audit:          audit.Logger{},
		Notify:         engine,
		Window:         control.ApproachingWindow(),
		MaxAttachments: MaxAttachments(),
		Now:            time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Upload is one incoming attachment; Open defers reading the bytes until the
// ceiling checks passed.
type Upload struct {
	FileName    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// CreateInput is the intake payload. Foreign keys are re-validated against
// the nomenclature tables regardless of what the HTTP layer checked.
type CreateInput struct {
	FullName      string `json:"full_name" form:"full_name" validate:"required"`
	Email         string `json:"email" form:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" form:"phone"`
	TypeId        uint   `json:"type_id" form:"type_id" validate:"required"`
	TopicId       uint   `json:"topic_id" form:"topic_id" validate:"required"`
	SocialGroupId uint   `json:"social_group_id" form:"social_group_id"`
	IntakeFormId  uint   `json:"intake_form_id" form:"intake_form_id"`
	Description   string `json:"description" form:"description"`
	Address       string `json:"address" form:"address"`
	Territory     string `json:"territory" form:"territory"`
	Priority      string `json:"priority" form:"priority"`
	ExecutorId    string `json:"executor_id" form:"executor_id"`
	DueDate       string `json:"due_date" form:"due_date"`
}

// Patch is a partial update; nil fields stay untouched. Empty-string DueDate
// or ExecutorId clears the value.
type Patch struct {
	FullName      *string `json:"full_name" form:"full_name"`
	Email         *string `json:"email" form:"email"`
	Phone         *string `json:"phone" form:"phone"`
	TypeId        *uint   `json:"type_id" form:"type_id"`
	TopicId       *uint   `json:"topic_id" form:"topic_id"`
	SocialGroupId *uint   `json:"social_group_id" form:"social_group_id"`
	IntakeFormId  *uint   `json:"intake_form_id" form:"intake_form_id"`
	Description   *string `json:"description" form:"description"`
	Address       *string `json:"address" form:"address"`
	Territory     *string `json:"territory" form:"territory"`
	Status        *string `json:"status" form:"status"`
	Priority      *string `json:"priority" form:"priority"`
	ExecutorId    *string `json:"executor_id" form:"executor_id"`
	DueDate       *string `json:"due_date" form:"due_date"`
}

// Create validates, persists and places a new request under control. If the
// deadline is already inside the warning window (or past), the warning fires
// immediately instead of waiting for the next sweep.
func (s *Service) Create(input CreateInput, files []Upload, actor models.Actor) (*models.Request, error) {
	lookups := store.Lookups{DB: s.DB}
	if err := s.validateRefs(lookups, refSet{
		requestType: &input.TypeId,
		topic:       &input.TopicId,
		socialGroup: &input.SocialGroupId,
		intakeForm:  &input.IntakeFormId,
	}); err != nil {
		return nil, err
	}

	priority := models.Priority(input.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, &apperrors.Validation{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", priority)}
	}

	executorID, err := s.resolveExecutor(input.ExecutorId)
	if err != nil {
		return nil, err
	}

	due, err := parseDue(input.DueDate)
	if err != nil {
		return nil, err
	}

	if len(files) > s.MaxAttachments {
		return nil, &apperrors.ResourceLimit{Resource: "attachments", Limit: s.MaxAttachments}
	}

	now := s.now()
	req := &models.Request{
		FullName:      strings.TrimSpace(input.FullName),
		Email:         strings.TrimSpace(input.Email),
		Phone:         strings.TrimSpace(input.Phone),
		TypeId:        input.TypeId,
		TopicId:       input.TopicId,
		SocialGroupId: input.SocialGroupId,
		IntakeFormId:  input.IntakeFormId,
		Description:   input.Description,
		Address:       input.Address,
		Territory:     input.Territory,
		Status:        models.StatusNew,
		Priority:      priority,
		ExecutorId:    executorID,
		DueDate:       due,
		ControlStatus: control.ComputeWithWindow(due, now, s.Window),
	}

	var savedFiles []string
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := (store.Requests{DB: tx}).Create(req); err != nil {
			return fmt.Errorf("persist request: %w", err)
		}
		paths, err := s.saveAttachments(tx, req.Id, files)
		savedFiles = paths
		if err != nil {
			return err
		}
		if err := s.Audit.Record(tx, audit.Event{
			RequestId: req.Id,
			Action:    audit.ActionCreate,
			Actor:     actor,
			Payload: map[string]any{
				"status":   req.Status,
				"priority": req.Priority,
				"type_id":  req.TypeId,
				"topic_id": req.TopicId,
			},
		}); err != nil {
			log.Printf("lifecycle: audit for request %s failed: %v", req.Id, err)
		}
		return nil
	})
	if err != nil {
		s.discardFiles(savedFiles)
		return nil, err
	}

	if req.ControlStatus == control.StatusApproaching || req.ControlStatus == control.StatusOverdue {
		s.Notify.Dispatch(req)
	}
	return store.Requests{DB: s.DB}.ByID(req.Id)
}

// Update applies a partial edit. A changed due date recomputes the control
// status; when the new value enters the warning or overdue band the matching
// notification fires with the merged record.
func (s *Service) Update(id string, patch Patch, files []Upload, actor models.Actor) (*models.Request, error) {
	requests := store.Requests{DB: s.DB}
	req, err := requests.ByID(id)
	if err != nil {
		return nil, err
	}

	lookups := store.Lookups{DB: s.DB}
	if err := s.validateRefs(lookups, refSet{
		requestType: patch.TypeId,
		topic:       patch.TopicId,
		socialGroup: patch.SocialGroupId,
		intakeForm:  patch.IntakeFormId,
	}); err != nil {
		return nil, err
	}

	existing, err := requests.AttachmentCount(id)
	if err != nil {
		return nil, err
	}
	if int(existing)+len(files) > s.MaxAttachments {
		return nil, &apperrors.ResourceLimit{Resource: "attachments", Limit: s.MaxAttachments}
	}

	changed := map[string]any{}
	setString := func(col string, dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
			changed[col] = *dst
		}
	}
	setUint := func(col string, dst *uint, v *uint) {
		if v != nil {
			*dst = *v
			changed[col] = *dst
		}
	}
	setString("full_name", &req.FullName, patch.FullName)
	setString("email", &req.Email, patch.Email)
	setString("phone", &req.Phone, patch.Phone)
	setString("description", &req.Description, patch.Description)
	setString("address", &req.Address, patch.Address)
	setString("territory", &req.Territory, patch.Territory)
	setUint("type_id", &req.TypeId, patch.TypeId)
	setUint("topic_id", &req.TopicId, patch.TopicId)
	setUint("social_group_id", &req.SocialGroupId, patch.SocialGroupId)
	setUint("intake_form_id", &req.IntakeFormId, patch.IntakeFormId)

	if patch.Status != nil {
		next := models.Status(*patch.Status)
		if err := models.ValidateTransition(req.Status, next); err != nil {
			return nil, err
		}
		req.Status = next
		changed["status"] = next
	}
	if patch.Priority != nil {
		p := models.Priority(*patch.Priority)
		if !models.ValidPriority(p) {
			return nil, &apperrors.Validation{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", p)}
		}
		req.Priority = p
		changed["priority"] = p
	}
	if patch.ExecutorId != nil {
		executorID, err := s.resolveExecutor(*patch.ExecutorId)
		if err != nil {
			return nil, err
		}
		req.ExecutorId = executorID
		req.Executor = nil
		changed["executor_id"] = executorID
	}

	notifyAfter := false
	if patch.DueDate != nil {
		due, err := parseDue(*patch.DueDate)
		if err != nil {
			return nil, err
		}
		req.DueDate = due
		changed["due_date"] = due

		next := control.ComputeWithWindow(due, s.now(), s.Window)
		if next != req.ControlStatus {
			req.ControlStatus = next
			changed["control_status"] = next
			notifyAfter = next == control.StatusApproaching || next == control.StatusOverdue
		}
	}

	var savedFiles []string
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if len(changed) > 0 {
			if err := (store.Requests{DB: tx}).Updates(id, changed); err != nil {
				return fmt.Errorf("persist update: %w", err)
			}
		}
		paths, err := s.saveAttachments(tx, id, files)
		savedFiles = paths
		if err != nil {
			return err
		}
		if err := s.Audit.Record(tx, audit.Event{
			RequestId: id,
			Action:    audit.ActionUpdate,
			Actor:     actor,
			Payload:   map[string]any{"fields": columnNames(changed)},
		}); err != nil {
			log.Printf("lifecycle: audit for request %s failed: %v", id, err)
		}
		return nil
	})
	if err != nil {
		s.discardFiles(savedFiles)
		return nil, err
	}

	if notifyAfter {
		s.Notify.Dispatch(req)
	}
	return requests.ByID(id)
}

// Get loads one request, lazily reconciling its control status first.
func (s *Service) Get(id string) (*models.Request, error) {
	req, err := store.Requests{DB: s.DB}.ByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureControlStatus(req); err != nil {
		log.Printf("lifecycle: reconcile on read of %s failed: %v", id, err)
	}
	return req, nil
}

// ListResult is one page of requests plus the unpaged total.
type ListResult struct {
	Rows  []models.Request `json:"rows"`
	Total int64            `json:"total"`
}

// List delegates filtered retrieval to the store and lazily reconciles every
// returned row before it is shaped for serialization.
func (s *Service) List(filters store.ListFilters) (*ListResult, error) {
	rows, total, err := store.Requests{DB: s.DB}.List(filters)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if err := s.EnsureControlStatus(&rows[i]); err != nil {
			log.Printf("lifecycle: reconcile on list of %s failed: %v", rows[i].Id, err)
		}
	}
	return &ListResult{Rows: rows, Total: total}, nil
}

// EnsureControlStatus recomputes the cached control status and persists it if
// stale. Only a worsening (entering approaching or overdue) triggers a
// notification; an improvement after a deadline push-out stays silent.
// Idempotent, cheap, safe to call from every read path.
func (s *Service) EnsureControlStatus(req *models.Request) error {
	if req.Status.Terminal() {
		return nil
	}
	next := control.ComputeWithWindow(req.DueDate, s.now(), s.Window)
	if next == req.ControlStatus {
		return nil
	}
	req.ControlStatus = next
	if err := (store.Requests{DB: s.DB}).SetControlStatus(req.Id, next); err != nil {
		return fmt.Errorf("persist control status: %w", err)
	}
	if next == control.StatusApproaching || next == control.StatusOverdue {
		s.Notify.Dispatch(req)
	}
	return nil
}

// RefreshControlStatuses is one reconciliation sweep over all open requests.
// A failure on one request is logged and never aborts the rest.
func (s *Service) RefreshControlStatuses() {
	err := store.Requests{DB: s.DB}.ForEachOpen(func(req *models.Request) error {
		if err := s.EnsureControlStatus(req); err != nil {
			log.Printf("lifecycle: reconcile of %s failed: %v", req.Id, err)
		}
		return nil
	})
	if err != nil {
		log.Printf("lifecycle: reconciliation sweep failed: %v", err)
	}
}

// RunDeadlineRefreshOnce is one full pass of the deadline job: reconcile
// every open request, then run both notification sweeps. Called synchronously
// at startup and from the recurring schedule; running it twice in a row sends
// nothing twice (the ledger, not this job, guarantees that).
func (s *Service) RunDeadlineRefreshOnce() {
	s.RefreshControlStatuses()
	s.Notify.DueSoonSweep()
	s.Notify.OverdueSweep()
}

// RemoveFromControl takes a request off deadline monitoring. Preconditions:
// the request exists, is not already removed, and is not completed/archived.
func (s *Service) RemoveFromControl(id, note string, actor models.Actor) (*models.Request, error) {
	requests := store.Requests{DB: s.DB}
	req, err := requests.ByID(id)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateRemoval(req.Status); err != nil {
		return nil, err
	}

	previous := req.Status
	now := s.now()
	note = strings.TrimSpace(note)

	text := "Removed from control"
	if note != "" {
		text += " - " + note
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := (store.Requests{DB: tx}).Updates(id, map[string]any{
			"status":                          models.StatusRemoved,
			"control_status":                  control.StatusNone,
			"removed_from_control_at":         now,
			"removed_from_control_by":         actor.Name,
			"removed_from_control_by_user_id": actor.UserId,
		}); err != nil {
			return fmt.Errorf("persist removal: %w", err)
		}
		if err := s.Audit.Record(tx, audit.Event{
			RequestId: id,
			Action:    audit.ActionRemoveFromControl,
			Actor:     actor,
			Payload: map[string]any{
				"previous_status": previous,
				"note":            note,
			},
			Note: text,
		}); err != nil {
			log.Printf("lifecycle: audit for request %s failed: %v", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return requests.ByID(id)
}

type refSet struct {
	requestType *uint
	topic       *uint
	socialGroup *uint
	intakeForm  *uint
}

func (s *Service) validateRefs(lookups store.Lookups, refs refSet) error {
	checks := []struct {
		kind string
		id   *uint
	}{
		{store.RefRequestType, refs.requestType},
		{store.RefTopic, refs.topic},
		{store.RefSocialGroup, refs.socialGroup},
		{store.RefIntakeForm, refs.intakeForm},
	}
	for _, c := range checks {
		if c.id == nil {
			continue
		}
		if err := lookups.ValidateReference(c.kind, *c.id); err != nil {
			return err
		}
	}
	return nil
}

// resolveExecutor maps "" to no executor and otherwise requires an existing
// active account.
func (s *Service) resolveExecutor(id string) (*string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	u, err := store.Users{DB: s.DB}.ByID(id)
	if err != nil {
		return nil, &apperrors.Validation{Field: "executor_id", Reason: "unknown executor"}
	}
	if !u.Active {
		return nil, &apperrors.Validation{Field: "executor_id", Reason: "executor is deactivated"}
	}
	return &u.Id, nil
}

// saveAttachments streams each upload to disk and inserts its metadata row.
// It returns the paths written so far even on failure, so the caller can
// delete them if the enclosing transaction rolls back.
func (s *Service) saveAttachments(tx *gorm.DB, requestID string, files []Upload) ([]string, error) {
	var paths []string
	for _, f := range files {
		r, err := f.Open()
		if err != nil {
			return paths, fmt.Errorf("open upload %s: %w", f.FileName, err)
		}
		att, err := s.Files.Save(requestID, f.FileName, f.ContentType, r)
		r.Close()
		if err != nil {
			return paths, err
		}
		paths = append(paths, att.StoragePath)
		if err := tx.Create(&att).Error; err != nil {
			return paths, fmt.Errorf("persist attachment %s: %w", f.FileName, err)
		}
	}
	return paths, nil
}

// discardFiles removes attachment files whose metadata rows were rolled back.
func (s *Service) discardFiles(paths []string) {
	for _, p := range paths {
		if err := s.Files.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("lifecycle: orphaned attachment file %s: %v", p, err)
		}
	}
}

// parseDue accepts RFC3339 or a bare date; "" clears the deadline. A value
// that parses to the zero time is treated as unset.
func parseDue(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			if t.IsZero() {
				return nil, nil
			}
			return &t, nil
		}
	}
	return nil, &apperrors.Validation{Field: "due_date", Reason: fmt.Sprintf("cannot parse %q as a date", raw)}
}

func columnNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

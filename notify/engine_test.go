package notify_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"civicdesk-backend/control"
	"civicdesk-backend/database"
	"civicdesk-backend/models"
	"civicdesk-backend/notify"
)

type mailRecorder struct {
	mu     sync.Mutex
	sent   []string
	failTo map[string]bool
}

func (m *mailRecorder) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[to] {
		return fmt.Errorf("smtp: cannot reach %s", to)
	}
	m.sent = append(m.sent, to)
	return nil
}

func (m *mailRecorder) sentTo(to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s == to {
			n++
		}
	}
	return n
}

type env struct {
	db       *gorm.DB
	eng      *notify.Engine
	mail     *mailRecorder
	now      time.Time
	executor models.User
	super1   models.User
	super2   models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.MigrateAll(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	e := &env{
		db:   db,
		mail: &mailRecorder{failTo: map[string]bool{}},
		now:  time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	e.executor = models.User{FirstName: "Erik", LastName: "Vos", Email: "erik@city.test", Role: models.RoleExecutor, Active: true}
	e.super1 = models.User{FirstName: "Sara", LastName: "Lim", Email: "sara@city.test", Role: models.RoleSupervisor, Active: true}
	e.super2 = models.User{FirstName: "Ada", LastName: "Kern", Email: "ada@city.test", Role: models.RoleAdmin, Active: true}
	for _, u := range []*models.User{&e.executor, &e.super1, &e.super2} {
		u.SetPassword("secret-password")
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	e.eng = notify.New(db, e.mail)
	e.eng.Window = 48 * time.Hour
	e.eng.Now = func() time.Time { return e.now }
	return e
}

// seedRequest inserts a request directly; the engine tests exercise the
// sweeps, not the lifecycle service.
func (e *env) seedRequest(t *testing.T, status models.Status, due time.Time, executorID *string) *models.Request {
	t.Helper()
	req := &models.Request{
		FullName:      "Maria Petrova",
		TypeId:        1,
		TopicId:       1,
		Status:        status,
		Priority:      models.PriorityMedium,
		ExecutorId:    executorID,
		DueDate:       &due,
		ControlStatus: control.ComputeWithWindow(&due, e.now, e.eng.Window),
	}
	if err := e.db.Create(req).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return req
}

func (e *env) ledgerCount(t *testing.T, requestID, kind string) int64 {
	t.Helper()
	var n int64
	err := e.db.Model(&models.NotificationEntry{}).
		Where("request_id = ? AND notification_type = ?", requestID, kind).
		Count(&n).Error
	if err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	return n
}

func TestDueSoonSweepSendsOnce(t *testing.T) {
	e := newEnv(t)
	req := e.seedRequest(t, models.StatusInProgress, e.now.Add(3*time.Hour), &e.executor.Id)

	e.eng.DueSoonSweep()
	e.eng.DueSoonSweep()

	if got := e.mail.sentTo(e.executor.Email); got != 1 {
		t.Errorf("executor mails = %d, want 1", got)
	}
	if got := e.ledgerCount(t, req.Id, models.NotificationDueSoon); got != 1 {
		t.Errorf("ledger entries = %d, want 1", got)
	}
}

func TestDueSoonSweepSkipsUnassigned(t *testing.T) {
	e := newEnv(t)
	req := e.seedRequest(t, models.StatusNew, e.now.Add(3*time.Hour), nil)

	e.eng.DueSoonSweep()

	if got := e.mail.sentTo(e.executor.Email); got != 0 {
		t.Errorf("mails = %d, want 0", got)
	}
	if got := e.ledgerCount(t, req.Id, models.NotificationDueSoon); got != 0 {
		t.Errorf("ledger entries = %d, want 0", got)
	}
}

func TestOverdueSweepFansOut(t *testing.T) {
	e := newEnv(t)
	req := e.seedRequest(t, models.StatusInProgress, e.now.Add(-2*time.Hour), &e.executor.Id)

	e.eng.OverdueSweep()
	e.eng.OverdueSweep()

	if got := e.mail.sentTo(e.super1.Email); got != 1 {
		t.Errorf("supervisor mails = %d, want 1", got)
	}
	if got := e.mail.sentTo(e.super2.Email); got != 1 {
		t.Errorf("admin mails = %d, want 1", got)
	}
	if got := e.mail.sentTo(e.executor.Email); got != 0 {
		t.Errorf("executor mails = %d, want 0", got)
	}
	if got := e.ledgerCount(t, req.Id, models.NotificationOverdue); got != 2 {
		t.Errorf("ledger entries = %d, want 2", got)
	}
}

func TestOverdueSweepSkipsDeactivatedRecipients(t *testing.T) {
	e := newEnv(t)
	if err := e.db.Model(&e.super2).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	req := e.seedRequest(t, models.StatusInProgress, e.now.Add(-2*time.Hour), nil)

	e.eng.OverdueSweep()

	if got := e.mail.sentTo(e.super1.Email); got != 1 {
		t.Errorf("supervisor mails = %d, want 1", got)
	}
	if got := e.mail.sentTo(e.super2.Email); got != 0 {
		t.Errorf("deactivated admin mails = %d, want 0", got)
	}
	if got := e.ledgerCount(t, req.Id, models.NotificationOverdue); got != 1 {
		t.Errorf("ledger entries = %d, want 1", got)
	}
}

func TestSweepsExcludeTerminalRequests(t *testing.T) {
	e := newEnv(t)
	past := e.seedRequest(t, models.StatusCompleted, e.now.Add(-time.Hour), &e.executor.Id)
	soon := e.seedRequest(t, models.StatusCancelled, e.now.Add(time.Hour), &e.executor.Id)

	e.eng.DueSoonSweep()
	e.eng.OverdueSweep()

	for _, req := range []*models.Request{past, soon} {
		var n int64
		e.db.Model(&models.NotificationEntry{}).Where("request_id = ?", req.Id).Count(&n)
		if n != 0 {
			t.Errorf("terminal request %s got %d ledger entries", req.Id, n)
		}
	}
	if len(e.mail.sent) != 0 {
		t.Errorf("sends = %d, want 0", len(e.mail.sent))
	}
}

func TestDispatchFreezesOnTerminal(t *testing.T) {
	e := newEnv(t)
	req := e.seedRequest(t, models.StatusRemoved, e.now.Add(-time.Hour), &e.executor.Id)
	req.ControlStatus = control.StatusOverdue

	e.eng.Dispatch(req)

	if len(e.mail.sent) != 0 {
		t.Errorf("sends = %d, want 0", len(e.mail.sent))
	}
}

func TestSendFailureLeavesNoLedgerEntry(t *testing.T) {
	e := newEnv(t)
	e.mail.failTo[e.super1.Email] = true
	req := e.seedRequest(t, models.StatusInProgress, e.now.Add(-2*time.Hour), nil)

	e.eng.OverdueSweep()

	// The failed recipient has no entry; the healthy one is unaffected.
	if got := e.mail.sentTo(e.super2.Email); got != 1 {
		t.Errorf("admin mails = %d, want 1", got)
	}
	if got := e.ledgerCount(t, req.Id, models.NotificationOverdue); got != 1 {
		t.Errorf("ledger entries = %d, want 1", got)
	}

	// Once delivery recovers, the next sweep retries only the failed recipient.
	e.mail.failTo[e.super1.Email] = false
	e.eng.OverdueSweep()

	if got := e.mail.sentTo(e.super1.Email); got != 1 {
		t.Errorf("supervisor mails = %d, want 1", got)
	}
	if got := e.mail.sentTo(e.super2.Email); got != 1 {
		t.Errorf("admin mails = %d, want 1 (no re-send)", got)
	}
	if got := e.ledgerCount(t, req.Id, models.NotificationOverdue); got != 2 {
		t.Errorf("ledger entries = %d, want 2", got)
	}
}

func TestDueSoonIgnoresDatesOutsideWindow(t *testing.T) {
	e := newEnv(t)
	e.seedRequest(t, models.StatusNew, e.now.Add(30*24*time.Hour), &e.executor.Id)
	e.seedRequest(t, models.StatusNew, e.now.Add(-time.Hour), &e.executor.Id)

	e.eng.DueSoonSweep()

	if got := e.mail.sentTo(e.executor.Email); got != 0 {
		t.Errorf("mails = %d, want 0 (far-future and past are not due-soon)", got)
	}
}

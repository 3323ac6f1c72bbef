package notify

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"civicdesk-backend/control"
	"civicdesk-backend/models"
	"civicdesk-backend/store"
)

// Engine finds requests that newly crossed a deadline threshold, renders and
// sends the warning mail, and records a ledger entry so later sweeps stay
// silent. Dedup keys: (request, due_soon) and (request, overdue, recipient).
type Engine struct {
	DB     *gorm.DB
	Mailer Mailer
	Window time.Duration
	Now    func() time.Time
}

func New(db *gorm.DB, mailer Mailer) *Engine {
	return &Engine{
		DB:     db,
		Mailer: mailer,
		Window: control.ApproachingWindow(),
		Now:    time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// DueSoonSweep warns the executor of every open request whose deadline falls
// inside the warning window and that was never warned before. Requests with
// no assigned executor are skipped.
func (e *Engine) DueSoonSweep() {
	rows, err := store.Requests{DB: e.DB}.DueSoonCandidates(e.now(), e.Window)
	if err != nil {
		log.Printf("notify: due-soon candidate query failed: %v", err)
		return
	}
	for i := range rows {
		if err := e.notifyDueSoon(&rows[i]); err != nil {
			log.Printf("notify: due-soon for request %s failed: %v", rows[i].Id, err)
		}
	}
}

// OverdueSweep escalates every open request whose deadline is past to all
// active supervisors and admins, one mail and one ledger entry per recipient.
// A failure for one recipient never blocks the others.
func (e *Engine) OverdueSweep() {
	rows, err := store.Requests{DB: e.DB}.OverdueCandidates(e.now())
	if err != nil {
		log.Printf("notify: overdue candidate query failed: %v", err)
		return
	}
	for i := range rows {
		e.notifyOverdue(&rows[i])
	}
}

// Dispatch delivers the warning matching the request's current control
// status. Called by the lifecycle service when a create/update/reconcile
// moves a request into the approaching or overdue band; the ledger keeps it
// idempotent against the sweeps.
func (e *Engine) Dispatch(req *models.Request) {
	if req.Status.Terminal() {
		return
	}
	switch req.ControlStatus {
	case control.StatusApproaching:
		if err := e.notifyDueSoon(req); err != nil {
			log.Printf("notify: due-soon for request %s failed: %v", req.Id, err)
		}
	case control.StatusOverdue:
		e.notifyOverdue(req)
	}
}

// notifyDueSoon sends at most one warning per request, to its executor. The
// ledger insert and the send share one transaction: a failed send rolls the
// entry back so the next sweep retries.
func (e *Engine) notifyDueSoon(req *models.Request) error {
	if req.ExecutorId == nil || *req.ExecutorId == "" {
		return nil
	}
	executor := req.Executor
	if executor == nil {
		u, err := store.Users{DB: e.DB}.ByID(*req.ExecutorId)
		if err != nil {
			return fmt.Errorf("load executor: %w", err)
		}
		executor = u
	}

	return e.DB.Transaction(func(tx *gorm.DB) error {
		ledger := store.Ledger{DB: tx}
		sent, err := ledger.HasDueSoon(req.Id)
		if err != nil {
			return err
		}
		if sent {
			return nil
		}
		inserted, err := ledger.RecordDueSoon(req.Id, executor.Id)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		subject, body := renderDueSoon(req)
		return e.Mailer.Send(executor.Email, subject, body)
	})
}

// notifyOverdue fans out to every active supervisor/admin, once each. Per
// recipient the ledger insert and the send share one transaction, so a
// failure leaves no entry and only that recipient is retried later.
func (e *Engine) notifyOverdue(req *models.Request) {
	recipients, err := store.Users{DB: e.DB}.ActiveByRoles(models.RoleSupervisor, models.RoleAdmin)
	if err != nil {
		log.Printf("notify: recipient query failed: %v", err)
		return
	}
	for _, rcpt := range recipients {
		err := e.DB.Transaction(func(tx *gorm.DB) error {
			ledger := store.Ledger{DB: tx}
			sent, err := ledger.HasOverdue(req.Id, rcpt.Id)
			if err != nil {
				return err
			}
			if sent {
				return nil
			}
			inserted, err := ledger.RecordOverdue(req.Id, rcpt.Id)
			if err != nil {
				return err
			}
			if !inserted {
				return nil
			}
			subject, body := renderOverdue(req)
			return e.Mailer.Send(rcpt.Email, subject, body)
		})
		if err != nil {
			log.Printf("notify: overdue for request %s to %s failed: %v", req.Id, rcpt.Email, err)
		}
	}
}

func renderDueSoon(req *models.Request) (subject, body string) {
	subject = fmt.Sprintf("Request %s is due soon", req.Id)
	body = fmt.Sprintf(
		"The request from %s is due on %s.\n\nDescription: %s\nTerritory: %s\n\nPlease make sure it is resolved in time.",
		req.FullName, formatDue(req.DueDate), req.Description, req.Territory)
	return subject, body
}

func renderOverdue(req *models.Request) (subject, body string) {
	subject = fmt.Sprintf("Request %s is overdue", req.Id)
	body = fmt.Sprintf(
		"The request from %s was due on %s and is still open (status: %s).\n\nDescription: %s\nTerritory: %s",
		req.FullName, formatDue(req.DueDate), req.Status, req.Description, req.Territory)
	return subject, body
}

func formatDue(due *time.Time) string {
	if due == nil {
		return "unknown"
	}
	return due.Format("2006-01-02 15:04")
}

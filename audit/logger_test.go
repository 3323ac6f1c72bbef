package audit_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"civicdesk-backend/audit"
	"civicdesk-backend/database"
	"civicdesk-backend/models"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
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
	return db
}

func TestRecordWritesBothSinks(t *testing.T) {
	db := openDB(t)
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	l := audit.Logger{Now: func() time.Time { return now }}

	err := l.Record(db, audit.Event{
		RequestId: "req-1",
		Action:    audit.ActionRemoveFromControl,
		Actor:     models.Actor{UserId: "u-1", Name: "Sara Lim"},
		Payload:   map[string]any{"previous_status": "paused", "note": "dup"},
		Note:      "Removed from control - dup",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	var entry models.AuditEntry
	if err := db.First(&entry, "request_id = ?", "req-1").Error; err != nil {
		t.Fatalf("load audit: %v", err)
	}
	if entry.Action != audit.ActionRemoveFromControl || entry.ActorName != "Sara Lim" {
		t.Errorf("unexpected audit entry: %+v", entry)
	}
	var payload map[string]any
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["previous_status"] != "paused" {
		t.Errorf("previous_status = %v", payload["previous_status"])
	}

	var proc models.ProceedingEntry
	if err := db.First(&proc, "request_id = ?", "req-1").Error; err != nil {
		t.Fatalf("load proceeding: %v", err)
	}
	if proc.Text != "Removed from control - dup" {
		t.Errorf("proceeding text = %q", proc.Text)
	}
	if !proc.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("sink timestamps differ: %v vs %v", proc.CreatedAt, entry.CreatedAt)
	}
}

func TestRecordDefaultNotes(t *testing.T) {
	db := openDB(t)
	l := audit.Logger{}

	for action, want := range map[string]string{
		audit.ActionCreate: "Request registered",
		audit.ActionUpdate: "Request updated",
	} {
		if err := l.Record(db, audit.Event{RequestId: "req-" + action, Action: action}); err != nil {
			t.Fatalf("record %s: %v", action, err)
		}
		var proc models.ProceedingEntry
		if err := db.First(&proc, "request_id = ?", "req-"+action).Error; err != nil {
			t.Fatalf("load proceeding: %v", err)
		}
		if proc.Text != want {
			t.Errorf("%s note = %q, want %q", action, proc.Text, want)
		}
	}
}

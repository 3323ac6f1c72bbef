package middlewares

import (
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"civicdesk-backend/database"
	"civicdesk-backend/models"
)

func idempotentApp(t *testing.T) (*fiber.App, *atomic.Int32) {
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
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	var runs atomic.Int32
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("actor", models.Actor{UserId: "u-1", Email: "sara@city.test"})
		return c.Next()
	})
	app.Post("/requests", Idempotency(), func(c *fiber.Ctx) error {
		n := runs.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": fmt.Sprintf("req-%d", n)})
	})
	return app, &runs
}

func postWithKey(t *testing.T, app *fiber.App, key, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/requests", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(blob)
}

func TestReplayedKeyRunsHandlerOnce(t *testing.T) {
	app, runs := idempotentApp(t)

	status1, body1 := postWithKey(t, app, "key-1", `{"full_name":"Maria"}`)
	if status1 != fiber.StatusCreated {
		t.Fatalf("first status = %d, want 201", status1)
	}

	// A retried intake with the same key must replay the stored response,
	// not register the request again.
	status2, body2 := postWithKey(t, app, "key-1", `{"full_name":"Maria"}`)
	if got := runs.Load(); got != 1 {
		t.Fatalf("handler ran %d times for one idempotency key, want 1", got)
	}
	if status2 != status1 || body2 != body1 {
		t.Errorf("replay = (%d, %s), want stored (%d, %s)", status2, body2, status1, body1)
	}
}

func TestKeyReuseWithDifferentBodyConflicts(t *testing.T) {
	app, runs := idempotentApp(t)

	if status, _ := postWithKey(t, app, "key-1", `{"full_name":"Maria"}`); status != fiber.StatusCreated {
		t.Fatalf("first status = %d, want 201", status)
	}
	status, _ := postWithKey(t, app, "key-1", `{"full_name":"Ivan"}`)
	if status != fiber.StatusConflict {
		t.Errorf("reused key with new body: status = %d, want 409", status)
	}
	if got := runs.Load(); got != 1 {
		t.Errorf("handler ran %d times, want 1", got)
	}
}

func TestRequestsWithoutKeyAllRun(t *testing.T) {
	app, runs := idempotentApp(t)

	postWithKey(t, app, "", `{"full_name":"Maria"}`)
	postWithKey(t, app, "", `{"full_name":"Maria"}`)
	if got := runs.Load(); got != 2 {
		t.Errorf("handler ran %d times without keys, want 2", got)
	}
}

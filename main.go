package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"civicdesk-backend/controllers"
	"civicdesk-backend/database"
	"civicdesk-backend/lifecycle"
	"civicdesk-backend/middlewares"
	"civicdesk-backend/notify"
	"civicdesk-backend/routes"
	"civicdesk-backend/scheduler"
	"civicdesk-backend/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	// ---- Database
	database.Connect()
	database.AutoMigrate()
	database.Seed(database.DB)

	// ---- Domain services
	files := storage.Dir{Root: envString("ATTACHMENT_DIR", "./data/attachments")}
	engine := notify.New(database.DB, notify.SMTPFromEnv())
	service := lifecycle.New(database.DB, files, engine)

	// ---- Deadline reconciliation: one synchronous run before the listener
	// starts (correcting drift from downtime), then the recurring sweep.
	sweep := scheduler.New(scheduler.SweepInterval(), service.RunDeadlineRefreshOnce)
	sweep.Start()
	defer sweep.Stop()

	// ---- Limits (configurable via env)
	bodyLimitBytes := envInt("BODY_LIMIT_BYTES", 0)
	if bodyLimitBytes <= 0 {
		bodyLimitBytes = envInt("BODY_LIMIT_MB", 16) * 1024 * 1024
	}

	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler,
		BodyLimit:    bodyLimitBytes,
	})

	// ---- CORS
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	// ---- Global rate limiter
	rlMax := envInt("RATE_LIMIT_MAX", 60)
	rlWindow := time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
	app.Use(limiter.New(limiter.Config{
		Max:        rlMax,
		Expiration: rlWindow,
	}))

	// ---- Routes
	routes.Register(app, &controllers.RequestHandler{Service: service})

	// ---- Start
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Println("API server starting on port", port)
	if err := app.Listen(":" + port); err != nil {
		panic(err)
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

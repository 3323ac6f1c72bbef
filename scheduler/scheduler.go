package scheduler

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepInterval between deadline reconciliation runs; override with
// CONTROL_SWEEP_MINUTES.
const DefaultSweepInterval = 10 * time.Minute

// SweepInterval returns the configured reconciliation interval.
func SweepInterval() time.Duration {
	if v := os.Getenv("CONTROL_SWEEP_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return DefaultSweepInterval
}

// Runner owns the recurring deadline sweep. One Runner is constructed by the
// composition root and held for the process lifetime; Start is idempotent so
// the job can never be scheduled twice, and the cron chain skips a run while
// the previous one is still going.
type Runner struct {
	interval time.Duration
	job      func()

	mu      sync.Mutex
	started bool
	cron    *cron.Cron
}

func New(interval time.Duration, job func()) *Runner {
	return &Runner{interval: interval, job: job}
}

// Start runs the job once synchronously (correcting drift accumulated while
// the process was down) and then schedules it on the fixed interval. Calling
// Start again is a no-op.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	r.job()

	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))
	if _, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), r.job); err != nil {
		log.Printf("scheduler: could not schedule sweep: %v", err)
		return
	}
	r.cron.Start()
}

// Stop halts the recurring schedule. A sweep already underway finishes; its
// remaining work is picked up by the next process start.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		r.cron.Stop()
	}
}

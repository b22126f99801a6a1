/*
scheduler.go - Automated accrual and carryover scheduler

PURPOSE:
  Periodically runs the batch engines: scheduled accruals on every
  tick, and carryover plus year-end top-up once per calendar year
  boundary.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Accrual-due checks inside the engine keep ticks idempotent: a tick
    that finds nothing due mutates nothing
  - The year-boundary work is also idempotent (CarryoverApplied guard,
    shortfall-based top-up), so the first tick always runs it: a
    process restarted after January 1st recovers the carryover instead
    of skipping it, and a restart straddling the boundary cannot
    double-carry
  - Batch errors are logged and swallowed; the next tick retries

CONFIGURATION:
  - CheckInterval: How often to tick (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewScheduler(accruals, carryovers)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: manual triggers for the same batch runs
  - leave/accrual.go, leave/carryover.go: the engines
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/leave-engine/leave"
)

// Scheduler drives periodic accrual processing and the year-boundary
// carryover run.
type Scheduler struct {
	Accruals      *leave.AccrualEngine
	Carryovers    *leave.CarryoverProcessor
	CheckInterval time.Duration
	Enabled       bool

	lastYear int
	ticker   *time.Ticker
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewScheduler creates a new scheduler.
func NewScheduler(accruals *leave.AccrualEngine, carryovers *leave.CarryoverProcessor) *Scheduler {
	return &Scheduler{
		Accruals:      accruals,
		Carryovers:    carryovers,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	// lastYear stays zero so the first tick runs the year-boundary work
	// unconditionally; both runs are idempotent, and skipping them here
	// would lose the boundary across a restart.
	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started with check interval: %v", s.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.tick()

	for {
		select {
		case <-s.ticker.C:
			s.tick()
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	now := time.Now().UTC()

	if year := now.Year(); year != s.lastYear {
		s.processYearBoundary(ctx, year)
		s.lastYear = year
	}

	result, err := s.Accruals.ProcessScheduledAccruals(ctx)
	if err != nil {
		log.Printf("[Scheduler] Accrual run failed: %v", err)
		return
	}
	if result.ProcessedCount > 0 {
		log.Printf("[Scheduler] Accrued %s days across %d policies", result.TotalAccrued, result.ProcessedCount)
	}
	for _, e := range result.Errors {
		log.Printf("[Scheduler] Accrual error: %s", e)
	}
}

// processYearBoundary finishes the old year and opens the new one:
// year-end top-up for annual policies, then carryover into newYear.
func (s *Scheduler) processYearBoundary(ctx context.Context, newYear int) {
	log.Printf("[Scheduler] Year boundary: %d -> %d", newYear-1, newYear)

	if result, err := s.Accruals.ProcessYearEndAccruals(ctx, newYear-1); err != nil {
		log.Printf("[Scheduler] Year-end accrual run failed: %v", err)
	} else {
		log.Printf("[Scheduler] Year-end top-up: %s days across %d policies (%d errors)",
			result.TotalAccrued, result.ProcessedCount, len(result.Errors))
	}

	if result, err := s.Carryovers.ProcessCarryovers(ctx, newYear); err != nil {
		log.Printf("[Scheduler] Carryover run failed: %v", err)
	} else {
		log.Printf("[Scheduler] Carryover: carried %s, expired %s across %d balances (%d errors)",
			result.TotalCarried, result.TotalExpired, result.ProcessedCount, len(result.Errors))
	}
}

/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Wire the leave services (catalog, ledger, engines, workflow)
  4. Optionally seed the default catalog
  5. Start the accrual scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: leave.db)
           Use ":memory:" for an in-memory database
  -seed    Seed the default leave type and policy catalog on startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # First run: seed the default catalog
  ./server -db="./data/leave.db" -seed

  # Run with in-memory database on another port
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// logSink logs workflow notifications instead of delivering them. A
// real deployment plugs in email or chat delivery here.
type logSink struct{}

func (logSink) Notify(_ context.Context, recipients []string, event string, payload map[string]any) error {
	log.Printf("[Notify] %s -> %v: %v", event, recipients, payload)
	return nil
}

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "leave.db", "SQLite database path")
	seed := flag.Bool("seed", false, "seed the default leave catalog on startup")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire the leave services
	clock := leave.SystemClock{}
	catalog := leave.NewCatalog(store, clock)
	assignments := leave.NewAssignments(store, store, clock)
	ledger := leave.NewLedger(store, clock)
	accruals := leave.NewAccrualEngine(ledger, assignments, store, clock)
	carryovers := leave.NewCarryoverProcessor(ledger, assignments, store, clock)
	validation := leave.NewValidationEngine(store, ledger, assignments, store, clock)
	workflow := leave.NewRequestWorkflow(store, ledger, validation, store, store, logSink{}, clock)

	if *seed {
		if err := factory.Seed(context.Background(), catalog, factory.DefaultCatalog()); err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
		log.Println("Seeded default leave catalog")
	}

	handler := &api.Handler{
		Catalog:     catalog,
		Assignments: assignments,
		Ledger:      ledger,
		Accruals:    accruals,
		Carryovers:  carryovers,
		Workflow:    workflow,
		Directory:   store,
		Employees:   store,
	}

	// Background accrual processing
	scheduler := api.NewScheduler(accruals, carryovers)
	scheduler.Start()
	defer scheduler.Stop()

	// Create router and server
	router := api.NewRouter(handler)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

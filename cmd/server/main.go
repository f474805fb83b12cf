/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Deal Calculation Engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store (audit log + rule table snapshots)
  3. Load the jurisdiction rule table (file or seeded default)
  4. Wire the rate cache, audit log, and API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080)
  -db         SQLite database path (default: deals.db)
              Use ":memory:" for in-memory database
  -rules      Path to a JSON rule table; empty loads the seeded
              default table
  -cache-ttl  Jurisdiction lookup cache TTL (default: 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database and a production rule table
  ./server -db="./data/deals.db" -rules="./rules/2026-q1.json"

  # Run with in-memory database and the seeded default table
  ./server -db=":memory:"

ENVIRONMENT:
  No environment variables currently. All config via flags.
  Future: DATABASE_URL, PORT, LOG_LEVEL

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - factory/rules.go: Rule table parsing
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/deal-engine/api"
	"github.com/warp/deal-engine/factory"
	"github.com/warp/deal-engine/jurisdiction"
	"github.com/warp/deal-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "deals.db", "SQLite database path")
	rulesPath := flag.String("rules", "", "JSON rule table path (empty loads the seeded default)")
	cacheTTL := flag.Duration("cache-ttl", time.Hour, "jurisdiction lookup cache TTL")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Load the rule table
	tableJSON := factory.DefaultRuleTableJSON()
	if *rulesPath != "" {
		data, err := os.ReadFile(*rulesPath)
		if err != nil {
			log.Fatalf("Failed to read rule table %s: %v", *rulesPath, err)
		}
		tableJSON = string(data)
	}

	table, err := factory.BuildResolver(tableJSON)
	if err != nil {
		log.Fatalf("Failed to load rule table: %v", err)
	}
	log.Printf("Loaded rule table with %d jurisdictions", table.Len())

	// Persist the table snapshot so audited calculations can be replayed
	// against the rules version they cite.
	var parsed factory.RuleTableJSON
	if err := json.Unmarshal([]byte(tableJSON), &parsed); err == nil && parsed.RulesVersion != "" {
		if err := store.SaveRuleTable(context.Background(), parsed.RulesVersion, tableJSON); err != nil {
			log.Printf("Warning: Failed to persist rule table snapshot: %v", err)
		}
	}

	// Wire the cache and handler
	cache := jurisdiction.NewRateCache(table, *cacheTTL)
	handler := api.NewHandler(table, cache, store, store)

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
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

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openlims/limsgo/internal/config"
	"github.com/openlims/limsgo/internal/database"
	"github.com/openlims/limsgo/internal/events"
	"github.com/openlims/limsgo/internal/handlers"
	"github.com/openlims/limsgo/internal/models"
	"github.com/openlims/limsgo/internal/services/rbac"
	"github.com/openlims/limsgo/internal/services/workflow"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema (Critical for Zero-Config)
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.Role{},
		&models.Permission{},

		// Sample registry
		&models.SampleType{},
		&models.SampleSource{},
		&models.StorageLocation{},
		&models.Sample{},
		&models.ChainOfCustodyEntry{},

		// Testing
		&models.TestDefinition{},
		&models.Experiment{},
		&models.SampleTestRun{},

		// Inventory
		&models.Supplier{},
		&models.Reagent{},
		&models.ReagentOrder{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Seed built-in roles and permissions
	if err := rbac.SeedBaseline(db.DB); err != nil {
		log.Fatalf("Failed to seed roles: %v", err)
	}
	log.Println("✅ Baseline roles seeded")

	// 5. Live event hub for dashboard clients
	hub := events.NewHub()
	go hub.Run()

	// 6. Workflow engine
	resolver := rbac.NewResolver(db.DB)
	wf := workflow.NewService(db.DB, resolver)
	wf.SetPublisher(hub)

	// 7. Set up HTTP router
	router := handlers.NewRouter(db, cfg, resolver, wf, hub)

	// 8. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.Handler(),
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on port %s [env: %s]\n", cfg.Port, cfg.NodeEnv)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	// Create context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}

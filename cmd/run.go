package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"edufund/config"
	"edufund/database"
	"edufund/events"
	"edufund/repository"
	"edufund/scheduler"
	"edufund/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting education fund engine...")

	// Load configuration
	cfg := config.Get()

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid time zone %q: %w", cfg.TimeZone, err)
	}
	clock := service.NewClock(loc)

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize the execution engine and scheduler
	executor := service.NewTopUpExecutor(uowFactory, clock, cfg.ExecutionWorkers)
	topUpScheduler := scheduler.New(uowFactory, executor, clock, cfg.CatchUpCronSpec)

	// Audit log for everything the engine does to balances and rules
	registerAuditSubscribers(eventBus)

	// Catch-up scan re-arms every rule still scheduled in the database
	log.Println("Starting top-up scheduler...")
	if err := topUpScheduler.Start(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Wait for context cancellation
	log.Printf("Engine is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down engine...")
	topUpScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"signal-engine/internal/app"
)

func main() {
	// Create application instance
	application, err := app.NewApp(".")
	if err != nil {
		log.Fatalf("failed to create application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize application (DB, NATS, etc.)
	if err := application.Init(ctx); err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	// Run application
	if err := application.Run(ctx); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

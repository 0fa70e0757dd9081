package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CerebriumAI/live-stream-shopper/config"
	"github.com/CerebriumAI/live-stream-shopper/feed"
	"github.com/CerebriumAI/live-stream-shopper/room"
	"github.com/CerebriumAI/live-stream-shopper/server"
	"github.com/CerebriumAI/live-stream-shopper/session"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Product store backing the feed
	store, err := feed.NewPostgresStore(ctx, cfg.PostgresURL, cfg.ProductChannel)
	if err != nil {
		log.Fatalf("Failed to connect product store: %v", err)
	}
	defer store.Close()

	// Room lifecycle client for the serverless backend
	rooms := room.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.RequestTimeout)

	// Create session manager
	sessionManager := session.NewManager(cfg, rooms, store)

	// Start cleanup routine
	go sessionManager.StartCleanupRoutine(ctx)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	srv := server.NewServer(cfg, sessionManager)

	go func() {
		<-sigChan
		log.Println("\nReceived shutdown signal...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped")
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/agentviz/api"
	"github.com/xiaot623/agentviz/bus"
	"github.com/xiaot623/agentviz/config"
	"github.com/xiaot623/agentviz/hub"
	"github.com/xiaot623/agentviz/policy"
	"github.com/xiaot623/agentviz/runner"
	"github.com/xiaot623/agentviz/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting agentviz...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Runs root: %s", cfg.RunsRoot)
	log.Printf("Database: %s", cfg.DatabaseURL)

	// Initialize run catalog
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize event bus and connection hub
	eventBus := bus.New(cfg.RunsRoot, cfg.QueueSize, db)
	connHub := hub.NewHub()

	// Initialize demo registry
	registry := runner.NewRegistry()

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize handler
	h := api.NewHandler(eventBus, connHub, db, registry, policyEngine, cfg)

	// Create Echo server
	server := echo.New()
	server.HideBanner = true

	// Middleware
	server.Use(middleware.Logger())
	server.Use(middleware.Recover())
	server.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(server)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Visualizer started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down agentviz...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Visualizer stopped")
}

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsmill/internal/app"
	"newsmill/internal/config"
	"newsmill/internal/database"
	"newsmill/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	configFile := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if cfg.HTTP.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}
	defer application.Close()

	// Run migrations
	if err := database.Migrate(application.DB); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Initialize and start background workers
	workerService, err := worker.NewWorkerService(application.ScheduledJobs()...)
	if err != nil {
		log.Fatal("Failed to configure background workers:", err)
	}
	if err := workerService.Start(); err != nil {
		log.Fatal("Failed to start background workers:", err)
	}
	defer workerService.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           application.Router(workerService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Received shutdown signal, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	log.Println("Shutdown complete")
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"survey-assistant-be/internal/bootstrap"
	"survey-assistant-be/internal/config"
	"survey-assistant-be/internal/server"
	"survey-assistant-be/internal/tracer"
	"survey-assistant-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.App.TracerOptions())
	defer shutdownTracer(context.Background())

	// 3. Initialize Database
	gormDB, err := database.NewGormDB(cfg.Database.Connection, cfg.Database.Options())
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start Background Services
	if err := container.Start(ctx); err != nil {
		log.Fatalf("Background services failed to start: %v", err)
	}

	// 6. Run Server
	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			log.Printf("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Printf("Memory shutdown error: %v", err)
	}
}

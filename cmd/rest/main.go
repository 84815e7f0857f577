package main

import (
	"context"
	"log"

	"law-mate-be/internal/bootstrap"
	"law-mate-be/internal/config"
	"law-mate-be/internal/server"
	"law-mate-be/internal/tracer"
	"law-mate-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.ShutdownConnections()

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Stage Event Consumer...")
		if err := container.StageConsumer.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	if err := container.SchedulerService.Start(); err != nil {
		log.Printf("Warn: Failed to start scheduler: %v", err)
	}
	defer container.SchedulerService.Stop()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}

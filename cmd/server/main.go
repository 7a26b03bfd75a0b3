package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/events"
	"fintrack/internal/handlers"
	"fintrack/internal/mail"
	"fintrack/internal/platform/category"
	"fintrack/internal/platform/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if !cfg.IsProduction() {
		log.SetLevel(log.LevelDebug)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	seeded, err := category.NewService(db).SeedDefaults(context.Background())
	if err != nil {
		log.Fatalf("seed default categories: %v", err)
	}
	if seeded > 0 {
		log.Infow("seeded default categories", "count", seeded)
	}

	purger, err := database.StartPurger(db, cfg.PurgeSchedule)
	if err != nil {
		log.Fatalf("start purger: %v", err)
	}

	publisher := events.New(cfg)

	app := handlers.NewApp(handlers.Deps{
		Config:  cfg,
		DB:      db,
		Mailer:  mail.New(cfg),
		Events:  publisher,
		Storage: storage.NewS3(cfg),
	})

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.ServerPort)); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Errorw("server shutdown", "error", err)
	}

	purger.Stop()

	if err := publisher.Close(); err != nil {
		log.Errorw("close event publisher", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

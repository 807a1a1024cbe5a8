package main

import (
	"log"

	"ai-codereview-be/internal/config"
	"ai-codereview-be/internal/model"
	"ai-codereview-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Printf("Warn: Failed to create uuid extension: %v. Continuing...", err)
	}

	log.Println("Running AutoMigrate for run history...")
	if err := db.AutoMigrate(&model.ReviewRun{}); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Success: Database migration completed.")
}

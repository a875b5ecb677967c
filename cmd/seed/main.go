package main

import (
	"github.com/oggyb/ember/internal/config"
	"github.com/oggyb/ember/internal/db"
	"github.com/oggyb/ember/internal/logger"
)

func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	if err := db.SeedTestData(database); err != nil {
		log.Error("failed to seed", "err", err)
		return
	}

	log.Info("seeding completed", "password", db.DemoPassword)
}

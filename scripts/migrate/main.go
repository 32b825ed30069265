package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/mahaj/carechat/pkg/config"
	"github.com/mahaj/carechat/pkg/db"
	"github.com/mahaj/carechat/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr := logger.Must(logger.Config{Development: true})
	defer func() { _ = logr.Sync() }()

	if err := db.EnsureSchema(cfg.Scylla.Hosts, cfg.Scylla.Keyspace, logr); err != nil {
		logr.Fatal("migration failed", zap.Error(err))
	}
	logr.Info("chat_rooms and messages tables ready")
}

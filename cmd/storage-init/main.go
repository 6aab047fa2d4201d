package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"prism-board/internal/config"
	"prism-board/internal/storage"
)

func main() {
	if config.Debug() {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	cfg, err := config.LoadStorage()
	if err != nil {
		log.Fatal(err)
	}
	err = storage.Provision(context.Background(), cfg.ConnectionString,
		[]string{cfg.BoardsTable},
		[]string{cfg.CommandQueue, cfg.EventsQueue},
	)
	if err != nil {
		log.Fatalf("provision: %v", err)
	}
	log.Info("storage init complete")
}

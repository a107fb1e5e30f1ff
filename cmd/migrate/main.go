// migrate applies the embedded SQL migrations: go run ./cmd/migrate -direction up|down|version.
package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"prepmaster/backend/internal/config"
	"prepmaster/backend/internal/db/migrate"
	"prepmaster/backend/internal/platform/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up, down, or version to print the applied version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log, err := logging.New(cfg.LogLevel, "text", nil)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	if *direction == "version" {
		v, dirty, ok, err := migrate.Version(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("migrate version")
		}
		if !ok {
			log.Info("no migrations applied")
			return
		}
		log.WithFields(logrus.Fields{"version": v, "dirty": dirty}).Info("schema version")
		return
	}

	dir, err := migrate.ParseDirection(*direction)
	if err != nil {
		log.WithError(err).Fatal("migrate")
	}
	if err := migrate.Run(cfg.DatabaseURL, dir); err != nil {
		log.WithError(err).Fatal("migrate")
	}
	log.WithField("direction", dir).Info("migrations applied")
}

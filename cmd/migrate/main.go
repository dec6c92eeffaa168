package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/storage/migrations"
	"github.com/gravadigital/community-portal/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.App.LogLevel)
	log := logger.Migration()

	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	status := flag.Bool("status", false, "List applied migrations and exit")
	flag.Parse()

	db, err := postgres.Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer postgres.Close(db)

	switch {
	case *status:
		applied, err := migrations.Applied(db)
		if err != nil {
			log.Error("Failed to read migration status", "error", err)
			os.Exit(1)
		}
		for _, m := range applied {
			fmt.Printf("applied  %s  %-40s %s\n", m.ID, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		for _, m := range migrations.Pending(migrations.GetMigrations(), applied) {
			fmt.Printf("pending  %s  %s\n", m.ID, m.Name)
		}
		return

	case *rollback:
		log.Info("Rolling back the last migration...")
		if err := migrations.RollbackMigration(db); errors.Is(err, migrations.ErrNothingToRollback) {
			log.Warn("Nothing to roll back")
			return
		} else if err != nil {
			log.Error("Migration rollback failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migration rollback completed successfully")

	default:
		log.Info("Running migrations...")
		if err := migrations.RunMigrations(db); err != nil {
			log.Error("Migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migrations completed successfully")
	}

	fmt.Println("Migration process completed!")
}

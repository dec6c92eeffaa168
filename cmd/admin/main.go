package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/storage/postgres"
)

const usage = `usage: admin <command> [flags]

commands:
  seed   -file accounts.json   create accounts from a JSON file
  export -out dir              write one JSON file per table family
  stats                        print table, index and connection statistics
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	logger.Initialize(cfg.App.LogLevel)
	log := logger.Service("admin")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := postgres.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer container.Close()

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "seed":
		fs := flag.NewFlagSet("seed", flag.ExitOnError)
		file := fs.String("file", "accounts.json", "JSON file with the accounts to create")
		_ = fs.Parse(args)

		accounts, err := readAccounts(*file)
		if err != nil {
			log.Fatal("Failed to read accounts", "file", *file, "error", err)
		}
		var created int
		err = container.WithTransaction(ctx, func(tc *postgres.TransactionContainer) error {
			created, err = seedAccounts(ctx, tc.Profiles(), accounts, cfg.Auth.BcryptCost)
			return err
		})
		if err != nil {
			log.Fatal("Seeding failed", "error", err)
		}
		log.Info("Accounts seeded", "created", created, "skipped", len(accounts)-created)

	case "export":
		fs := flag.NewFlagSet("export", flag.ExitOnError)
		out := fs.String("out", "export", "directory to write the JSON files to")
		_ = fs.Parse(args)

		written, err := exportAll(ctx, container, *out)
		if err != nil {
			log.Fatal("Export failed", "error", err)
		}
		log.Info("Export completed", "dir", *out, "files", len(written))

	case "stats":
		stats, err := postgres.NewStatsCollector(container.GetDB()).Collect(ctx)
		if err != nil {
			log.Fatal("Failed to collect statistics", "error", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			log.Fatal("Failed to print statistics", "error", err)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
}

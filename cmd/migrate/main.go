// Command migrate runs schema operations for the backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"atelier/internal/config"
	"atelier/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: migrate <up|auto|status|version|down> [steps]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "up":
		if err := database.RunMigrations(cfg); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "auto":
		db, err := database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer func() { _ = database.Close(db) }()

		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		status, err := database.GetSchemaStatus(cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d dirty=%t available=%d",
			status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate,
			status.AppliedVersion, status.Dirty, len(status.Available))
		for _, name := range status.Available {
			log.Printf("available: %s", name)
		}
	case "version":
		version, dirty, err := database.MigrationVersion(cfg)
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		log.Printf("version=%d dirty=%t", version, dirty)
	case "down":
		steps := 1
		if flag.NArg() >= 2 {
			steps, err = strconv.Atoi(flag.Arg(1))
			if err != nil || steps < 1 {
				return fmt.Errorf("invalid step count %q", flag.Arg(1))
			}
		}
		if err := database.RollbackMigrations(cfg, steps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Printf("rolled back %d migration(s)", steps)
	default:
		return usage()
	}

	return nil
}

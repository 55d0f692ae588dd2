// Command migrate manages the API database schema.
//
//	migrate up              apply pending SQL migrations
//	migrate auto            derive the schema from the models (not in production)
//	migrate status          show applied and pending migrations and the draft index
//	migrate down <version>  roll back one migration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"galaxydistance/internal/config"
	"galaxydistance/internal/database"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage: migrate <up|auto|status|down <version>>")

func main() {
	flag.Parse()
	if err := run(context.Background(), flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch args[0] {
	case "up":
		cfg.DBSchemaMode = database.SchemaModeSQL
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return err
		}
		return printStatus(ctx, os.Stdout, db, cfg)
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return err
		}
		return printStatus(ctx, os.Stdout, db, cfg)
	case "status":
		return printStatus(ctx, os.Stdout, db, cfg)
	case "down":
		if len(args) < 2 {
			return errUsage
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return err
		}
		return printStatus(ctx, os.Stdout, db, cfg)
	default:
		return errUsage
	}
}

// printStatus writes the schema state of db. A missing draft index is called
// out because draft creation relies on it.
func printStatus(ctx context.Context, w io.Writer, db *gorm.DB, cfg *config.Config) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status: %w", err)
	}

	fmt.Fprintf(w, "env:        %s\n", status.Environment)
	fmt.Fprintf(w, "mode:       %s\n", status.Mode)
	fmt.Fprintf(w, "applied:    %v\n", status.AppliedVersions)
	if len(status.PendingMigrations) == 0 {
		fmt.Fprintln(w, "pending:    none")
	}
	for _, m := range status.PendingMigrations {
		fmt.Fprintf(w, "pending:    %06d_%s\n", m.Version, m.Name)
	}
	if status.DraftIndex {
		fmt.Fprintf(w, "draft index %s: present\n", database.DraftIndexName)
	} else {
		fmt.Fprintf(w, "draft index %s: MISSING, concurrent adds may create duplicate drafts\n", database.DraftIndexName)
	}
	return nil
}

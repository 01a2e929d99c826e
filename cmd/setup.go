package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nodrake/ndh/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the cache database and runs migrations. With
// --rollback it reverses the most recent migration instead.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back most recent migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		r.writePlain("✓ Rolled back most recent migration\n")
	} else {
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	status, err := shared.Status(db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	r.writePlain("✓ Database ready at %s\n", config.Database.Path)
	r.writePlain("  Migrations applied: %d\n", len(status.Applied))
	if len(status.Pending) > 0 {
		r.writePlain("  Migrations pending: %d\n", len(status.Pending))
	}
	return nil
}

// SetupConfig writes a config file from the embedded template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		path = r.configPath
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.writePlain("✓ Config file created at %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Point api.base_url at your backend\n")
	r.writePlain("2. Run 'ndh setup database' to initialize the local cache\n")
	r.writePlain("3. Run 'ndh auth login <email>'\n")
	return nil
}

package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/nodrake/ndh/internal/auth"
	"github.com/nodrake/ndh/internal/repositories"
	"github.com/nodrake/ndh/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	if level, err := log.ParseLevel(config.Logging.Level); err == nil {
		shared.SetLogLevel(logger, level)
	}

	sessionPath, err := auth.DefaultSessionPath()
	if err != nil {
		logger.Fatalf("failed to locate session file: %v", err)
	}
	session, err := auth.NewStore(sessionPath, logger)
	if err != nil {
		logger.Fatalf("failed to open session store: %v", err)
	}

	var artists *repositories.ArtistRepository
	var archive *repositories.BatchRepository
	if db, err := shared.NewDatabase(config.Database.Path); err == nil {
		shared.ConfigureDatabase(db, config.Database)
		artists = repositories.NewArtistRepository(db)
		archive = repositories.NewBatchRepository(db)
	} else {
		logger.Warn("local cache unavailable, run 'ndh setup database'", "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Session:    session,
		Artists:    artists,
		Archive:    archive,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:    "ndh",
		Usage:   "Manage a do-not-play list and enforce it on your streaming accounts",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to a file instead of stderr",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if path := cmd.String("log-file"); path != "" {
				fileLogger, _, err := shared.NewFileLogger(path)
				if err != nil {
					return ctx, err
				}
				runner.SetLogger(fileLogger)
				logger = fileLogger
			}
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

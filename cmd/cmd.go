// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// authCommand handles account registration and session management
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage your account and session",
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Create an account",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "email",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "password",
						Usage: "Password (prompted when omitted)",
					},
				},
				Action: r.AuthRegister,
			},
			{
				Name:  "login",
				Usage: "Log in and store the session locally",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "email",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "password",
						Usage: "Password (prompted when omitted)",
					},
					&cli.StringFlag{
						Name:  "totp",
						Usage: "Two-factor code, for accounts with 2FA enabled",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Clear the local session and revoke the refresh token",
				Action: r.AuthLogout,
			},
			{
				Name:  "whoami",
				Usage: "Show the signed-in account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthWhoami,
			},
			{
				Name:  "verify",
				Usage: "Verify your email address with an emailed code",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "code",
					},
				},
				Action: r.AuthVerify,
			},
		},
	}
}

// dnpCommand handles the personal do-not-play list
func dnpCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dnp",
		Usage: "Manage your do-not-play list",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show every artist on the list",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "tag",
						Usage: "Only show entries carrying this tag",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.DNPList,
			},
			{
				Name:  "add",
				Usage: "Add an artist by name or backend ID",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "artist",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "id",
						Usage: "Treat the argument as an artist ID instead of a search",
					},
					&cli.StringFlag{
						Name:  "tags",
						Usage: "Comma separated tags",
					},
					&cli.StringFlag{
						Name:  "note",
						Usage: "Note attached to the entry",
					},
				},
				Action: r.DNPAdd,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Remove an artist from the list",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "artist-id",
					},
				},
				Action: r.DNPRemove,
			},
			{
				Name:  "search",
				Usage: "Search the provider catalogs for an artist",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "query",
					},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.DNPSearch,
			},
			{
				Name:  "import",
				Usage: "Bulk import artists from a JSON, CSV, or plain text file",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "file",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "tags",
						Usage: "Comma separated tags applied to imported entries",
					},
					&cli.StringFlag{
						Name:  "note",
						Usage: "Note applied to imported entries",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent import workers",
						Value: 5,
					},
				},
				Action: r.DNPImport,
			},
			{
				Name:  "export",
				Usage: "Export the list to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown, text, or json",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the export to stdout instead of writing files",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.DNPExport,
			},
		},
	}
}

// connectionsCommand handles linked streaming accounts
func connectionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "connections",
		Aliases: []string{"conn"},
		Usage:   "Link and inspect streaming service accounts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show linked services and their health",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ConnectionsList,
			},
			{
				Name:  "link",
				Usage: "Link a streaming service via OAuth",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "provider",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "manual",
						Usage: "Paste the redirect URL instead of running a local callback server",
					},
				},
				Action: r.ConnectionsLink,
			},
			{
				Name:  "unlink",
				Usage: "Remove a linked service",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "provider",
					},
				},
				Action: r.ConnectionsUnlink,
			},
			{
				Name:  "accounts",
				Usage: "Show external identities attached to your account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ConnectionsAccounts,
			},
		},
	}
}

// enforcementCommand handles blocklist enforcement runs
func enforcementCommand(r *Runner) *cli.Command {
	enforcementFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "providers",
			Usage: "Comma separated providers (default: all connected)",
		},
		&cli.StringFlag{
			Name:  "aggressiveness",
			Usage: "Enforcement level: conservative, moderate, or aggressive",
		},
		&cli.BoolFlag{
			Name:  "block-collabs",
			Usage: "Also remove collaborations",
		},
		&cli.BoolFlag{
			Name:  "block-featuring",
			Usage: "Also remove tracks featuring listed artists",
		},
		&cli.BoolFlag{
			Name:  "block-songwriter-only",
			Usage: "Also remove songwriter-only credits",
		},
	}

	return &cli.Command{
		Name:    "enforcement",
		Aliases: []string{"enforce"},
		Usage:   "Plan and run blocklist enforcement",
		Commands: []*cli.Command{
			{
				Name:  "plan",
				Usage: "Preview what an enforcement run would touch",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Mark the plan as a dry run",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				}, enforcementFlags...),
				Action: r.EnforcementPlan,
			},
			{
				Name:  "run",
				Usage: "Plan, execute, and watch an enforcement batch",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Simulate the batch without touching libraries",
					},
				}, enforcementFlags...),
				Action: r.EnforcementRun,
			},
			{
				Name:  "watch",
				Usage: "Follow an in-flight batch until it settles",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "batch-id",
					},
				},
				Action: r.EnforcementWatch,
			},
			{
				Name:  "history",
				Usage: "Show archived enforcement batches",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of batches",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show batches with this status",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.EnforcementHistory,
			},
			{
				Name:  "rollback",
				Usage: "Reverse a finished batch",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "batch-id",
					},
				},
				Action: r.EnforcementRollback,
			},
		},
	}
}

// communityCommand handles shared community blocklists
func communityCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "community",
		Aliases: []string{"comm"},
		Usage:   "Browse and subscribe to community lists",
		Commands: []*cli.Command{
			{
				Name:  "lists",
				Usage: "Browse community lists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Filter lists by name",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Result page",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "per-page",
						Usage: "Results per page",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CommunityLists,
			},
			{
				Name:  "show",
				Usage: "Show one list with its artists",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "list-id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CommunityShow,
			},
			{
				Name:  "subscribe",
				Usage: "Subscribe to a community list",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "list-id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "auto-update",
						Usage: "Pick up list changes automatically",
						Value: true,
					},
				},
				Action: r.CommunitySubscribe,
			},
			{
				Name:  "unsubscribe",
				Usage: "Drop a subscription",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "list-id",
					},
				},
				Action: r.CommunityUnsubscribe,
			},
			{
				Name:  "subscriptions",
				Usage: "Show your subscriptions",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CommunitySubscriptions,
			},
		},
	}
}

// statusCommand shows the account overview
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show account, list, and connection status at a glance",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// cacheCommand handles the local artist cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the local artist cache",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show cached artists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Only show artists from this provider",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of artists",
						Value: 50,
					},
				},
				Action: r.CacheList,
			},
			{
				Name:   "clear",
				Usage:  "Delete every cached artist",
				Action: r.CacheClear,
			},
		},
	}
}

// apiCommand handles direct backend API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls to the backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the backend, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// setupCommand handles setup operations for the config file and cache database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize the cache database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Create a config file from the template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Where to write the config file",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive enforcement.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive enforcement TUI",
		Action:  r.TUI,
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/nodrake/ndh/internal/api"
	"github.com/nodrake/ndh/internal/auth"
	"github.com/nodrake/ndh/internal/repositories"
	"github.com/nodrake/ndh/internal/services"
	"github.com/nodrake/ndh/internal/shared"
	"github.com/nodrake/ndh/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	client      *api.Client
	session     *auth.Store
	auth        services.AuthAPI
	dnp         services.DNPAPI
	connections services.ConnectionAPI
	community   services.CommunityAPI
	enforcement services.EnforcementAPI
	artists     *repositories.ArtistRepository
	archive     *repositories.BatchRepository
	engine      *tasks.EnforcementEngine
	logger      *log.Logger
	output      io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Artists and Archive are the local cache repositories; either may be nil
// when the cache database is unavailable. Service fields left nil are
// constructed from Client.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Client      *api.Client
	Session     *auth.Store
	Auth        services.AuthAPI
	DNP         services.DNPAPI
	Connections services.ConnectionAPI
	Community   services.CommunityAPI
	Enforcement services.EnforcementAPI
	Artists     *repositories.ArtistRepository
	Archive     *repositories.BatchRepository
	History     tasks.HistoryStore
	Logger      *log.Logger
	Output      io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	if opts.Client == nil && opts.Session != nil {
		opts.Client = api.NewClient(api.Config{
			BaseURL:    opts.Config.API.BaseURL,
			Timeout:    opts.Config.API.Timeout(),
			MaxRetries: opts.Config.API.MaxRetries,
			Backoff:    opts.Config.API.RetryBackoff(),
		}, opts.Session, opts.Logger)
	}

	var cache services.ArtistCacher
	if opts.Artists != nil {
		cache = repositories.NewArtistCacheAdapter(opts.Artists)
	}

	if opts.Client != nil {
		if opts.Auth == nil {
			opts.Auth = services.NewAuthService(opts.Client)
		}
		if opts.DNP == nil {
			opts.DNP = services.NewDNPService(opts.Client, cache)
		}
		if opts.Connections == nil {
			opts.Connections = services.NewConnectionService(opts.Client)
		}
		if opts.Community == nil {
			opts.Community = services.NewCommunityService(opts.Client)
		}
		if opts.Enforcement == nil {
			opts.Enforcement = services.NewEnforcementService(opts.Client)
		}
	}

	history := opts.History
	if history == nil && opts.Archive != nil {
		history = repositories.NewBatchArchiveAdapter(opts.Archive)
	}

	engine := tasks.NewEnforcementEngine(opts.Enforcement, opts.DNP, history)
	engine.SetPollInterval(opts.Config.Enforcement.PollInterval())

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		client:      opts.Client,
		session:     opts.Session,
		auth:        opts.Auth,
		dnp:         opts.DNP,
		connections: opts.Connections,
		community:   opts.Community,
		enforcement: opts.Enforcement,
		artists:     opts.Artists,
		archive:     opts.Archive,
		engine:      engine,
		logger:      opts.Logger,
		output:      opts.Output,
	}
}

// SetLogger swaps the runner's logger, e.g. to redirect logs to a file
// while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		authCommand, dnpCommand, connectionsCommand, enforcementCommand, communityCommand,
		statusCommand, cacheCommand, apiCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// saveLogin persists a completed login or registration to the session store.
func (r *Runner) saveLogin(result *services.AuthResult) error {
	if result == nil || result.User == nil {
		return fmt.Errorf("%w: no user in auth response", shared.ErrAuthFailed)
	}
	if r.session == nil {
		return fmt.Errorf("%w: session store not initialized", shared.ErrServiceUnavailable)
	}

	user := auth.User{ID: result.User.ID, Email: result.User.Email}
	if err := r.session.Login(user, result.Tokens); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// splitList splits a comma separated flag value, dropping empty parts.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

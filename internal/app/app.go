package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"talentmatch-client/internal/cli"
	"talentmatch-client/internal/client"
	"talentmatch-client/internal/config"
	"talentmatch-client/internal/service"
	"talentmatch-client/internal/session"
)

type App struct {
	cli     *cli.CLI
	manager *session.Manager
}

type options struct {
	stdin      io.Reader
	httpClient *http.Client
	logger     *slog.Logger
	store      session.Store
}

type Option func(*options)

func WithStdin(r io.Reader) Option {
	return func(o *options) { o.stdin = r }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStore replaces the session file named in the config.
func WithStore(store session.Store) Option {
	return func(o *options) { o.store = store }
}

// New wires config, session, client and services into the command line.
func New(cfg *config.Config, stdout io.Writer, stderr io.Writer, opts ...Option) (*App, error) {
	o := options{stdin: os.Stdin, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		fileStore, err := session.NewFileStore(cfg.SessionFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		store = fileStore
	}

	logger := o.logger
	refresher := client.NewTokenRefresher(cfg.APIBaseURL, cfg.RequestTimeout, o.httpClient)
	manager, err := session.NewManager(store, refresher,
		session.WithLogger(logger),
		session.WithOnExpired(func(reason error) {
			logger.Info("stored session cleared", "reason", reason)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	apiClient, err := client.New(client.Options{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.RequestTimeout,
		HTTPClient: o.httpClient,
		Session:    manager,
		Limiter:    client.NewLimiter(cfg.RateLimitRPM),
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API client: %w", err)
	}

	resumeService := service.NewResumeService(apiClient, cfg.MaxUploadSize, logger)
	jobService := service.NewJobService(apiClient)

	commands := cli.New(cli.Services{
		Auth:      service.NewAuthService(apiClient, manager),
		Resumes:   resumeService,
		Jobs:      jobService,
		Query:     service.NewQueryService(apiClient),
		Dashboard: service.NewDashboardService(resumeService, jobService),
	}, o.stdin, stdout, stderr, cfg.OutputFormat)

	return &App{
		cli:     commands,
		manager: manager,
	}, nil
}

// Run executes one command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	return a.cli.Run(ctx, args)
}

// Session exposes the session manager, mainly for status checks in tests.
func (a *App) Session() *session.Manager {
	return a.manager
}

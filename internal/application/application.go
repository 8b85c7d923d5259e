package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/stowage/internal/api"
	"github.com/eugenenazirov/stowage/internal/audit"
	"github.com/eugenenazirov/stowage/internal/config"
	"github.com/eugenenazirov/stowage/internal/importer"
	"github.com/eugenenazirov/stowage/internal/metrics"
	"github.com/eugenenazirov/stowage/internal/planner"
	"github.com/eugenenazirov/stowage/internal/simulation"
	"github.com/eugenenazirov/stowage/internal/storage"
)

const auditArchivePrefix = "audit"

// App encapsulates the application dependencies and HTTP server.
type App struct {
	storage   storage.Storage
	planner   *planner.Planner
	simulator *simulation.Simulator
	audit     *audit.Log
	archive   *audit.Archive
	metrics   *metrics.Metrics
	handler   *api.Handler
	router    http.Handler
	logger    *zap.Logger
	server    *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStorage()
	if err := seedStorage(store, cfg, logger); err != nil {
		return nil, fmt.Errorf("failed to seed inventory: %w", err)
	}

	sim := simulation.New(store, time.Now().UTC(), logger.Named("simulation"))

	plannerOpts := []planner.Option{
		planner.WithLogger(logger.Named("planner")),
		planner.WithClearance(cfg.Clearance),
		planner.WithClock(sim.Now),
	}
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
		plannerOpts = append(plannerOpts, planner.WithObserver(m))
	}
	engine := planner.New(plannerOpts...)

	auditOpts := []audit.Option{audit.WithLogger(logger.Named("audit"))}
	var archive *audit.Archive
	if cfg.AuditDir != "" {
		if err := os.MkdirAll(cfg.AuditDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
		archive = audit.NewArchive(cfg.AuditDir, auditArchivePrefix)
		auditOpts = append(auditOpts, audit.WithSink(archive))
	}
	auditLog := audit.New(auditOpts...)

	handler := api.NewHandler(engine, store,
		api.WithAuditLog(auditLog),
		api.WithSimulator(sim),
		api.WithHandlerLogger(logger.Named("api")),
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
	)
	routerOpts := []api.RouterOption{
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	if m != nil {
		routerOpts = append(routerOpts, api.WithMetrics(m))
	}
	apiRouter := api.NewRouter(handler, logger, routerOpts...)

	return &App{
		storage:   store,
		planner:   engine,
		simulator: sim,
		audit:     auditLog,
		archive:   archive,
		metrics:   m,
		handler:   handler,
		router:    apiRouter,
		logger:    logger,
		server:    NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// BuildRootHandler routes API and metrics traffic to apiHandler and answers
// the bare root with a short service description.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"service": "stowage",
			"health":  "/api/health",
		})
	}))
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Close flushes the audit archive, if any.
func (a *App) Close() error {
	if a.archive == nil {
		return nil
	}
	return a.archive.Close()
}

// seedStorage imports the configured container and item files.
func seedStorage(store storage.Storage, cfg config.Config, logger *zap.Logger) error {
	if cfg.SeedContainersFile != "" {
		data, err := readSeedFile(cfg.SeedContainersFile)
		if err != nil {
			return err
		}
		res, err := importer.ParseContainers(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", cfg.SeedContainersFile, err)
		}
		logRowErrors(logger, cfg.SeedContainersFile, res.Errors)
		if err := store.ReplaceContainers(res.Containers); err != nil {
			return err
		}
		logger.Info("containers seeded", zap.String("file", cfg.SeedContainersFile), zap.Int("count", len(res.Containers)))
	}
	if cfg.SeedItemsFile != "" {
		data, err := readSeedFile(cfg.SeedItemsFile)
		if err != nil {
			return err
		}
		res, err := importer.ParseItems(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", cfg.SeedItemsFile, err)
		}
		logRowErrors(logger, cfg.SeedItemsFile, res.Errors)
		if err := store.ReplaceItems(res.Items); err != nil {
			return err
		}
		logger.Info("items seeded", zap.String("file", cfg.SeedItemsFile), zap.Int("count", len(res.Items)))
	}
	return nil
}

func logRowErrors(logger *zap.Logger, file string, errs []importer.RowError) {
	for _, e := range errs {
		logger.Warn("seed row rejected", zap.String("file", file), zap.Int("row", e.Row), zap.String("reason", e.Message))
	}
}

// readSeedFile reads path as given, falling back to a lookup relative to
// the project root for relative paths.
func readSeedFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil || filepath.IsAbs(path) || !errors.Is(err, os.ErrNotExist) {
		return data, err
	}
	resolved, rerr := resolveProjectPath(path)
	if rerr != nil {
		return nil, err
	}
	return os.ReadFile(resolved)
}

// resolveProjectPath locates a file or directory relative to the project root by walking up the directory tree.
func resolveProjectPath(relative string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}

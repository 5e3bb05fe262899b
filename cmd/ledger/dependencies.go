package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/categorization"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement/parser"
	"github.com/FACorreiaa/statement-ledger/internal/domain/statement/service"
	"github.com/FACorreiaa/statement-ledger/internal/domain/usage"
	"github.com/FACorreiaa/statement-ledger/pkg/config"
	"github.com/FACorreiaa/statement-ledger/pkg/storage"
)

// Dependencies holds everything the commands share.
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	Tracker     *usage.Tracker
	Categorizer *categorization.Service
	Parser      *service.ParseService
}

// InitDependencies loads configuration and wires the parse pipeline.
// rulesOverride, when non-empty, replaces the configured rules file.
func InitDependencies(rulesOverride string) (*Dependencies, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.App.LogLevel)
	slog.SetDefault(logger)

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initTracker()
	if err := deps.initCategorizer(rulesOverride); err != nil {
		return nil, fmt.Errorf("failed to init categorization: %w", err)
	}
	deps.initParser()

	logger.Debug("dependencies initialized", "quota", cfg.Quota.Describe())
	return deps, nil
}

// initTracker creates the in-memory usage log backing the quota gate.
func (d *Dependencies) initTracker() {
	d.Tracker = usage.NewTracker()
}

// initCategorizer wires the rules store when a rules file is available.
// A missing file only disables categorization; it never fails a command.
func (d *Dependencies) initCategorizer(rulesOverride string) error {
	path := d.Config.Rules.Path
	explicit := rulesOverride != ""
	if explicit {
		path = rulesOverride
	}
	if path == "" || (!explicit && !d.Config.Rules.Autoload) {
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		if explicit {
			return fmt.Errorf("rules file %q: %w", path, err)
		}
		d.Logger.Info("rules file not found, categorization disabled", "path", path)
		return nil
	}

	d.Categorizer = categorization.NewService(categorization.NewYAMLStore(path), d.Logger)
	d.Logger.Debug("categorization rules store opened", "path", path)
	return nil
}

// initParser builds the parse orchestrator from the configured tuning.
func (d *Dependencies) initParser() {
	svcCfg := service.DefaultConfig()
	svcCfg.Parser = parser.Config{
		MatchTimeout:  d.Config.Parser.MatchTimeout,
		QueueCapacity: d.Config.Parser.QueueCapacity,
		SanityCeiling: decimal.NewFromInt(d.Config.Parser.SanityCeiling),
	}
	if d.Config.Quota.Enforced {
		svcCfg.MonthlyQuota = d.Config.Quota.MonthlyLimit
	} else {
		svcCfg.MonthlyQuota = 0
	}

	d.Parser = service.NewParseService(d.Tracker, d.Logger).WithConfig(svcCfg)
	if d.Categorizer != nil {
		d.Parser = d.Parser.WithCategorizer(d.Categorizer)
	}
}

// OpenArchive builds the archive backend on demand so one-shot commands
// never create storage directories they do not use.
func (d *Dependencies) OpenArchive() (storage.Archive, error) {
	archive, err := storage.New(storage.Config{
		Provider: d.Config.Storage.Provider,
		LocalDir: d.Config.Storage.LocalDir,
		S3Bucket: d.Config.Storage.S3Bucket,
		S3Region: d.Config.Storage.S3Region,
		S3Prefix: d.Config.Storage.S3Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init archive: %w", err)
	}
	return archive, nil
}

// newLogger builds the process logger writing to stderr so exported
// ledgers on stdout stay machine-readable.
func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// parseUserID maps the --user flag to a caller identity. Empty means the
// anonymous caller: quota still applies, under the zero UUID.
func parseUserID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --user %q: %w", raw, err)
	}
	return id, nil
}

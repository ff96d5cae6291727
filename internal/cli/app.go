package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/aussiebroadwan/moondance/pkg/credstore"
	"github.com/aussiebroadwan/moondance/pkg/credstore/drivers/file"
	"github.com/aussiebroadwan/moondance/pkg/credstore/drivers/redis"
	"github.com/aussiebroadwan/moondance/pkg/credstore/drivers/sqlite"
	"github.com/aussiebroadwan/moondance/pkg/httpx"
	"github.com/aussiebroadwan/moondance/pkg/metricsx"
	"github.com/aussiebroadwan/moondance/pkg/notesdk"
	"github.com/aussiebroadwan/moondance/pkg/sealx"
	"github.com/aussiebroadwan/moondance/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application holds the client and everything a command needs.
type Application struct {
	cfg    Config
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer

	// jsonOutput prints results as JSON instead of text.
	jsonOutput bool

	client  *notesdk.Client
	metrics *metricsx.Recorder

	// loginRequired is set when a failed renewal ended the session.
	loginRequired atomic.Bool
}

// NewApplication opens the session store and builds the API client. The
// persisted session is hydrated before it returns.
func NewApplication(ctx context.Context, cfg Config, stdout, stderr io.Writer) (*Application, error) {
	app := &Application{
		cfg:    cfg,
		stdout: stdout,
		logger: slogx.New(slogx.Config{
			Service: "moondance",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
			Output:  stderr,
		}),
		metrics: metricsx.New(),
	}

	backend, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	clientCfg := notesdk.Config{
		BaseURL:   cfg.APIURL,
		Backend:   backend,
		Timeout:   cfg.Timeout,
		UserAgent: "moondance-cli/" + BuildVersion,
		Logger:    app.logger,
		Observer:  app.metrics,
		OnLoginRequired: func(reason error) {
			app.loginRequired.Store(true)
		},
	}
	if !cfg.NoRateLimit {
		clientCfg.RateLimit = httpx.APILimit
		clientCfg.AuthRateLimit = httpx.AuthLimit
	}

	client, err := notesdk.New(clientCfg)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	app.client = client

	// A store we cannot read leaves us logged out; commands that need a
	// session will say so.
	if err := client.Session().Hydrate(ctx); err != nil {
		app.logger.Warn("failed to restore session", "error", err)
	}

	return app, nil
}

// Close releases the session store.
func (app *Application) Close() error {
	return app.client.Close()
}

// LoginRequired reports whether the session was torn down during this run.
func (app *Application) LoginRequired() bool {
	return app.loginRequired.Load()
}

// WriteMetrics writes the renewal metrics in Prometheus text format.
func (app *Application) WriteMetrics(path string) error {
	return app.metrics.WriteFile(path)
}

func openBackend(ctx context.Context, cfg StoreConfig) (credstore.Backend, error) {
	dir := DefaultDir()

	switch cfg.Driver {
	case StoreMemory:
		return credstore.NewMemoryBackend(), nil

	case StoreFile:
		var opts []file.Option
		if cfg.Passphrase != "" {
			sealer, err := sealx.New(cfg.Passphrase, sealx.DefaultParams)
			if err != nil {
				return nil, err
			}
			opts = append(opts, file.WithSealer(sealer))
		}
		return file.New(cfg.SessionPath(dir), opts...)

	case StoreSQLite:
		path := cfg.SessionPath(dir)
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", path)
		return sqlite.New(dsn, cfg.Profile)

	case StoreRedis:
		var opts []redis.Option
		if cfg.RedisTTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.RedisTTL))
		}
		return redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "moondance:"+cfg.Profile, opts...)
	}

	return nil, errors.New("unknown store driver " + cfg.Driver)
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return nil
}

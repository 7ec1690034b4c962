package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formblocks/internal/config"
	"github.com/goliatone/go-formblocks/pkg/assembler"
	"github.com/goliatone/go-formblocks/pkg/client"
	"github.com/goliatone/go-formblocks/pkg/fields"
	"github.com/goliatone/go-formblocks/pkg/logger"
	"github.com/goliatone/go-formblocks/pkg/metrics"
	"github.com/goliatone/go-formblocks/pkg/render"
	"github.com/goliatone/go-formblocks/pkg/session"
	"github.com/goliatone/go-formblocks/pkg/store"
	"github.com/goliatone/go-formblocks/pkg/visibility/celexpr"
)

var version = "dev"

type rootOptions struct {
	configPath string
	envFiles   []string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "formblocks",
		Short:         "Render and submit forms described by the backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (YAML)")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env", []string{".env"}, "dotenv files loaded before the configuration")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(
		newServeCmd(opts),
		newRenderCmd(opts),
		newLoginCmd(opts),
		newLintCmd(),
	)
	return cmd
}

// app holds the wired components shared by the commands.
type app struct {
	cfg       config.Config
	log       *logger.Logger
	store     *store.Store
	client    *client.Client
	session   *session.Manager
	renderer  *fields.Renderer
	catalog   *render.Catalog
	metrics   *metrics.Recorder
	assembler *assembler.Assembler
	closers   []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error(err, "shutdown")
		}
	}
	a.log.Sync()
}

// loadApp reads the configuration and wires every component. nav receives
// forced-logout redirects.
func loadApp(ctx context.Context, opts *rootOptions, nav session.Navigator) (*app, error) {
	if err := config.LoadEnv(opts.envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Version: version})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	backend := store.Backend(store.NewMemoryBackend())
	if cfg.Redis.Enabled() {
		rdb, err := store.DialRedis(ctx, store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		backend = store.NewRedisBackend(rdb, cfg.Redis.Prefix, cfg.Redis.TTL)
		log.Info("using redis store", "addr", cfg.Redis.Addr)
	}
	a.store = store.New(backend, store.WithLogger(log.WithName("store")))

	a.client, err = client.New(cfg.Backend.URL, a.store,
		client.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
		client.WithLogger(log.WithName("client")),
		client.WithMetrics(a.metrics))
	if err != nil {
		return nil, err
	}
	a.session = session.New(a.store, a.client,
		session.WithNavigator(nav),
		session.WithLogger(log.WithName("session")))

	a.catalog = render.NewCatalog(cfg.I18n.Fallback)
	for locale, path := range cfg.I18n.Catalogs {
		if err := a.catalog.LoadFile(locale, path); err != nil {
			return nil, err
		}
	}
	a.renderer, err = fields.New(
		fields.WithTranslator(a.catalog),
		fields.WithTemplatesDir(cfg.Templates),
		fields.WithLogger(log.WithName("fields")))
	if err != nil {
		return nil, err
	}

	evaluator, err := celexpr.New()
	if err != nil {
		return nil, err
	}
	a.assembler = assembler.New(a.client, a.renderer,
		assembler.WithSession(a.session),
		assembler.WithEvaluator(evaluator),
		assembler.WithMetrics(a.metrics),
		assembler.WithLogger(log.WithName("assembler")))
	return a, nil
}

// form looks up a configured form by name.
func (a *app) form(name string) (config.Form, error) {
	for _, f := range a.cfg.Forms {
		if f.Name == name {
			return f, nil
		}
	}
	return config.Form{}, fmt.Errorf("formblocks: no form named %q", name)
}

// machineFingerprint identifies this host for CLI sessions.
func machineFingerprint() string {
	host, _ := os.Hostname()
	seed := host + "|" + os.Getenv("USER")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

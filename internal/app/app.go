package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"hotel-rate-intel/internal/alerting"
	"hotel-rate-intel/internal/api"
	"hotel-rate-intel/internal/catalog"
	"hotel-rate-intel/internal/collector"
	"hotel-rate-intel/internal/config"
	"hotel-rate-intel/internal/fetcher"
	"hotel-rate-intel/internal/metrics"
	"hotel-rate-intel/internal/scheduler"
	"hotel-rate-intel/internal/seasonal"
	"hotel-rate-intel/internal/service"
	"hotel-rate-intel/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives command reports. Defaults to stdout.
	Out io.Writer
	// Now overrides the clock, for tests.
	Now func() time.Time
	// Source overrides the configured rate source, for tests.
	Source fetcher.RateSource
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Out:    os.Stdout,
		Now:    time.Now,
	}
}

// ShowOptions configure the report commands.
type ShowOptions struct {
	Limit  int
	City   string
	Hotel  string
	Hotels []string
}

// ExportOptions hold parameters for exporting opportunities and seasonal charts.
type ExportOptions struct {
	CSVPath string
	PNGPath string
	HotelID string
}

func (a *App) loadCatalog() (*catalog.Catalog, error) {
	cat, err := catalog.LoadFile(a.Config.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

func (a *App) loadModel(cat *catalog.Catalog) (*seasonal.Pattern, error) {
	table, err := seasonal.LoadTableFile(a.Config.Seasonal.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("load seasonal dataset: %w", err)
	}
	return seasonal.NewPattern(table, cat.Hotels(), seasonal.WithClock(a.Now)), nil
}

func (a *App) newSource() fetcher.RateSource {
	if a.Source != nil {
		return a.Source
	}
	src := a.Config.Source
	switch src.Kind {
	case config.SourceBrowser:
		return fetcher.NewBrowserSource(fetcher.BrowserOptions{
			URLTemplate: src.URLTemplate,
			UserAgent:   src.UserAgent,
			Settle:      src.BrowserSettle,
		}, a.Logger)
	case config.SourceMock:
		mock := fetcher.NewMockSource()
		mock.Simulate = true
		return mock
	default:
		return fetcher.NewPageSource(fetcher.PageOptions{
			URLTemplate: src.URLTemplate,
			UserAgent:   src.UserAgent,
			Timeout:     a.Config.Collector.RequestTimeout,
		}, a.Logger)
	}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	return nil
}

func (a *App) newCollector(source fetcher.RateSource, m *metrics.Metrics) *collector.Collector {
	return collector.New(source, collector.Options{
		RequestTimeout: a.Config.Collector.RequestTimeout,
		RequestDelay:   a.Config.Collector.RequestDelay,
		Seed:           a.Config.Collector.FallbackSeed,
		Now:            a.Now,
	}, m, a.Logger)
}

// buildService wires the pipeline. A nil scheduler is fine for one-shot commands.
func (a *App) buildService(m *metrics.Metrics, sched *scheduler.Scheduler, source fetcher.RateSource, notifier alerting.Notifier) (*service.Service, error) {
	cat, err := a.loadCatalog()
	if err != nil {
		return nil, err
	}
	model, err := a.loadModel(cat)
	if err != nil {
		return nil, err
	}
	if source == nil {
		source = a.newSource()
	}

	a.Logger.Debug().
		Str("catalog_version", cat.Version()).
		Str("seasonal_version", model.Version()).
		Int("hotels", len(cat.Hotels())).
		Str("source", a.Config.Source.Kind).
		Msg("pipeline assembled")

	return service.New(a.Config, service.Deps{
		Catalog:   cat,
		Collector: a.newCollector(source, m),
		Model:     model,
		Scheduler: sched,
		Notifier:  notifier,
		Metrics:   m,
		Now:       a.Now,
	}, a.Logger), nil
}

// Run executes the long-running refresh loop and, when enabled, the HTTP API.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	sched := scheduler.New(scheduler.Options{
		Interval:       a.Config.Scheduler.Interval,
		AlignToStart:   a.Config.Scheduler.AlignToBucket,
		StartupDelay:   a.Config.Scheduler.StartupDelay,
		TickTimeout:    a.Config.Scheduler.TickTimeout,
		RunImmediately: true,
		Now:            a.Now,
	}, a.Logger)

	notifier := a.newNotifier()
	if a.Config.Alerting.Enabled && notifier == nil {
		a.Logger.Warn().Msg("alerting enabled but no channel configured")
	}

	svc, err := a.buildService(m, sched, nil, notifier)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info().Str("build", version.String()).Dur("interval", sched.Interval()).Msg("starting rate intelligence service")
		return svc.Run(gctx)
	})
	if a.Config.HTTP.Enabled {
		server := api.NewServer(a.Config.HTTP.Addr, a.Config.HTTP.ShutdownTimeout,
			api.NewHandler(svc, a.Logger), m.Handler(), a.Logger)
		g.Go(func() error { return server.Run(gctx) })
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("rate intelligence service stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dashboardai/dashboardai/components/connect"
	connectrouter "github.com/dashboardai/dashboardai/components/connect/gorouter"
	"github.com/dashboardai/dashboardai/components/dashboard"
	dashboardrouter "github.com/dashboardai/dashboardai/components/dashboard/gorouter"
	"github.com/dashboardai/dashboardai/components/dashboard/httpapi"
	"github.com/dashboardai/dashboardai/components/funnel"
	funnelrouter "github.com/dashboardai/dashboardai/components/funnel/gorouter"
	"github.com/dashboardai/dashboardai/components/integrations"
	integrationsrouter "github.com/dashboardai/dashboardai/components/integrations/gorouter"
	"github.com/dashboardai/dashboardai/components/metrics"
	"github.com/dashboardai/dashboardai/internal/config"
	"github.com/dashboardai/dashboardai/internal/logging"
	"github.com/dashboardai/dashboardai/pkg/backend"
	"github.com/dashboardai/dashboardai/pkg/kvstore"
)

const shutdownTimeout = 15 * time.Second

type serveCmd struct{}

func (cmd *serveCmd) Run(ctx context.Context, g *globals) error {
	app := fx.New(append(appOptions(g), fx.WithLogger(newEventLogger))...)
	if err := app.Start(ctx); err != nil {
		return err
	}
	<-app.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.Stop(stopCtx)
}

// appOptions is the fx graph of the service.
func appOptions(g *globals) []fx.Option {
	return []fx.Option{
		fx.Supply(g),
		fx.Provide(
			loadConfig,
			newLogger,
			logging.NewTelemetry,
			newStore,
			newBackend,
			newBroadcastHook,
			newChartRenderer,
			newDashboardService,
			newDashboardAPI,
			newIntegrations,
			newMetrics,
			newFunnel,
			newConnect,
			newServer,
		),
		fx.Invoke(registerRoutes, startServer),
	}
}

func newEventLogger(log *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: log}
}

func loadConfig(g *globals) (config.Config, error) {
	return config.Load(g.Config)
}

func newLogger(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() {
		_ = logger.Sync()
	}))
	return logger, nil
}

func newStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (kvstore.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	logger.Info("storage ready", zap.String("driver", cfg.Storage.Driver))
	lc.Append(fx.Hook{OnStop: store.Close})
	return store, nil
}

func newBackend(cfg config.Config, logger *zap.Logger) (backend.Client, error) {
	primary, err := backend.NewHTTPClient(backend.HTTPConfig{
		BaseURL:    cfg.Backend.BaseURL,
		AIBaseURL:  cfg.Backend.AIBaseURL,
		APIKey:     cfg.Backend.APIKey,
		HTTPClient: &http.Client{Timeout: cfg.Backend.Timeout},
		RateLimit:  cfg.Backend.RateLimit,
		Burst:      cfg.Backend.Burst,
	})
	if err != nil {
		return nil, err
	}
	if !cfg.Backend.DemoFallback {
		return primary, nil
	}
	logger.Info("demo fallback enabled for backend outages")
	return backend.NewFallbackClient(primary, backend.NewDemoClient(backend.DefaultDemoData()), logger), nil
}

func newBroadcastHook(lc fx.Lifecycle) *dashboard.BroadcastHook {
	hook := dashboard.NewBroadcastHook()
	lc.Append(fx.StopHook(hook.Close))
	return hook
}

func newChartRenderer(cfg config.Config) *dashboard.ChartRenderer {
	options := []dashboard.ChartRendererOption{
		dashboard.WithChartCache(dashboard.NewChartCache(cfg.Charts.CacheTTL)),
	}
	if cfg.Charts.Theme != "" {
		options = append(options, dashboard.WithChartTheme(cfg.Charts.Theme))
	}
	if cfg.Charts.AssetsHost != "" {
		options = append(options, dashboard.WithChartAssetsHost(cfg.Charts.AssetsHost))
	}
	return dashboard.NewChartRenderer(options...)
}

func newDashboardService(cfg config.Config, store kvstore.Store, hook *dashboard.BroadcastHook, renderer *dashboard.ChartRenderer, telemetry *logging.Telemetry, logger *zap.Logger) *dashboard.Service {
	forget := dashboard.RefreshHookFunc(func(_ context.Context, event dashboard.WidgetEvent) error {
		if event.WidgetID != "" {
			renderer.Forget(event.WidgetID)
		}
		return nil
	})
	return dashboard.NewService(dashboard.Options{
		Store:       dashboard.NewKVSnapshotStore(store, cfg.Storage.LayoutKey),
		RefreshHook: dashboard.MultiHook{forget, hook},
		Telemetry:   telemetry,
		Logger:      logger.Named("dashboard"),
	})
}

func newDashboardAPI(svc *dashboard.Service, renderer *dashboard.ChartRenderer, client backend.Client, telemetry *logging.Telemetry) httpapi.Executor {
	return httpapi.Wire(svc, renderer, client, telemetry)
}

func newIntegrations(client backend.Client, telemetry *logging.Telemetry, logger *zap.Logger) (*integrations.Service, error) {
	return integrations.NewService(integrations.Options{
		Client:    client,
		Logger:    logger.Named("integrations"),
		Telemetry: telemetry,
	})
}

func newMetrics(client backend.Client, logger *zap.Logger) (*metrics.Service, error) {
	return metrics.NewService(client, logger.Named("metrics"))
}

func newFunnel(store kvstore.Store, logger *zap.Logger) (*funnel.Service, error) {
	return funnel.NewService(funnel.Options{Store: store, Logger: logger.Named("funnel")})
}

// connectBundle groups the OAuth flow collaborators.
type connectBundle struct {
	Coordinator *connect.Coordinator
	Notifier    *connect.HubNotifier
	Providers   map[string]connect.ProviderConfig
	Callback    *connect.CallbackHandler
}

func newConnect(lc fx.Lifecycle, cfg config.Config, client backend.Client, accounts *integrations.Service, telemetry *logging.Telemetry, logger *zap.Logger) (*connectBundle, error) {
	logger = logger.Named("connect")
	secret := cfg.OAuth.StateSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("oauth.state_secret not set, using a per-process secret; pending flows will not survive a restart")
	}
	signer, err := connect.NewStateSigner(secret)
	if err != nil {
		return nil, err
	}
	notifier := connect.NewHubNotifier()
	coordinator, err := connect.NewCoordinator(connect.Options{
		Origin:                cfg.Server.Origin,
		Signer:                signer,
		PollInterval:          cfg.OAuth.PollInterval,
		Timeout:               cfg.OAuth.Timeout,
		DisableFocusHeuristic: !cfg.OAuth.FocusHeuristic,
		Refetcher:             accounts,
		Notifier:              notifier,
		Telemetry:             telemetry,
		Logger:                logger,
	})
	if err != nil {
		return nil, err
	}
	bundle := &connectBundle{
		Coordinator: coordinator,
		Notifier:    notifier,
		Providers:   map[string]connect.ProviderConfig{},
	}

	fb := cfg.OAuth.Facebook
	if fb.AppID == "" {
		logger.Warn("facebook app id not set, facebook connections disabled")
	} else {
		provider, err := connect.NewFacebookProvider(connect.FacebookConfig{
			AppID:       fb.AppID,
			AppSecret:   fb.AppSecret,
			RedirectURI: fb.RedirectURI,
			GraphURL:    fb.GraphURL,
			DialogURL:   fb.DialogURL,
			Scopes:      fb.Scopes,
		})
		if err != nil {
			return nil, err
		}
		bundle.Providers[connect.ProviderFacebook] = provider.Provider(cfg.OAuth.Timeout)
		bundle.Callback = connect.NewCallbackHandler(coordinator, provider, client, logger)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			err := coordinator.Close(ctx)
			notifier.Close()
			return err
		},
	})
	return bundle, nil
}

func newServer() router.Server[*fiber.App] {
	return router.NewFiberAdapter()
}

type routeDeps struct {
	fx.In

	Config       config.Config
	Server       router.Server[*fiber.App]
	Dashboard    httpapi.Executor
	Broadcast    *dashboard.BroadcastHook
	Connect      *connectBundle
	Integrations *integrations.Service
	Metrics      *metrics.Service
	Funnel       *funnel.Service
	Logger       *zap.Logger
}

func registerRoutes(d routeDeps) error {
	r := d.Server.Router()
	base := d.Config.Server.BasePath
	viewer := dashboardrouter.DefaultViewerResolver

	return errors.Join(
		dashboardrouter.Register(dashboardrouter.Config[*fiber.App]{
			Router:         r,
			API:            d.Dashboard,
			Broadcast:      d.Broadcast,
			ViewerResolver: viewer,
			BasePath:       base,
		}),
		connectrouter.Register(connectrouter.Config[*fiber.App]{
			Router:      r,
			Coordinator: d.Connect.Coordinator,
			Providers:   d.Connect.Providers,
			Callback:    d.Connect.Callback,
			Notifier:    d.Connect.Notifier,
			Logger:      d.Logger.Named("connect"),
			BasePath:    base,
		}),
		integrationsrouter.Register(integrationsrouter.Config[*fiber.App]{
			Router:       r,
			Integrations: d.Integrations,
			Metrics:      d.Metrics,
			BasePath:     base,
		}),
		funnelrouter.Register(funnelrouter.Config[*fiber.App]{
			Router:         r,
			Service:        d.Funnel,
			ViewerResolver: func(ctx router.Context) string { return viewer(ctx).UserID },
			BasePath:       base,
		}),
	)
}

func startServer(lc fx.Lifecycle, cfg config.Config, server router.Server[*fiber.App], logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Info("http server listening", zap.String("addr", cfg.Server.Addr), zap.String("base_path", cfg.Server.BasePath))
				if err := server.Serve(cfg.Server.Addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}

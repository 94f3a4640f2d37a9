package daemon

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"voxcrm/internal/auth"
	"voxcrm/internal/config"
	"voxcrm/internal/draft"
	"voxcrm/internal/logging"
	"voxcrm/internal/server"
	"voxcrm/internal/store"
	"voxcrm/internal/ws"
)

// Params holds the daemon invocation options.
type Params struct {
	ConfigPath string
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideStore,
			provideAuthService,
			provideDraftGenerator,
			provideDraftService,
			provideHub,
			provideServer,
			provideHTTPServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Server, error) {
	return config.LoadServer(p.ConfigPath)
}

func provideLogger(cfg *config.Server) (*zap.Logger, error) {
	return logging.New(cfg.LogPath, "voxcrmd")
}

func provideStore(cfg *config.Server, logger *zap.Logger) (*store.DB, error) {
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized")
	return db, nil
}

func provideAuthService(cfg *config.Server, db *store.DB, logger *zap.Logger) (*auth.Service, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return auth.NewService(db, cfg.JWTSecret, logger), nil
}

func provideDraftGenerator(cfg *config.Server, logger *zap.Logger) (draft.Generator, error) {
	if cfg.GenAIAPIKey == "" {
		logger.Warn("no GenAI API key configured, draft generation disabled")
		return draft.Disabled{}, nil
	}
	return draft.NewGeminiGenerator(context.Background(), cfg.GenAIAPIKey)
}

func provideDraftService(gen draft.Generator, logger *zap.Logger) *draft.Service {
	return draft.NewService(gen, logger)
}

func provideHub(logger *zap.Logger) *ws.Hub {
	return ws.NewHub(logger)
}

func provideServer(cfg *config.Server, authSvc *auth.Service, db *store.DB, drafts *draft.Service, hub *ws.Hub, logger *zap.Logger) *server.Server {
	return server.New(authSvc, db, drafts, hub, cfg.UploadsDir, cfg.AllowedOrigins, logger)
}

func provideHTTPServer(cfg *config.Server, srv *server.Server) *http.Server {
	return &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}
}

func registerLifecycle(lc fx.Lifecycle, httpSrv *http.Server, hub *ws.Hub, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go hub.Run()

			go func() {
				logger.Info("http server listening", zap.String("addr", httpSrv.Addr))
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := httpSrv.Shutdown(ctx); err != nil {
				logger.Warn("http shutdown error", zap.Error(err))
			}
			hub.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("store close error", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"creatorfin/internal/amqp"
	"creatorfin/internal/cache"
	"creatorfin/internal/cli"
	"creatorfin/internal/config"
	apphttp "creatorfin/internal/http"
	"creatorfin/internal/identity"
	"creatorfin/internal/ledger"
	"creatorfin/internal/log"
	"creatorfin/internal/services"
	"creatorfin/internal/tax"
	"creatorfin/internal/worker"
	"creatorfin/internal/youtube"
)

const (
	totalsCacheSize = 1000
	stateTTL        = 10 * time.Minute
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	cfg = cli.LoadAndValidateConfig(logger)

	logger.Info("Starting creatorfin",
		"backend", cfg.DataBackend,
		"auth_mode", cfg.AuthMode,
		"youtube_enabled", cfg.YouTubeEnabled())

	ctx := context.Background()
	be := cli.InitBackend(ctx, logger, cfg)
	store := be.Store

	totals, shared, closeCache := newTotalsCache(ctx, logger, cfg)

	// Ledger events are optional; a nil publisher disables them.
	var events amqp.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger events disabled", log.FieldError, err)
		} else {
			amqpClient = c
			events = c
			logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange)
		}
	}

	structured := log.NewStructuredLogger(logger)
	taxSvc := services.NewTaxService(store, totals)
	ledgerSvc := services.NewLedgerService(store, taxSvc, events, structured)
	dashSvc := services.NewDashboardService(store)

	// A process-local cache only sees its own writes; other instances'
	// writes arrive as ledger events.
	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	if amqpClient != nil && !shared {
		w := worker.NewInvalidationWorker(amqpClient, taxSvc, amqpClient.Origin(), logger)
		go func() {
			defer close(workerDone)
			_ = w.Run(workerCtx)
		}()
	} else {
		close(workerDone)
	}

	var yt apphttp.YouTube
	if cfg.YouTubeEnabled() {
		yt = newYouTubeService(cfg, store, taxSvc, events, logger)
	} else {
		logger.Info("YouTube integration disabled - GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set")
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:           ":" + cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPM:   cfg.RateLimitRPM,
		FrontendURL:    cfg.FrontendURL,
	}, apphttp.Deps{
		Tax:       taxSvc,
		Ledger:    ledgerSvc,
		Dashboard: dashSvc,
		YouTube:   yt,
		Ready:     store,
		Verifier:  newVerifier(cfg),
		Logger:    logger,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		stopWorker()
		select {
		case <-workerDone:
		case <-ctx.Done():
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		closeCache()
		if err := be.Close(); err != nil {
			logger.Error("Backend close error", log.FieldError, err)
		}
	})

	logger.Info("Starting HTTP server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

// newTotalsCache prefers Redis, which every instance shares, falling back
// to an in-process LRU.
func newTotalsCache(ctx context.Context, logger *log.Logger, cfg *config.Config) (c cache.Cache[tax.Totals], shared bool, closeFn func()) {
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err == nil {
			logger.Info("Using Redis totals cache")
			return cache.NewRedisCache[tax.Totals](client, "creatorfin:totals:", cfg.CacheTTL), true, func() { _ = client.Close() }
		}
		logger.Warn("Redis unavailable, using in-memory totals cache", log.FieldError, err)
	}

	lru := cache.NewLRUCache[tax.Totals](totalsCacheSize, cfg.CacheTTL)
	mgr := cache.NewManager()
	mgr.Register(lru)
	mgr.StartCleanup(cfg.CacheTTL)
	return lru, false, mgr.Stop
}

func newVerifier(cfg *config.Config) identity.Verifier {
	if cfg.AuthMode == "bearer" {
		return identity.BearerVerifier{}
	}
	return identity.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
}

func newYouTubeService(cfg *config.Config, store ledger.Store, taxSvc *services.TaxService, events amqp.Publisher, logger *log.Logger) *services.YouTubeService {
	httpClient := &http.Client{Timeout: cfg.OutboundTimeout}

	var state youtube.StateCodec = youtube.PlainState{}
	if cfg.OAuthStateSecret != "" {
		state = youtube.NewSignedState(cfg.OAuthStateSecret, stateTTL)
	}

	ytLogger := log.NewStructuredLogger(logger.WithComponent(log.ComponentOAuth))
	api := youtube.NewGoogleClient(httpClient, "")
	oauthCfg := youtube.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL())
	tokens := youtube.NewTokenManager(oauthCfg, store, api, state, httpClient, ytLogger)
	syncer := youtube.NewSyncer(store, store, api, tokens, ytLogger)

	logger.Info("YouTube integration enabled", "redirect_url", cfg.OAuthRedirectURL())
	return services.NewYouTubeService(tokens, syncer, taxSvc, events)
}

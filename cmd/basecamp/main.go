package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/scouttools/basecamp/pkg/api"
	"github.com/scouttools/basecamp/pkg/auth"
	"github.com/scouttools/basecamp/pkg/config"
	"github.com/scouttools/basecamp/pkg/events"
	"github.com/scouttools/basecamp/pkg/hierarchy"
	"github.com/scouttools/basecamp/pkg/identity"
	"github.com/scouttools/basecamp/pkg/middleware"
	"github.com/scouttools/basecamp/pkg/observability"
	"github.com/scouttools/basecamp/pkg/permissions"
	"github.com/scouttools/basecamp/pkg/registrations"
	"github.com/scouttools/basecamp/pkg/scope"
	"github.com/scouttools/basecamp/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	db, err := storage.NewConnectionManager(cfg.Storage, logger)
	if err != nil {
		logger.WithError(err).Error("database connection failed")
		os.Exit(1)
	}
	defer db.Close()

	// Redis is a cache layer only: without it the service still serves
	// traffic, paying a directory round trip per request instead.
	var redisClient *redis.Client
	if client, err := storage.NewRedisClient(cfg.Storage); err != nil {
		logger.WithError(err).Warn("redis unavailable; group caching disabled")
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	keycloak, err := identity.NewKeycloakResolver(ctx, cfg.Keycloak, logger, metrics)
	if err != nil {
		logger.WithError(err).Error("identity provider discovery failed")
		os.Exit(1)
	}

	var baseGroups identity.GroupResolver = keycloak
	if redisClient != nil {
		baseGroups = identity.NewRedisGroupCache(baseGroups, redisClient, cfg.Cache.GroupTTL, logger, metrics)
	}
	// Role and scope resolution go through the per-request memo the
	// authenticator seeds; the memo itself draws from the cached resolver.
	groups := middleware.NewContextGroupResolver(baseGroups)
	directory := identity.NewCachedDirectory(keycloak, cfg.Cache.DirectorySize, cfg.Cache.DirectoryTTL)

	units := hierarchy.NewPostgresStore(db.Replica())
	users := auth.NewPostgresStore(db.Primary())
	eventStore := events.NewPostgresStore(db.Primary())
	regStore := registrations.NewPostgresStore(db.Primary())

	resolver := permissions.NewResolver(groups, directory, logger, metrics)
	gate := permissions.NewGate(resolver)
	filter := scope.NewFilter(resolver, units, logger)
	authn := middleware.NewAuthenticator(keycloak, users, baseGroups, logger)

	server := api.NewServer(api.Deps{
		Events:        eventStore,
		Registrations: regStore,
		Units:         units,
		Gate:          gate,
		Filter:        filter,
		Authn:         authn,
		Logger:        logger,
		Metrics:       metrics,
	})

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	health := observability.NewHealthChecker(db.Primary(), redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api server shutdown incomplete")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("health server shutdown incomplete")
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		logger.WithError(err).Error("server failed")
		os.Exit(1)
	}
	logger.Info("stopped")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/loginlab/loginlab/pkg/api"
	"github.com/loginlab/loginlab/pkg/authz"
	"github.com/loginlab/loginlab/pkg/board"
	"github.com/loginlab/loginlab/pkg/config"
	"github.com/loginlab/loginlab/pkg/identity"
	"github.com/loginlab/loginlab/pkg/observability"
	"github.com/loginlab/loginlab/pkg/signup"
	"github.com/loginlab/loginlab/pkg/tokencache"
	"github.com/loginlab/loginlab/pkg/upstream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "loginlab: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	ctx := context.Background()
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	httpClient := &http.Client{
		Timeout:   cfg.Server.UpstreamTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	// One token cache per upstream API, shared by every component that
	// talks to it.
	auth0Tokens := tokencache.NewClientCredentials(
		"auth0",
		fmt.Sprintf("https://%s/oauth/token", cfg.Auth0.Domain),
		cfg.Auth0.MgmtClientID,
		cfg.Auth0.MgmtClientSecret,
		fmt.Sprintf("https://%s/api/v2/", cfg.Auth0.Domain),
		httpClient,
		tokencache.WithMetrics(metrics),
	)
	fgaTokens := tokencache.NewClientCredentials(
		"fga",
		fmt.Sprintf("https://%s/oauth/token", cfg.FGA.Issuer),
		cfg.FGA.ClientID,
		cfg.FGA.ClientSecret,
		fmt.Sprintf("https://%s/", cfg.FGA.APIHost),
		httpClient,
		tokencache.WithMetrics(metrics),
	)

	auth0Client := upstream.NewClient(
		"auth0",
		fmt.Sprintf("https://%s/api/v2", cfg.Auth0.Domain),
		auth0Tokens,
		httpClient,
		metrics,
	)
	fgaClient := upstream.NewClient(
		"fga",
		fmt.Sprintf("https://%s/stores/%s", cfg.FGA.APIHost, cfg.FGA.StoreID),
		fgaTokens,
		httpClient,
		metrics,
	)

	gateway := identity.NewGateway(auth0Client, cfg.Auth0)
	store := authz.NewClient(fgaClient)

	deps := api.Dependencies{
		Identity: gateway,
		Authz:    store,
		Sync:     authz.NewSynchronizer(store, metrics),
		Signup:   signup.NewService(gateway, cfg.Auth0, metrics),
	}

	var redisStore *board.RedisStore
	if cfg.Board.Enabled {
		switch cfg.Board.Backend {
		case "redis":
			redisStore, err = board.NewRedisStore(cfg.Board)
			if err != nil {
				return fmt.Errorf("failed to initialize redis board store: %w", err)
			}
			deps.Board = redisStore
		default:
			deps.Board = board.NewFirebaseStore(cfg.Board.FirebaseDatabaseURL, httpClient)
		}
		logger.Infof("Message board enabled with %s backend", cfg.Board.Backend)
	}

	handler := api.NewHandler(cfg.Server, logger, metrics, deps)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	if providers != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}
	if redisStore != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return redisStore.Close()
		})
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	shutdownDone := make(chan error, 1)
	go func() {
		shutdownDone <- shutdown.WaitForShutdown()
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case err := <-shutdownDone:
		return err
	}
}

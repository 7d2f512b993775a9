// Package server wires the rental services into the rentald processes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/rental/internal/auth"
	"github.com/MarkoPoloResearchLab/rental/internal/grpchealth"
	"github.com/MarkoPoloResearchLab/rental/internal/httpapi"
	"github.com/MarkoPoloResearchLab/rental/internal/reconciler"
	"github.com/MarkoPoloResearchLab/rental/internal/seed"
	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const shutdownTimeout = 5 * time.Second

// Serve runs the HTTP API, the optional gRPC health endpoint, and the optional
// reconciliation job until ctx is cancelled.
func Serve(ctx context.Context, cfg Config, logger *zap.Logger) error {
	if err := cfg.validateServe(); err != nil {
		return err
	}
	runtime, err := NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer runtime.Close()

	router, err := newRouter(cfg, runtime, logger)
	if err != nil {
		return err
	}

	if cfg.ReconcileInterval > 0 {
		job, err := reconciler.New(runtime.Ledger, cfg.ReconcileInterval, logger)
		if err != nil {
			return err
		}
		if err := job.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if stopErr := job.Stop(); stopErr != nil {
				logger.Warn("reconciler stop error", zap.Error(stopErr))
			}
		}()
	}

	errCh := make(chan error, 2)
	if cfg.GRPCHealthAddr != "" {
		grpcServer, err := startHealthServer(ctx, cfg, runtime.Store, logger, errCh)
		if err != nil {
			return err
		}
		defer grpcServer.GracefulStop()
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("rentald listening", zap.String("addr", cfg.ListenAddr), zap.Strings("conflict_policies", runtime.Ledger.Policies()))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case serveErr := <-errCh:
		return serveErr
	}
}

func newRouter(cfg Config, runtime *Runtime, logger *zap.Logger) (http.Handler, error) {
	sessions, err := auth.NewSessionIssuer(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.SessionTTL, runtime.Clock)
	if err != nil {
		return nil, err
	}
	validator, err := sessionvalidator.New(sessionvalidator.Config{
		SigningKey: []byte(cfg.JWTSigningKey),
		Issuer:     cfg.JWTIssuer,
		CookieName: cfg.JWTCookieName,
	})
	if err != nil {
		return nil, fmt.Errorf("session validator: %w", err)
	}
	router, err := httpapi.NewRouter(httpapi.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		CookieName:     cfg.JWTCookieName,
		CookieSecure:   cfg.CookieSecure,
	}, httpapi.Dependencies{
		Bookings:  runtime.Bookings,
		Catalog:   runtime.Catalog,
		Accounts:  runtime.Accounts,
		Sessions:  sessions,
		Validator: validator,
		Logger:    logger,
		Clock:     runtime.Clock,
	})
	if err != nil {
		return nil, err
	}
	return router, nil
}

func startHealthServer(ctx context.Context, cfg Config, pinger grpchealth.Pinger, logger *zap.Logger, errCh chan<- error) (*grpc.Server, error) {
	listener, err := net.Listen("tcp", cfg.GRPCHealthAddr)
	if err != nil {
		return nil, fmt.Errorf("listen grpc health: %w", err)
	}
	grpcServer := grpc.NewServer()
	checker := grpchealth.NewChecker(pinger, cfg.HealthInterval, logger)
	checker.Register(grpcServer)
	go checker.Run(ctx)
	go func() {
		logger.Info("gRPC health server starting", zap.String("listen_addr", cfg.GRPCHealthAddr))
		if serveErr := grpcServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			errCh <- serveErr
		}
	}()
	return grpcServer, nil
}

// Seed loads the sample catalog and the admin account.
func Seed(ctx context.Context, cfg Config, logger *zap.Logger) (seed.Result, error) {
	runtime, err := NewRuntime(ctx, cfg, logger)
	if err != nil {
		return seed.Result{}, err
	}
	defer runtime.Close()
	loader, err := seed.NewLoader(runtime.Catalog, runtime.Accounts, logger)
	if err != nil {
		return seed.Result{}, err
	}
	return loader.Run(ctx, seed.Admin{Email: cfg.AdminEmail, Password: cfg.AdminPassword}, seed.SampleCatalog)
}

// Reconcile runs one availability reconciliation pass.
func Reconcile(ctx context.Context, cfg Config, logger *zap.Logger) ([]rental.UnitID, error) {
	runtime, err := NewRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer runtime.Close()
	job, err := reconciler.New(runtime.Ledger, time.Minute, logger)
	if err != nil {
		return nil, err
	}
	return job.RunOnce(ctx)
}

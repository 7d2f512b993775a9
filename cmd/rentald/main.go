package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/rental/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	envPrefix = "RENTAL"

	flagDatabaseURL          = "database-url"
	flagStoreBackend         = "store-backend"
	flagListenAddr           = "listen-addr"
	flagGRPCHealthAddr       = "grpc-health-addr"
	flagConflictPolicy       = "conflict-policy"
	flagDefaultHourlyRate    = "default-hourly-rate-cents"
	flagAvailabilityPrecheck = "availability-precheck"
	flagRedisURL             = "redis-url"
	flagLockTTL              = "lock-ttl"
	flagKafkaBrokers         = "kafka-brokers"
	flagKafkaTopic           = "kafka-topic"
	flagReconcileInterval    = "reconcile-interval"
	flagAllowedOrigins       = "allowed-origins"
	flagJWTSigningKey        = "jwt-signing-key"
	flagJWTIssuer            = "jwt-issuer"
	flagJWTCookieName        = "jwt-cookie-name"
	flagCookieSecure         = "cookie-secure"
	flagSessionTTL           = "session-ttl"
	flagAdminEmail           = "admin-email"
	flagAdminPassword        = "admin-password"

	defaultDatabaseURL    = "sqlite:///tmp/rental.db"
	defaultListenAddr     = ":8080"
	defaultGRPCHealthAddr = ":7070"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rentald: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	settings := viper.New()
	cfg := &server.Config{}
	loader := func(cmd *cobra.Command, args []string) error {
		return loadConfig(settings, cmd.Flags(), cfg)
	}

	serve := &cobra.Command{
		Use:     "serve",
		Short:   "Run the booking HTTP API",
		PreRunE: loader,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLogger(cmd.Context(), func(ctx context.Context, logger *zap.Logger) error {
				return server.Serve(ctx, *cfg, logger)
			})
		},
	}
	seedCommand := &cobra.Command{
		Use:     "seed",
		Short:   "Load the sample catalog and the admin account",
		PreRunE: loader,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLogger(cmd.Context(), func(ctx context.Context, logger *zap.Logger) error {
				result, err := server.Seed(ctx, *cfg, logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "models=%d units=%d admin_created=%t\n", result.Models, result.Units, result.AdminCreated)
				return nil
			})
		},
	}
	reconcile := &cobra.Command{
		Use:     "reconcile",
		Short:   "Rederive unit availability flags once",
		PreRunE: loader,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLogger(cmd.Context(), func(ctx context.Context, logger *zap.Logger) error {
				corrected, err := server.Reconcile(ctx, *cfg, logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "corrected=%d\n", len(corrected))
				return nil
			})
		},
	}

	root := &cobra.Command{
		Use:           "rentald",
		Short:         "Vehicle rental booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE:       loader,
		RunE:          serve.RunE,
	}
	registerFlags(root.PersistentFlags())
	root.AddCommand(serve, seedCommand, reconcile)
	return root
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL URL, sqlite:// URL, or SQLite file path")
	flags.String(flagStoreBackend, server.StoreBackendGorm, "store implementation: gorm or pgx (pgx requires PostgreSQL)")
	flags.String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	flags.String(flagGRPCHealthAddr, defaultGRPCHealthAddr, "gRPC health listen address (empty disables)")
	flags.String(flagConflictPolicy, "unit", "conflict policies: unit or unit,renter")
	flags.Int64(flagDefaultHourlyRate, 0, "hourly rate in cents for models without one")
	flags.Bool(flagAvailabilityPrecheck, false, "consult the availability index before booking")
	flags.String(flagRedisURL, "", "Redis URL for distributed unit locks (empty uses in-process locks)")
	flags.Duration(flagLockTTL, 10*time.Second, "distributed lock lease")
	flags.String(flagKafkaBrokers, "", "comma-separated Kafka brokers (empty disables events)")
	flags.String(flagKafkaTopic, "rental.bookings", "Kafka topic for booking events")
	flags.Duration(flagReconcileInterval, 0, "availability reconciliation interval (0 disables)")
	flags.String(flagAllowedOrigins, "", "comma-separated CORS origins")
	flags.String(flagJWTSigningKey, "", "HS256 session signing key")
	flags.String(flagJWTIssuer, "tauth", "session token issuer")
	flags.String(flagJWTCookieName, "rental_session", "session cookie name")
	flags.Bool(flagCookieSecure, false, "mark the session cookie Secure")
	flags.Duration(flagSessionTTL, 24*time.Hour, "session lifetime")
	flags.String(flagAdminEmail, "", "admin account email for seed")
	flags.String(flagAdminPassword, "", "admin account password for seed")
}

func loadConfig(settings *viper.Viper, flags *pflag.FlagSet, cfg *server.Config) error {
	settings.SetEnvPrefix(envPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	if err := settings.BindPFlags(flags); err != nil {
		return err
	}

	*cfg = server.Config{
		DatabaseURL:            settings.GetString(flagDatabaseURL),
		StoreBackend:           settings.GetString(flagStoreBackend),
		ListenAddr:             settings.GetString(flagListenAddr),
		GRPCHealthAddr:         settings.GetString(flagGRPCHealthAddr),
		ConflictPolicy:         settings.GetString(flagConflictPolicy),
		DefaultHourlyRateCents: settings.GetInt64(flagDefaultHourlyRate),
		AvailabilityPrecheck:   settings.GetBool(flagAvailabilityPrecheck),
		RedisURL:               settings.GetString(flagRedisURL),
		LockTTL:                settings.GetDuration(flagLockTTL),
		KafkaBrokers:           server.ParseList(settings.GetString(flagKafkaBrokers)),
		KafkaTopic:             settings.GetString(flagKafkaTopic),
		ReconcileInterval:      settings.GetDuration(flagReconcileInterval),
		AllowedOrigins:         server.ParseList(settings.GetString(flagAllowedOrigins)),
		JWTSigningKey:          settings.GetString(flagJWTSigningKey),
		JWTIssuer:              settings.GetString(flagJWTIssuer),
		JWTCookieName:          settings.GetString(flagJWTCookieName),
		CookieSecure:           settings.GetBool(flagCookieSecure),
		SessionTTL:             settings.GetDuration(flagSessionTTL),
		AdminEmail:             settings.GetString(flagAdminEmail),
		AdminPassword:          settings.GetString(flagAdminPassword),
	}
	return cfg.Validate()
}

func withLogger(parent context.Context, run func(ctx context.Context, logger *zap.Logger) error) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	return run(ctx, logger)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authhttp "github.com/PaulFidika/walletauth/adapters/http"
	"github.com/PaulFidika/walletauth/core"
	"github.com/PaulFidika/walletauth/ens"
	jwtkit "github.com/PaulFidika/walletauth/jwt"
	"github.com/PaulFidika/walletauth/sweeper"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the wallet sign-in HTTP server",
		Long: `Serve the /siwe-wallet-agnostic/* routes, the JWKS document, and
Prometheus metrics at /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile, cmd.Flags())
			if err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			if err := cfg.Validate(); err != nil {
				return oops.Code("CONFIG_INVALID").Wrap(err)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	addServeFlags(cmd.Flags())
	return cmd
}

func runServe(ctx context.Context, cfg *config) error {
	logger, err := newLogger(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	chains, err := cfg.chainMap()
	if err != nil {
		return err
	}
	signer, err := loadSigner(cfg, logger)
	if err != nil {
		return err
	}
	issuer := jwtkit.NewIssuer(signer, cfg.Issuer, cfg.Domain, cfg.SessionTTL)

	anonymous := cfg.Anonymous
	svc, err := authhttp.NewService(core.Config{
		Domain:          cfg.Domain,
		URI:             cfg.URI,
		Chains:          chains,
		NonceExpiresIn:  cfg.NonceTTL,
		Anonymous:       &anonymous,
		EmailDomainName: cfg.EmailDomain,
		RPCTimeout:      cfg.RPCTimeout,
	}, issuer)
	if err != nil {
		return err
	}
	defer svc.Core().Close()

	reg := prometheus.DefaultRegisterer
	svc.WithLogger(logger).
		WithMetrics(reg).
		WithAuthLogger(core.NewZapAuthEventLogger(logger))
	cookie := authhttp.DefaultCookie()
	if cfg.CookieName != "" {
		cookie.Name = cfg.CookieName
	}
	cookie.Secure = !cfg.Dev
	svc.WithCookie(cookie)

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
		}
		defer pool.Close()
		if cfg.MigrateOnStart {
			if err := migrate(ctx, pool); err != nil {
				return err
			}
		}
		svc.WithPostgres(pool)
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis_url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		svc.WithRedis(rdb)
	}
	if cfg.ENSRPCURL != "" {
		names, closeENS, err := ens.Dial(ctx, cfg.ENSRPCURL, cfg.RPCTimeout)
		if err != nil {
			return fmt.Errorf("ens_rpc_url: %w", err)
		}
		defer closeENS()
		svc.WithNameLookup(names.WithLogger(logger).Func())
	}

	if cfg.SweepCron != "" {
		sw, err := sweeper.New(svc.Core(), cfg.SweepCron, logger)
		if err != nil {
			return err
		}
		sw.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = sw.Stop(sctx)
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/", svc.APIHandler())

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("walletauth listening", zap.String("addr", cfg.ListenAddr), zap.Bool("dev", cfg.Dev))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func loadSigner(cfg *config, logger *zap.Logger) (*jwtkit.Signer, error) {
	if cfg.SessionKeyFile == "" {
		logger.Warn("no session_key_file; generated an ephemeral signing key (sessions end on restart)")
		return jwtkit.NewRSASigner(2048, "dev")
	}
	pemBytes, err := os.ReadFile(cfg.SessionKeyFile)
	if err != nil {
		return nil, fmt.Errorf("session_key_file: %w", err)
	}
	return jwtkit.NewSignerFromPEM(pemBytes, "walletauth-1")
}

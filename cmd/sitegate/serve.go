package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/giantswarm/sitegate"
	"github.com/giantswarm/sitegate/instrumentation"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// site is the wired sitegate server with its HTTP surface.
type site struct {
	server  *sitegate.Server
	handler http.Handler
	inst    *instrumentation.Instrumentation
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the authentication endpoints",
		Long: `Serve the /authenticate and /check-auth endpoints.

The site password is read once at startup from the environment variable named
by --secret-env. The value may be the plain password or a bcrypt hash produced
by "sitegate hash-password". Without it every authentication fails closed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	registerServeFlags(cmd.Flags())

	return cmd
}

func runServe(ctx context.Context, cfg *serveConfig, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	slog.SetDefault(logger)

	s, err := buildSite(cfg, logger, os.LookupEnv)
	if err != nil {
		return err
	}
	s.server.Start()
	defer s.server.Stop()

	var obs *instrumentation.Server
	if cfg.MetricsListen != "" {
		obs = instrumentation.NewServer(cfg.MetricsListen, s.inst, s.server.Configured, logger)
		obsErrs, err := obs.Start()
		if err != nil {
			return err
		}
		go func() {
			if err, ok := <-obsErrs; ok && err != nil {
				logger.Error("Observability server failed", "error", err)
			}
		}()
	}

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.Listen).Wrap(err)
	}

	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()

	logger.Info("sitegate listening",
		"addr", listener.Addr().String(),
		"route_prefix", s.server.Config.RoutePrefix,
		"secret_configured", s.server.Configured())

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return oops.Code("LISTEN_FAILED").With("addr", cfg.Listen).Wrap(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if obs != nil {
		if err := obs.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.inst.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// buildSite reads the secret through lookupEnv and wires the server, its
// instrumentation and routes.
func buildSite(cfg *serveConfig, logger *slog.Logger, lookupEnv func(string) (string, bool)) (*site, error) {
	secret, ok := lookupEnv(cfg.SecretEnv)
	if ok && secret == "" {
		logger.Warn("Secret environment variable is set but empty", "source", cfg.SecretEnv)
	}

	inst, err := instrumentation.New(instrumentation.Config{
		ServiceName:     instrumentation.DefaultServiceName,
		ServiceVersion:  version,
		Enabled:         cfg.MetricsListen != "",
		LogClientIPs:    cfg.LogClientIPs,
		MetricsExporter: metricsExporter(cfg),
	})
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "instrumentation").Wrap(err)
	}

	siteCfg := cfg.siteConfig(secret)
	siteCfg.Logger = logger
	siteCfg.Instrumentation = inst

	server, err := sitegate.NewServer(siteCfg)
	if err != nil {
		_ = inst.Shutdown(context.Background())
		return nil, err
	}

	mux := http.NewServeMux()
	sitegate.NewHandler(server, logger).RegisterRoutes(mux)

	return &site{server: server, handler: mux, inst: inst}, nil
}

func metricsExporter(cfg *serveConfig) string {
	if cfg.MetricsListen == "" {
		return instrumentation.ExporterNone
	}
	return instrumentation.ExporterPrometheus
}

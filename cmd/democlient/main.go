// Command democlient is a reference client for the cubyznet reliability
// protocol: it dials a server, completes the INIT handshake, logs every
// event the connection emits, and serves its counters over Prometheus.
// Grounded on the teacher's core/main.go (banner, config load, signal-driven
// graceful shutdown) adapted from an in-process game server's startup to a
// CLI built with cobra/pflag, per the domain stack pulled from the rest of
// the retrieval pack rather than the teacher (which parses no flags at all).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cubyznet/config"
	"cubyznet/conn"
	"cubyznet/events"
	"cubyznet/pkg/logger"
	"cubyznet/pkg/metrics"

	"github.com/blang/semver"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"
)

// logLevelValue restricts --log-level to the levels pkg/logger understands,
// implementing pflag.Value so cobra rejects an unknown level at parse time
// instead of logrus silently defaulting at runtime.
type logLevelValue string

func (v *logLevelValue) String() string { return string(*v) }

func (v *logLevelValue) Set(s string) error {
	switch s {
	case "debug", "info", "warn", "error":
		*v = logLevelValue(s)
		return nil
	default:
		return errInvalidLogLevel(s)
	}
}

func (v *logLevelValue) Type() string { return "level" }

type errInvalidLogLevel string

func (e errInvalidLogLevel) Error() string {
	return "invalid log level " + string(e) + ": want debug, info, warn, or error"
}

var _ pflag.Value = (*logLevelValue)(nil)

var clientVersion = semver.MustParse("0.1.0")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Default()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "democlient",
		Short: "Reference client for the cubyznet reliability protocol",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile != "" {
				if err := config.LoadFile(cfgFile, &cfg); err != nil {
					return err
				}
			}
			if err := config.ApplyEnv(cmd.Context(), &cfg); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.ServerAddr, "server", cfg.ServerAddr, "server host:port to dial")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to serve Prometheus metrics on")
	logLevel := logLevelValue(cfg.LogLevel)
	flags.Var(&logLevel, "log-level", "log level: debug, info, warn, error")
	flags.StringVar(&cfgFile, "config", "", "path to a YAML config file")
	cmd.PreRunE = func(*cobra.Command, []string) error {
		cfg.LogLevel = string(logLevel)
		return nil
	}
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	log := logger.RateLimited(logger.New(cfg.LogLevel), rate.Limit(5), 10)
	logger.Banner("cubyznet democlient", clientVersion.String())

	logger.Section("metrics")
	registry := prometheus.NewRegistry()
	recorder := metrics.New(registry)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promHandler(registry)}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warnf("metrics server stopped: %v", err)
		}
	}()
	defer metricsSrv.Close()
	log.Infof("metrics listening on %s", cfg.MetricsAddr)

	logger.Section("connection")
	transport, sock, err := conn.Dial(cfg.ServerAddr)
	if err != nil {
		return err
	}
	defer sock.Close()

	handshakeID := uuid.New()
	c := conn.NewConnection(conn.Config{
		Transport:        transport,
		Sink:             eventSink(log),
		Logger:           log,
		Metrics:          recorder,
		HandshakePayload: handshakeID[:],
	}, time.Now())

	log.Infof("dialing %s, trace=%s, handshake_id=%s", cfg.ServerAddr, c.TraceID(), handshakeID)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.Run(runCtx, sock)
}

func eventSink(log logger.Logger) events.Sink {
	return func(e events.Event) {
		switch ev := e.(type) {
		case events.Connected:
			log.Infof("connected: remote_id=%d", ev.RemoteConnectionID)
		case events.Message:
			log.Debugf("message: channel=%d protocol=%d bytes=%d", ev.Channel, ev.ProtocolID, len(ev.Payload))
		case events.Disconnected:
			log.Warnf("disconnected: reason=%s err=%v", ev.Reason, ev.Err)
		}
	}
}

func promHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

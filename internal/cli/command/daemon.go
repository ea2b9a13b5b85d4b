package command

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/securekv/internal/config"
	"github.com/yndnr/securekv/internal/infra/confloader"
	"github.com/yndnr/securekv/internal/infra/shutdown"
	"github.com/yndnr/securekv/internal/telemetry/logger"
	"github.com/yndnr/securekv/internal/telemetry/metric"
	"github.com/yndnr/securekv/pkg/secret"
	"github.com/yndnr/securekv/pkg/securekv"
)

// DefaultShutdownTimeout bounds the daemon's shutdown hooks.
const DefaultShutdownTimeout = 10 * time.Second

// DaemonCommand returns the daemon command.
func DaemonCommand() *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Run the expiry sweeper until SIGINT or SIGTERM",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Sweep interval, overriding store.auto_clean_interval",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Reload the log level when the config file changes",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9090)",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "Maximum time for graceful shutdown",
				Value: DefaultShutdownTimeout,
			},
		},
		Action: daemonAction,
	}
}

func daemonAction(c *cli.Context) error {
	cfg, err := setup(c)
	if err != nil {
		return err
	}
	log := loggerOf(c)

	sc := cfg.StoreConfig()
	if c.IsSet("interval") {
		sc.AutoCleanInterval = c.Duration("interval")
	}
	if sc.AutoCleanInterval <= 0 {
		return cli.Exit("daemon: sweep interval must be positive (set store.auto_clean_interval or --interval)", 2)
	}
	if c.Bool("watch") && c.String("config") == "" {
		return cli.Exit("daemon: --watch requires --config", 2)
	}

	var reg *metric.Registry
	var opts []securekv.Option
	if c.String("metrics-addr") != "" {
		reg = metric.NewRegistry()
		opts = append(opts, securekv.WithRegisterer(reg.Registerer()))
	}

	s, err := openFrom(c, sc, opts...)
	if err != nil {
		return err
	}

	h := shutdown.NewHandler(c.Duration("shutdown-timeout"))
	h.OnShutdown(func(context.Context) error { return s.Close() })

	if reg != nil {
		if err := serveMetrics(c.String("metrics-addr"), reg, h, log); err != nil {
			return errors.Join(err, h.Shutdown())
		}
	}

	if c.Bool("watch") {
		flags, err := flagOverrides(c)
		if err == nil {
			err = watchConfig(c.String("config"), flags, h, log)
		}
		if err != nil {
			return errors.Join(err, h.Shutdown())
		}
	}

	attrs := []any{
		"backend", s.Kind(),
		"interval", sc.AutoCleanInterval,
		"encrypted", sc.UseEncryption,
	}
	if sc.UseEncryption {
		attrs = append(attrs, "fingerprint", secret.Fingerprint(sc.Secret))
	}
	log.Info("daemon started", attrs...)

	err = h.Wait(c.Context)
	log.Info("daemon stopped")
	return err
}

func serveMetrics(addr string, reg *metric.Registry, h *shutdown.Handler, log *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()
	h.OnShutdown(srv.Shutdown)

	log.Info("metrics server listening", "addr", ln.Addr().String())
	return nil
}

func watchConfig(path string, overrides map[string]any, h *shutdown.Handler, log *slog.Logger) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return err
	}

	w.OnChange(func(string) { reloadLogLevel(path, overrides, log) })
	w.StartAsync()
	h.OnShutdown(func(context.Context) error { return w.Stop() })
	return nil
}

// reloadLogLevel re-reads the config and applies its log level. Other
// settings take effect on the next start.
func reloadLogLevel(path string, overrides map[string]any, log *slog.Logger) {
	cfg, err := config.Load(path, overrides)
	if err != nil {
		log.Warn("config reload failed", "path", path, "error", err)
		return
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		log.Warn("config reload failed", "path", path, "error", err)
		return
	}
	log.Info("log level reloaded", "level", logger.GetLevel())
}

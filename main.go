package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/term"

	"github.com/zsprackett/audioid-web/internal/analyzer"
	"github.com/zsprackett/audioid-web/internal/applog"
	"github.com/zsprackett/audioid-web/internal/config"
	"github.com/zsprackett/audioid-web/internal/db"
	"github.com/zsprackett/audioid-web/internal/journal"
	"github.com/zsprackett/audioid-web/internal/metrics"
	"github.com/zsprackett/audioid-web/internal/monitor"
	"github.com/zsprackett/audioid-web/internal/notify"
	"github.com/zsprackett/audioid-web/internal/ui"
	"github.com/zsprackett/audioid-web/internal/webserver"
)

func openJournal(cfg config.JournalConfig) (*db.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, err
	}
	store, err := db.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func loadConfig() config.Config {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load config: %v\n", err)
		cfg = config.Defaults()
	}
	return cfg
}

func main() {
	// watch subcommand: terminal viewer attached to a running server.
	if len(os.Args) >= 2 && os.Args[1] == "watch" {
		if err := runWatch(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runServe(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runWatch(args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("watch needs a terminal")
	}
	cfg := loadConfig()

	url := fmt.Sprintf("ws://localhost:%d%s", cfg.Webserver.Port, cfg.Webserver.Path)
	if len(args) > 0 {
		url = args[0]
	}

	// The viewer owns the screen, so logs only go to the file.
	logger, logCloser, err := applog.Init(applog.InitConfig{
		LogDir:   cfg.LogDir,
		LogLevel: cfg.LogLevel,
		KeepDays: cfg.LogKeepDays,
	})
	if err != nil {
		logger = slog.New(slog.DiscardHandler)
	} else {
		defer logCloser.Close()
	}

	return ui.NewApp(url, cfg.History.MaxEvents, logger).Run()
}

func runServe() error {
	cfg := loadConfig()

	logger, logCloser, err := applog.Init(applog.InitConfig{
		LogDir:   cfg.LogDir,
		LogLevel: cfg.LogLevel,
		Console:  os.Stderr,
		KeepDays: cfg.LogKeepDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not init log file: %v\n", err)
		logger = slog.Default() // falls back to default (stderr)
	} else {
		defer logCloser.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := monitor.Options{
		Capacity: cfg.History.MaxEvents,
		Metrics:  m,
		Logger:   logger,
	}

	var journalStore webserver.Journal
	if cfg.Journal.Enabled {
		store, err := openJournal(cfg.Journal)
		if err != nil {
			return fmt.Errorf("could not open journal: %w", err)
		}
		defer store.Close()

		rec := journal.New(store, journal.Config{
			Retention: time.Duration(cfg.Journal.RetentionDays) * 24 * time.Hour,
		}, nil, m.JournalDropped, logger)
		rec.Start()
		defer rec.Stop()

		opts.Journal = rec
		journalStore = store
		logger.Info("journal: enabled", "path", cfg.Journal.Path, "retentionDays", cfg.Journal.RetentionDays)
	}

	if cfg.Notifications.Enabled {
		notifier := notify.New(notify.Config{
			Enabled: cfg.Notifications.Enabled,
			Webhook: cfg.Notifications.Webhook,
			NtfyURL: cfg.Notifications.NtfyURL,
			Labels:  cfg.Notifications.Labels,
		}, logger)
		notifier.OnResult(m.Notification)
		opts.Notifier = notifier
	}

	mon := monitor.New(opts)

	web := webserver.New(mon, journalStore, reg, webserver.Config{
		Port:      cfg.Webserver.Port,
		Host:      cfg.Webserver.Host,
		Path:      cfg.Webserver.Path,
		StaticDir: cfg.Webserver.StaticDir,
		TLS: webserver.TLSConfig{
			Mode:     cfg.Webserver.TLS.Mode,
			Domain:   cfg.Webserver.TLS.Domain,
			CertFile: cfg.Webserver.TLS.CertFile,
			KeyFile:  cfg.Webserver.TLS.KeyFile,
			CacheDir: cfg.Webserver.TLS.CacheDir,
		},
	}, logger)
	if err := web.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		web.Shutdown(shutdownCtx)
	}()

	proc, err := analyzer.Start(ctx, analyzer.Config{
		BinaryPath: cfg.Analyzer.BinaryPath,
		EventsFile: cfg.Analyzer.EventsFile,
		StateFile:  cfg.Analyzer.StateFile,
		Args:       cfg.Analyzer.Args,
	}, logger)
	if err != nil {
		return fmt.Errorf("could not start analyzer: %w", err)
	}
	logger.Info("analyzer: started", "pid", proc.Pid(), "binary", cfg.Analyzer.BinaryPath)

	err = mon.Run(ctx, proc.Lines())
	switch {
	case errors.Is(err, monitor.ErrSourceClosed):
		// Without the analyzer there is nothing left to relay.
		return proc.ExitError()
	case errors.Is(err, context.Canceled):
		logger.Info("shutting down")
		proc.Wait()
		return nil
	default:
		return err
	}
}

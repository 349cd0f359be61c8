package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"rostersync/internal/caldav"
	"rostersync/internal/config"
	"rostersync/internal/export"
	"rostersync/internal/gcal"
	appLog "rostersync/internal/log"
	"rostersync/internal/portal"
	"rostersync/internal/roster"
	rsync "rostersync/internal/sync"
	"rostersync/internal/web"
)

const version = "0.2.0"

type flagConfig struct {
	configPath string
	once       bool
	dryRun     bool
	assumeYes  bool
	exportPath string
	debug      bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("rostersync starting", "version", version)

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.exportPath != "" {
		cfg.ExportPath = flags.exportPath
	}
	if err := cfg.Validate(); err != nil {
		appLog.Error("invalid config", err)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"timezone", cfg.Timezone,
		"window_days", cfg.WindowDays,
		"navigation", fmt.Sprint(cfg.Navigation),
		"portal_driver", cfg.Portal.Driver,
		"calendar_backend", cfg.Calendar.Backend,
		"refresh", cfg.Refresh,
		"dry_run", flags.dryRun,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if cfg.Refresh == "" || flags.once {
		sum, err := runOnce(ctx, cfg, flags)
		if err != nil {
			appLog.Error("run failed", err)
			os.Exit(1)
		}
		reportSummary(sum)
		return
	}

	runScheduled(ctx, cfg, flags)
}

// runScheduled executes runs on the configured cron schedule until the
// context is canceled, serving run status over HTTP if configured.
// Scheduled runs never block on the operator prompt.
func runScheduled(ctx context.Context, cfg *config.Config, flags flagConfig) {
	flags.assumeYes = true

	var statusSrv *web.Server
	if cfg.Listen != "" {
		statusSrv = web.NewServer(cfg)
		httpSrv := &http.Server{Addr: cfg.Listen, Handler: statusSrv.Handler()}
		go func() {
			appLog.Info("status server listening", "listen", cfg.Listen)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLog.Error("status server failed", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
	}

	sched := cron.New()
	_, err := sched.AddFunc(cfg.Refresh, func() {
		sum, err := runOnce(ctx, cfg, flags)
		if err != nil {
			appLog.Error("scheduled run failed", err)
			return
		}
		reportSummary(sum)
		if statusSrv != nil {
			statusSrv.Publish(sum)
		}
	})
	if err != nil {
		appLog.Error("bad refresh cron expression", err, "refresh", cfg.Refresh)
		os.Exit(1)
	}

	sched.Start()
	appLog.Info("scheduler started", "refresh", cfg.Refresh)

	<-ctx.Done()
	stopCtx := sched.Stop()
	<-stopCtx.Done()
	appLog.Info("rostersync exiting")
}

// runOnce performs one full login → aggregate → export → reconcile
// cycle and returns its summary.
func runOnce(ctx context.Context, cfg *config.Config, flags flagConfig) (*rsync.Summary, error) {
	loc := cfg.Location()

	session, err := newSession(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	var ack rsync.Acknowledger
	if flags.assumeYes {
		ack = rsync.AutoAcknowledger{}
	} else {
		ack = &rsync.StdinAcknowledger{In: os.Stdin, Out: os.Stdout}
	}

	builder := roster.NewBuilder(loc, cfg.SiteLocation)
	agg := rsync.NewAggregator(session, builder, ack)

	sum := &rsync.Summary{}
	set, err := agg.Run(ctx, cfg.Steps(), sum)
	if err != nil {
		return nil, err
	}

	if cfg.ExportPath != "" {
		if err := export.WriteFile(cfg.ExportPath, set); err != nil {
			appLog.Error("ics export failed", err, "path", cfg.ExportPath)
		}
	}

	if flags.dryRun {
		sum.DryRun = true
	} else {
		api, err := newCalendar(ctx, cfg)
		if err != nil {
			return nil, err
		}
		win := rsync.WindowFrom(time.Now(), cfg.WindowDays, loc)
		rsync.NewReconciler(api).Reconcile(ctx, set, win, sum)
	}

	sum.FinishedAt = time.Now()
	return sum, nil
}

func newSession(ctx context.Context, cfg *config.Config) (portal.Session, error) {
	creds := portal.Credentials{
		Username: cfg.Portal.Username,
		Password: cfg.Portal.Password,
	}

	switch cfg.Portal.Driver {
	case "http":
		return portal.NewFormSession(portal.FormOptions{
			LoginURL:    cfg.Portal.LoginURL,
			RosterURL:   cfg.Portal.RosterURL,
			Credentials: creds,
		})
	default:
		return portal.NewBrowserSession(ctx, portal.BrowserOptions{
			LoginURL:    cfg.Portal.LoginURL,
			Credentials: creds,
			SettleDelay: time.Duration(cfg.Portal.SettleDelayMS) * time.Millisecond,
		})
	}
}

func newCalendar(ctx context.Context, cfg *config.Config) (rsync.CalendarAPI, error) {
	switch cfg.Calendar.Backend {
	case "caldav":
		return caldav.New(caldav.Options{
			BaseURL:      cfg.Calendar.CalDAV.URL,
			CalendarPath: cfg.Calendar.CalDAV.CalendarPath,
			Username:     cfg.Calendar.CalDAV.Username,
			Password:     cfg.Calendar.CalDAV.Password,
			AlarmEmail:   cfg.Calendar.CalDAV.AlarmEmail,
		})
	default:
		return gcal.New(ctx, gcal.Options{
			CalendarID:      cfg.Calendar.Google.CalendarID,
			CredentialsFile: cfg.Calendar.Google.CredentialsFile,
			TimeZone:        cfg.Timezone,
		})
	}
}

func reportSummary(sum *rsync.Summary) {
	appLog.Info("run summary",
		"pages", sum.PagesParsed,
		"events_built", sum.EventsBuilt,
		"non_shift", sum.NonShiftCells,
		"malformed", len(sum.Malformed),
		"skipped", len(sum.Skipped),
		"deleted", sum.Deleted,
		"created", sum.Created,
		"clean", sum.Clean(),
	)
	for _, raw := range sum.Malformed {
		appLog.Warn("malformed cell was skipped", "text", raw)
	}
	for _, rec := range sum.Skipped {
		appLog.Warn("record was skipped", "record", rec)
	}
	for _, id := range sum.DeleteFailed {
		appLog.Warn("remote delete failed", "id", id)
	}
	for _, key := range sum.CreateFailed {
		appLog.Warn("remote create failed", "key", key)
	}
	if sum.NavigationErr != "" {
		appLog.Warn("pagination was cut short", "err", sum.NavigationErr)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "rostersync.yaml", "Path to config file")
	flag.BoolVar(&cfg.once, "once", false, "Run a single cycle even if a refresh schedule is configured")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "Aggregate and export only; do not touch the remote calendar")
	flag.BoolVar(&cfg.assumeYes, "assume-yes", false, "Skip malformed cells without prompting")
	flag.StringVar(&cfg.exportPath, "export", "", "Write aggregated shifts to this ICS file (overrides config)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

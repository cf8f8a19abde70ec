package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"dealwatch/internal/adapters/config"
	"dealwatch/internal/adapters/ebay"
	"dealwatch/internal/adapters/errors/noop"
	"dealwatch/internal/adapters/errors/sentry"
	"dealwatch/internal/control"
	"dealwatch/internal/metrics"
	"dealwatch/internal/notify"
	"dealwatch/internal/repository/sqlite"
	"dealwatch/internal/scraper"
	"dealwatch/pkg/errors"
	"dealwatch/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := initLogger(cfg); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Initialize metrics
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metrics.Init()
		metricsSrv = metrics.Serve(cfg.Metrics.Addr, log)
	}

	// Initialize seen-item ledger
	store, err := sqlite.Open(cfg.Ledger.Path)
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}
	defer store.Close()

	// Load watch rules
	rules, err := config.LoadRules(cfg.Scraper.RulesPath, cfg.Scraper.IncludeShippingInPriceFilter)
	if err != nil {
		log.Fatalf("Failed to load rules: %v", err)
	}
	log.Infof("Loaded %d watch rules over %d categories", len(rules.Rules), len(rules.CategoryIDs()))

	// Initialize marketplace client and notification sinks
	client := ebay.NewClient(ebay.Config{
		AppID:       cfg.Ebay.AppID,
		CertID:      cfg.Ebay.CertID,
		Marketplace: cfg.Ebay.Marketplace,
		Limit:       cfg.Ebay.Limit,
		HTTPTimeout: cfg.Ebay.HTTPTimeout,
	})
	notifier := initNotifier(cfg, log)

	// Initialize cycle runner and scheduler
	runner := scraper.NewRunner(client, store, notifier,
		cfg.Scraper.NotifyInterval, cfg.Scraper.IncludeShippingInDealEvaluation)

	window := initSleepWindow(cfg, log)
	sched := scraper.New(scraper.Config{
		PollInterval:       cfg.Scraper.PollInterval,
		StartOnCommand:     cfg.Scraper.StartOnCommand,
		Window:             window,
		BackoffDelay:       cfg.Scraper.BackoffDelay,
		PauseCheckInterval: cfg.Scraper.PauseCheckInterval,
	}, runner, store, rules)

	logCallEstimate(cfg, rules.CategoryIDs(), window, log)
	log.Info("System initialized successfully")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	startControlListener(ctx, cancel, cfg, sched, log)
	startLedgerCleanup(ctx, cfg, store, log)

	// Run the poll loop until shutdown or fatal escalation
	err = sched.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Get().ErrorWithContext(ctx, err, map[string]string{"component": "main"})
		flushTracker(errorTracker, log)
		shutdownMetrics(metricsSrv)
		log.Fatalf("Scheduler stopped: %v", err)
	}

	log.Info("Shutting down...")
	flushTracker(errorTracker, log)
	shutdownMetrics(metricsSrv)
	log.Info("Shutdown complete")
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// initLogger initializes structured logging
func initLogger(cfg *config.Config) error {
	return logger.Init(cfg.App.LogLevel, cfg.App.Env)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initNotifier builds the notification fan-out from the enabled sinks
func initNotifier(cfg *config.Config, log *logger.Logger) notify.Notifier {
	var sinks []notify.Notifier

	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			log.Fatalf("Failed to create Telegram sink: %v", err)
		}
		sinks = append(sinks, tg)
		log.Info("Telegram notifications enabled")
	}

	if cfg.Webhook.Enabled {
		sinks = append(sinks, notify.NewWebhook(cfg.Webhook.URL))
		log.Info("Webhook notifications enabled")
	}

	if len(sinks) == 0 {
		log.Warn("No notification sinks enabled, matches will only be logged")
		return notify.NewLog()
	}
	return notify.NewMulti(sinks...)
}

// initSleepWindow parses the configured quiet period, if any
func initSleepWindow(cfg *config.Config, log *logger.Logger) *scraper.SleepWindow {
	if cfg.Scraper.SleepStart == "" {
		return nil
	}

	window, err := scraper.ParseSleepWindow(cfg.Scraper.SleepStart, cfg.Scraper.SleepEnd)
	if err != nil {
		log.Fatalf("Invalid sleep window: %v", err)
	}
	log.Infof("Sleep window enabled: %s", window)
	return window
}

// logCallEstimate projects daily API usage and warns when it exceeds the
// free-tier allowance.
func logCallEstimate(cfg *config.Config, categories []int64, window *scraper.SleepWindow, log *logger.Logger) {
	est := scraper.EstimateDailyCalls(cfg.Scraper.PollInterval, len(categories), window)
	log.Infow("Projected API usage",
		"polls_per_day", est.PollsPerDay,
		"categories", est.UniqueCategories,
		"calls_per_day", est.CallsPerDay,
	)
	if est.ExceedsLimit() {
		log.Warnf("Projected %d calls/day exceeds the %d daily limit; increase POLL_INTERVAL or trim categories",
			est.CallsPerDay, scraper.BrowseAPIDailyLimit)
	}
}

// startControlListener wires stdin commands to the scheduler
func startControlListener(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, sched *scraper.Scheduler, log *logger.Logger) {
	listener := control.NewListener(control.Commands{
		Start:  sched.Start,
		Pause:  sched.Pause,
		Resume: sched.Resume,
		Reload: func() {
			rules, err := config.LoadRules(cfg.Scraper.RulesPath, cfg.Scraper.IncludeShippingInPriceFilter)
			if err != nil {
				log.Errorf("Rules reload failed, keeping previous rules: %v", err)
				return
			}
			sched.Reload(rules)
		},
		Status: func() string { return sched.State().String() },
		Quit:   cancel,
	})
	go listener.Run(ctx)
}

// startLedgerCleanup prunes old ledger records on a fixed schedule
func startLedgerCleanup(ctx context.Context, cfg *config.Config, store *sqlite.SeenStore, log *logger.Logger) {
	maxAge := time.Duration(cfg.Ledger.RetentionDays) * 24 * time.Hour

	go func() {
		ticker := time.NewTicker(cfg.Ledger.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := store.Cleanup(ctx, maxAge)
				if err != nil {
					log.Errorf("Ledger cleanup failed: %v", err)
					continue
				}
				if removed > 0 {
					metrics.LedgerCleanupRemoved.Add(float64(removed))
					log.Infof("Ledger cleanup removed %d records", removed)
				}
			}
		}
	}()
}

// flushTracker drains pending error-tracker events before exit
func flushTracker(tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}
	if err := tracker.Flush(context.Background()); err != nil {
		log.Warnf("Failed to flush error tracker: %v", err)
	}
}

// shutdownMetrics stops the metrics endpoint
func shutdownMetrics(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dealwatch/pkg/logger"
)

var (
	// Cycle metrics
	CycleRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealwatch_cycle_runs_total",
			Help: "Total number of scrape cycles",
		},
		[]string{"status"}, // status: success|error
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dealwatch_cycle_duration_seconds",
			Help:    "Scrape cycle duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	ListingsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dealwatch_listings_processed_total",
			Help: "Total number of previously unseen listings evaluated",
		},
	)

	MatchesFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealwatch_matches_total",
			Help: "Total number of listings that matched a watch rule",
		},
		[]string{"rule", "tier"},
	)

	// Marketplace API metrics
	MarketAPICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealwatch_market_api_calls_total",
			Help: "Total number of marketplace search API calls",
		},
		[]string{"status"}, // status: success|http_error|auth_error|transport_error
	)

	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealwatch_token_refreshes_total",
			Help: "Total number of marketplace OAuth token refreshes",
		},
		[]string{"status"}, // status: success|error
	)

	// Notification metrics
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealwatch_notifications_total",
			Help: "Total number of match notifications dispatched",
		},
		[]string{"sink", "status"}, // status: success|error
	)

	// Ledger metrics
	LedgerCleanupRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dealwatch_ledger_cleanup_removed_total",
			Help: "Total number of seen-item records removed by retention cleanup",
		},
	)

	// Scheduler metrics
	SchedulerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dealwatch_scheduler_state",
			Help: "Scheduler state (0=idle, 1=active, 2=sleeping, 3=paused, 4=backoff, 5=fatal)",
		},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(CycleRuns)
	prometheus.MustRegister(CycleDuration)
	prometheus.MustRegister(ListingsProcessed)
	prometheus.MustRegister(MatchesFound)

	prometheus.MustRegister(MarketAPICalls)
	prometheus.MustRegister(TokenRefreshes)

	prometheus.MustRegister(NotificationsSent)

	prometheus.MustRegister(LedgerCleanupRemoved)
	prometheus.MustRegister(SchedulerState)
}

// Serve starts the Prometheus scrape endpoint on addr. The returned server
// can be shut down by the caller during graceful shutdown.
func Serve(addr string, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infow("Metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("Metrics server failed", "error", err)
		}
	}()

	return srv
}

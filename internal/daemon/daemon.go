// ABOUTME: Long-running sync daemon: periodic timeline sync plus HTTP surface
// ABOUTME: Exposes health and Prometheus metrics while syncing on an interval

package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roostchat/roost/internal/chat"
)

// Options configure a Daemon.
type Options struct {
	// HTTPAddr is where the health and metrics endpoints listen.
	HTTPAddr string
	// SyncInterval is the pause between sync runs.
	SyncInterval time.Duration
	// MaxPages caps how deep each sync run pages into the timeline.
	MaxPages int
	// MetricsEnabled exposes the Prometheus endpoint when true.
	MetricsEnabled bool
	// MetricsPath is the metrics endpoint path, typically /metrics.
	MetricsPath string
	// Logger for daemon events. Nil uses the default.
	Logger *slog.Logger
}

// Daemon periodically syncs the direct timeline into the local store and
// serves health and metrics endpoints while doing so.
type Daemon struct {
	engine  *chat.Engine
	opts    Options
	logger  *slog.Logger
	server  *http.Server
	metrics *metrics

	// lastStats snapshots the engine counters after each run so the next
	// run's delta can feed the counters.
	lastStats chat.Stats
}

type metrics struct {
	registry        *prometheus.Registry
	syncsTotal      prometheus.Counter
	syncErrors      prometheus.Counter
	pagesFetched    prometheus.Counter
	messagesStored  prometheus.Counter
	messagesDropped prometheus.Counter
	lastSync        prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		syncsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roost_syncs_total",
			Help: "Completed sync runs, successful or not.",
		}),
		syncErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roost_sync_errors_total",
			Help: "Sync runs that ended with a fetch or store error.",
		}),
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roost_pages_fetched_total",
			Help: "Timeline pages fetched across all sync runs.",
		}),
		messagesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roost_messages_stored_total",
			Help: "Messages stored into the local database.",
		}),
		messagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roost_messages_dropped_total",
			Help: "Messages dropped because no counterpart could be resolved.",
		}),
		lastSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roost_last_sync_timestamp_seconds",
			Help: "Unix time of the most recent completed sync run.",
		}),
	}
	m.registry.MustRegister(
		m.syncsTotal,
		m.syncErrors,
		m.pagesFetched,
		m.messagesStored,
		m.messagesDropped,
		m.lastSync,
	)
	return m
}

// New creates a daemon around the given engine.
func New(engine *chat.Engine, opts Options) *Daemon {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	d := &Daemon{
		engine:  engine,
		opts:    opts,
		logger:  opts.Logger.With("component", "daemon"),
		metrics: newMetrics(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", d.handleHealthz).Methods(http.MethodGet)
	if opts.MetricsEnabled {
		router.Handle(opts.MetricsPath, promhttp.HandlerFor(d.metrics.registry, promhttp.HandlerOpts{}))
	}

	d.server = &http.Server{
		Addr:              opts.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return d
}

// Run syncs immediately, then on every interval tick, until ctx is
// cancelled. The HTTP server runs for the same span; Run returns after
// it has shut down.
func (d *Daemon) Run(ctx context.Context) error {
	httpErr := make(chan error, 1)
	go func() {
		d.logger.Info("daemon http listening", "addr", d.opts.HTTPAddr)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
			return
		}
		httpErr <- nil
	}()

	ticker := time.NewTicker(d.opts.SyncInterval)
	defer ticker.Stop()

	d.syncOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := d.server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return <-httpErr
		case err := <-httpErr:
			return err
		case <-ticker.C:
			d.syncOnce(ctx)
		}
	}
}

// syncOnce drives one full StoreMessages stream to completion and folds
// the outcome into the metrics.
func (d *Daemon) syncOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	results := chat.Collect(d.engine.StoreMessages(ctx, d.opts.MaxPages).Subscribe())

	pages := 0
	failed := false
	for _, r := range results {
		switch r.Kind {
		case chat.KindSuccess:
			if r.More {
				pages++
			}
		case chat.KindError:
			failed = true
		}
	}

	stats := d.engine.Stats()
	stored := stats.Stored - d.lastStats.Stored
	dropped := stats.Dropped - d.lastStats.Dropped
	d.lastStats = stats

	d.metrics.syncsTotal.Inc()
	d.metrics.pagesFetched.Add(float64(pages))
	d.metrics.messagesStored.Add(float64(stored))
	d.metrics.messagesDropped.Add(float64(dropped))
	d.metrics.lastSync.SetToCurrentTime()
	if failed {
		d.metrics.syncErrors.Inc()
	}

	d.logger.Info("sync run complete",
		"pages", pages,
		"stored", stored,
		"dropped", dropped,
		"failed", failed,
		"duration", time.Since(start))
}

func (d *Daemon) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

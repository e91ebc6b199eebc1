package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/clickgrab/internal/model"
)

const namespace = "clickgrab"

// Site outcomes.
const (
	outcomeAttack   = "attack"
	outcomeClean    = "clean"
	outcomeExcluded = "excluded"
)

// Recorder collects site and run metrics.
type Recorder struct {
	registry *prometheus.Registry

	sitesAnalyzed *prometheus.CounterVec
	siteErrors    *prometheus.CounterVec
	siteSeconds   prometheus.Histogram

	runSitesScanned     prometheus.Gauge
	runSitesWithAttacks prometheus.Gauge
	runAttacks          *prometheus.GaugeVec
	runPowerShell       prometheus.Gauge
	runNewPatterns      prometheus.Gauge
	runDuration         prometheus.Gauge
	runTimestamp        prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() (*Recorder, error) {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.sitesAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sites_analyzed_total",
			Help:      "Sites analyzed, by outcome",
		},
		[]string{"outcome"},
	)
	r.siteErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "site_errors_total",
			Help:      "Recoverable per-site errors, by kind",
		},
		[]string{"kind"},
	)
	r.siteSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "site_analysis_seconds",
		Help:      "Time spent analyzing one site",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	})

	r.runSitesScanned = r.gauge("run_sites_scanned", "Sites scanned in the last run")
	r.runSitesWithAttacks = r.gauge("run_sites_with_attacks", "Sites with at least one attack in the last run")
	r.runAttacks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_attacks",
			Help:      "Attacks observed in the last run, by kind",
		},
		[]string{"kind"},
	)
	r.runPowerShell = r.gauge("run_powershell_indicators", "PowerShell indicators in the last run")
	r.runNewPatterns = r.gauge("run_new_patterns", "Patterns absent from the previous run")
	r.runDuration = r.gauge("run_duration_seconds", "Duration of the last run")
	r.runTimestamp = r.gauge("run_timestamp_seconds", "Unix time the last run completed")

	collectors := []prometheus.Collector{
		r.sitesAnalyzed, r.siteErrors, r.siteSeconds,
		r.runSitesScanned, r.runSitesWithAttacks, r.runAttacks,
		r.runPowerShell, r.runNewPatterns, r.runDuration, r.runTimestamp,
	}
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return r, nil
}

func (r *Recorder) gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	})
}

// ObserveSite implements pipeline.SiteObserver. It is safe for concurrent use.
func (r *Recorder) ObserveSite(site *model.AnalyzedSite, elapsed time.Duration) {
	outcome := outcomeClean
	switch {
	case site.Excluded():
		outcome = outcomeExcluded
	case site.HasAttack():
		outcome = outcomeAttack
	}
	r.sitesAnalyzed.WithLabelValues(outcome).Inc()
	for _, e := range site.Errors {
		r.siteErrors.WithLabelValues(string(e.Kind)).Inc()
	}
	r.siteSeconds.Observe(elapsed.Seconds())
}

// ObserveRun implements pipeline.RunObserver.
func (r *Recorder) ObserveRun(report *model.Report, elapsed time.Duration) {
	r.runSitesScanned.Set(float64(report.SitesScanned()))
	r.runSitesWithAttacks.Set(float64(report.SitesWithAttacks()))
	r.runAttacks.WithLabelValues("clipboard").Set(float64(report.ClipboardCount()))
	r.runAttacks.WithLabelValues("command").Set(float64(report.CommandCount()))
	r.runPowerShell.Set(float64(report.PowerShellCount()))
	r.runNewPatterns.Set(float64(report.NewPatterns()))
	r.runDuration.Set(elapsed.Seconds())
	r.runTimestamp.SetToCurrentTime()
}

// Registry returns the registry holding the metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the metrics in the text exposition format to path,
// atomically, for the node-exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

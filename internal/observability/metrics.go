package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline stage labels.
const (
	StageEnumerate = "enumerate"
	StageLoad      = "load"
	StageDistance  = "distance"
	StageSelect    = "select"
	StageCellStats = "cell_stats"
	StageFeatures  = "features"
	StageWrite     = "write"
)

// PipelineCollector bundles Prometheus metrics for one dataset generation
// batch.
type PipelineCollector struct {
	gatherer prometheus.Gatherer

	RunsLoaded     prometheus.Counter
	UESamples      prometheus.Counter
	GroupsSelected prometheus.Counter
	TrainingRows   prometheus.Gauge
	LastSuccess    prometheus.Gauge
	StageDurations *prometheus.HistogramVec
}

// NewPipelineCollector registers pipeline metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewPipelineCollector(reg prometheus.Registerer) (*PipelineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_runs_loaded_total",
		Help: "Number of simulation run databases loaded.",
	}), "pipeline_runs_loaded_total")
	if err != nil {
		return nil, err
	}
	samples, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_ue_samples_total",
		Help: "Number of UE samples read from run databases.",
	}), "pipeline_ue_samples_total")
	if err != nil {
		return nil, err
	}
	groups, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_groups_selected_total",
		Help: "Number of (scenario, run-id, simulationtime) groups resolved to an optimal start-config.",
	}), "pipeline_groups_selected_total")
	if err != nil {
		return nil, err
	}
	rows, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_training_rows",
		Help: "Number of rows in the last written training dataset.",
	}), "pipeline_training_rows")
	if err != nil {
		return nil, err
	}
	lastSuccess, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_last_success_timestamp_seconds",
		Help: "Unix time of the last successful dataset generation.",
	}), "pipeline_last_success_timestamp_seconds")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Wall-clock duration of each pipeline stage.",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"stage"})
	durations, err = registerHistogramVec(reg, durations, "pipeline_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &PipelineCollector{
		gatherer:       gatherer,
		RunsLoaded:     runs,
		UESamples:      samples,
		GroupsSelected: groups,
		TrainingRows:   rows,
		LastSuccess:    lastSuccess,
		StageDurations: durations,
	}, nil
}

// ObserveStage records how long stage took.
func (c *PipelineCollector) ObserveStage(stage string, d time.Duration) {
	if c == nil || c.StageDurations == nil {
		return
	}
	c.StageDurations.WithLabelValues(stage).Observe(d.Seconds())
}

// RunLoaded counts one loaded run and its samples.
func (c *PipelineCollector) RunLoaded(samples int) {
	if c == nil {
		return
	}
	if c.RunsLoaded != nil {
		c.RunsLoaded.Inc()
	}
	if c.UESamples != nil {
		c.UESamples.Add(float64(samples))
	}
}

// GroupsResolved counts resolved selection groups.
func (c *PipelineCollector) GroupsResolved(n int) {
	if c == nil || c.GroupsSelected == nil {
		return
	}
	c.GroupsSelected.Add(float64(n))
}

// DatasetWritten records the size of a successfully written dataset.
func (c *PipelineCollector) DatasetWritten(rows int, at time.Time) {
	if c == nil {
		return
	}
	if c.TrainingRows != nil {
		c.TrainingRows.Set(float64(rows))
	}
	if c.LastSuccess != nil {
		c.LastSuccess.Set(float64(at.Unix()))
	}
}

// WriteTextfile dumps every gathered metric to path in the text exposition
// format read by the node_exporter textfile collector.
func (c *PipelineCollector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile %q: %w", path, err)
	}
	return nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

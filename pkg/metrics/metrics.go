package metrics

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boristopalov/irrigation/pkg/core"
	"github.com/boristopalov/irrigation/pkg/environment"
)

const namespace = "irrigation"

// Collector groups the training and simulation metrics on a private registry
type Collector struct {
	registry *prometheus.Registry

	StepsTotal    *prometheus.CounterVec
	EpisodesTotal prometheus.Counter
	EpisodeReward prometheus.Histogram
	SoilMoisture  prometheus.Gauge
	Epsilon       prometheus.Gauge
	StepErrors    prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		StepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Environment steps taken, by irrigation action.",
			},
			[]string{"action"},
		),
		EpisodesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_total",
			Help:      "Episodes completed.",
		}),
		EpisodeReward: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "episode_reward",
			Help:      "Total reward per episode.",
			Buckets:   prometheus.LinearBuckets(-200, 20, 11),
		}),
		SoilMoisture: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "soil_moisture_percent",
			Help:      "Soil moisture after the latest step.",
		}),
		Epsilon: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exploration_epsilon",
			Help:      "Current exploration rate of the learning agent.",
		}),
		StepErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_errors_total",
			Help:      "Steps rejected by the environment or failed agent decisions.",
		}),
	}
}

// ObserveStep records one transition. A nil collector is a no-op.
func (c *Collector) ObserveStep(r core.StepRecord) {
	if c == nil {
		return
	}
	c.StepsTotal.WithLabelValues(actionLabel(r.Action)).Inc()
	c.SoilMoisture.Set(r.Observation.SoilMoisture())
}

// ObserveEpisode records a finished episode
func (c *Collector) ObserveEpisode(s core.EpisodeSummary) {
	if c == nil {
		return
	}
	c.EpisodesTotal.Inc()
	c.EpisodeReward.Observe(s.TotalReward)
	c.Epsilon.Set(s.Epsilon)
}

func (c *Collector) ObserveError() {
	if c == nil {
		return
	}
	c.StepErrors.Inc()
}

// Registry is the registry the collector's metrics are registered with
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Router serves the metrics on /metrics and a liveness check on /healthz
func (c *Collector) Router() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func actionLabel(action int) string {
	if action < 0 || action >= environment.NumActions {
		return strconv.Itoa(action)
	}
	return environment.ActionName(action)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "lightweight"
	Subsystem = "server"
)

// Manager holds every collector the server updates.
type Manager struct {
	// counters
	CounterRequests           *prometheus.CounterVec
	CounterExercisesCreated   prometheus.Counter
	CounterSetsLogged         prometheus.Counter
	CounterSetsImported       prometheus.Counter
	CounterLiveDropped        prometheus.Counter
	CounterHandleRequestPanic prometheus.Counter

	// gauges
	GaugeLiveSubscribers prometheus.Gauge

	// histograms
	HistRequestDuration prometheus.Histogram
}

// NewRegistry returns a registry preloaded with build, Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager(Namespace, "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterExercisesCreated := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "exercises_created",
		Help:      "The total number of created exercises",
	})
	counterSetsLogged := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sets_logged",
		Help:      "The total number of sets logged through the API",
	})
	counterSetsImported := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sets_imported",
		Help:      "The total number of sets stored by imports",
	})
	counterLiveDropped := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "live_events_dropped",
		Help:      "Change events dropped because a live subscriber was too slow",
	})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})

	gaugeLiveSubscribers := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "live_subscribers",
		Help:      "Current number of live change stream subscribers",
	})

	histReqDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.0001, 0.0005, 0.001, 0.005, 0.01,
				0.05, 0.1, 0.5, 1, 5, 10,
			},
			Name: "request_duration_seconds",
			Help: "Total duration of requests in seconds",
		},
	)

	return &Manager{
		CounterRequests:           counterRequests,
		CounterExercisesCreated:   counterExercisesCreated,
		CounterSetsLogged:         counterSetsLogged,
		CounterSetsImported:       counterSetsImported,
		CounterLiveDropped:        counterLiveDropped,
		CounterHandleRequestPanic: counterHandleRequestPanic,
		GaugeLiveSubscribers:      gaugeLiveSubscribers,
		HistRequestDuration:       histReqDuration,
	}
}

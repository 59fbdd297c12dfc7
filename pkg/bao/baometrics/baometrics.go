// Package baometrics defines the Prometheus collector set callers may
// register to observe bao3's runtime behavior: verification failures
// and chunk-groups admitted by a PartialBao tracker. Registration is
// the caller's responsibility, the same way the teacher leaves wiring
// a prometheus.Registerer to the process that owns the registry rather
// than reaching for a global one (pkg/grpc's interceptors take a
// registerer explicitly). Of bao3's subpackages only pkg/bao/partial
// imports this package; blake3core/tree/stream/slice/iroh never do, so
// the core stays free of an ambient metrics dependency.
package baometrics

import "github.com/prometheus/client_golang/prometheus"

// Collector groups the counters bao3 callers commonly want: how often
// a PartialBao tracker admitted a group, and how often verification
// failed. Only counters that a caller in this module actually
// increments (pkg/bao/partial, via SetMetrics) are exposed here; a
// per-chunk/per-byte counter would have no wired call site, since
// spec.md §5 keeps blake3core/tree/stream/slice/iroh free of any
// ambient observability dependency.
type Collector struct {
	VerificationFailures prometheus.Counter
	GroupsAdmitted       prometheus.Counter
}

// New creates a Collector with the given namespace/subsystem prefix
// (e.g. "myservice", "bao"), unregistered. Callers register it with
// their own prometheus.Registerer.
func New(namespace, subsystem string) *Collector {
	return &Collector{
		VerificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "verification_failures_total",
			Help:      "Number of chunk or parent chaining-value verification failures.",
		}),
		GroupsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "partial_groups_admitted_total",
			Help:      "Number of chunk groups successfully admitted into a PartialBao tracker.",
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.collectors() {
		m.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.collectors() {
		m.Collect(ch)
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.VerificationFailures,
		c.GroupsAdmitted,
	}
}

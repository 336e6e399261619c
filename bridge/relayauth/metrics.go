package relayauth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.dedis.ch/relay"
)

var (
	promAuthorities = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_authorities",
		Help: "number of current authorities",
	}, []string{"instance"})

	promCandidates = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_candidates",
		Help: "number of candidates",
	}, []string{"instance"})

	promPending = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_authorities_change_pending",
		Help: "1 if an authorities change is in progress, 0 otherwise",
	}, []string{"instance"})

	promSchedules = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_mmr_schedules",
		Help: "number of scheduled mmr roots",
	}, []string{"instance"})

	promNextTerm = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_next_term",
		Help: "term of the next authorities change",
	}, []string{"instance"})

	promSignatures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_signatures_total",
		Help: "number of accepted signatures",
	}, []string{"instance", "kind"})

	promSlashed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_slashed_total",
		Help: "amount slashed on misbehavior",
	}, []string{"instance"})
)

func init() {
	relay.PromCollectors = append(relay.PromCollectors,
		promAuthorities,
		promCandidates,
		promPending,
		promSchedules,
		promNextTerm,
		promSignatures,
		promSlashed,
	)
}

// metrics are the collectors of an instance.
type metrics struct {
	authorities prometheus.Gauge
	candidates  prometheus.Gauge
	pending     prometheus.Gauge
	schedules   prometheus.Gauge
	nextTerm    prometheus.Gauge
	signatures  *prometheus.CounterVec
	slashed     prometheus.Counter
}

func newMetrics(instance string) metrics {
	return metrics{
		authorities: promAuthorities.WithLabelValues(instance),
		candidates:  promCandidates.WithLabelValues(instance),
		pending:     promPending.WithLabelValues(instance),
		schedules:   promSchedules.WithLabelValues(instance),
		nextTerm:    promNextTerm.WithLabelValues(instance),
		signatures:  promSignatures.MustCurryWith(prometheus.Labels{"instance": instance}),
		slashed:     promSlashed.WithLabelValues(instance),
	}
}

// refresh updates the gauges with the state of the instance.
func (m metrics) refresh(st storage, logger zerolog.Logger) {
	authorities, err := st.authorities()
	if err != nil {
		logger.Debug().Err(err).Msg("metrics not refreshed")
		return
	}

	candidates, err := st.candidates()
	if err != nil {
		logger.Debug().Err(err).Msg("metrics not refreshed")
		return
	}

	next, err := st.nextAuthorities()
	if err != nil {
		logger.Debug().Err(err).Msg("metrics not refreshed")
		return
	}

	keys, err := st.mmrRootsToSignKeys()
	if err != nil {
		logger.Debug().Err(err).Msg("metrics not refreshed")
		return
	}

	term, err := st.nextTerm()
	if err != nil {
		logger.Debug().Err(err).Msg("metrics not refreshed")
		return
	}

	m.authorities.Set(float64(len(authorities)))
	m.candidates.Set(float64(len(candidates)))
	m.schedules.Set(float64(len(keys)))
	m.nextTerm.Set(float64(term))

	if next != nil {
		m.pending.Set(1)
	} else {
		m.pending.Set(0)
	}
}

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type StakingMetrics struct {
	operations    *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	rejected      *prometheus.CounterVec
	feesCollected prometheus.Counter
	penalties     *prometheus.CounterVec
	staked        prometheus.Counter
	unstaked      prometheus.Counter
	eventsEmitted prometheus.Counter
}

var (
	stakingOnce     sync.Once
	stakingRegistry *StakingMetrics
)

// Staking returns the process-wide staking metrics, registering them with the
// default Prometheus registry on first use.
func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lstaking",
				Name:      "operations_total",
				Help:      "Staking instructions processed by opcode and outcome.",
			}, []string{"op", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "lstaking",
				Name:      "operation_duration_seconds",
				Help:      "Time spent applying and committing one instruction.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lstaking",
				Name:      "rejected_total",
				Help:      "Rejected instructions by stable error code.",
			}, []string{"code"}),
			feesCollected: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lstaking",
				Name:      "protocol_fees_total",
				Help:      "Protocol fees routed to the treasury in base units.",
			}),
			penalties: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lstaking",
				Name:      "penalties_total",
				Help:      "Penalties computed in base units, by kind.",
			}, []string{"kind"}),
			staked: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lstaking",
				Name:      "staked_total",
				Help:      "Principal deposited into stake vaults in base units.",
			}),
			unstaked: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lstaking",
				Name:      "unstaked_total",
				Help:      "Principal returned from stake vaults in base units.",
			}),
			eventsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lstaking",
				Name:      "events_total",
				Help:      "Events journaled by committed instructions.",
			}),
		}
		prometheus.MustRegister(
			stakingRegistry.operations,
			stakingRegistry.latency,
			stakingRegistry.rejected,
			stakingRegistry.feesCollected,
			stakingRegistry.penalties,
			stakingRegistry.staked,
			stakingRegistry.unstaked,
			stakingRegistry.eventsEmitted,
		)
	})
	return stakingRegistry
}

func (m *StakingMetrics) ObserveOperation(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *StakingMetrics) ObserveRejected(code string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(code).Inc()
}

func (m *StakingMetrics) AddFees(amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.feesCollected.Add(float64(amount))
}

func (m *StakingMetrics) AddPenalty(kind string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.penalties.WithLabelValues(kind).Add(float64(amount))
}

func (m *StakingMetrics) AddStaked(amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.staked.Add(float64(amount))
}

func (m *StakingMetrics) AddUnstaked(amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.unstaked.Add(float64(amount))
}

func (m *StakingMetrics) AddEvents(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsEmitted.Add(float64(n))
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type FarmingMetrics struct {
	farmsCreated      prometheus.Counter
	farmsSwept        prometheus.Counter
	rewardDeposited   *prometheus.CounterVec
	rewardClaimed     *prometheus.CounterVec
	stakeTotal        *prometheus.GaugeVec
	transfersResolved *prometheus.CounterVec
	pendingTransfers  prometheus.Gauge
}

var (
	farmingOnce     sync.Once
	farmingRegistry *FarmingMetrics
)

func Farming() *FarmingMetrics {
	farmingOnce.Do(func() {
		farmingRegistry = &FarmingMetrics{
			farmsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "farming_farms_created_total",
				Help: "Count of farms created.",
			}),
			farmsSwept: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "farming_farms_swept_total",
				Help: "Count of farms swept after ending.",
			}),
			rewardDeposited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farming_reward_deposited_total",
				Help: "Reward tokens deposited per farm.",
			}, []string{"farm"}),
			rewardClaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farming_reward_claimed_total",
				Help: "Reward tokens claimed by farmers by token.",
			}, []string{"token"}),
			stakeTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "farming_stake_total",
				Help: "Current total stake per seed.",
			}, []string{"seed"}),
			transfersResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farming_transfers_resolved_total",
				Help: "Resolved external transfers by outcome.",
			}, []string{"outcome"}),
			pendingTransfers: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "farming_transfers_pending",
				Help: "External transfers awaiting resolution.",
			}),
		}
		prometheus.MustRegister(
			farmingRegistry.farmsCreated,
			farmingRegistry.farmsSwept,
			farmingRegistry.rewardDeposited,
			farmingRegistry.rewardClaimed,
			farmingRegistry.stakeTotal,
			farmingRegistry.transfersResolved,
			farmingRegistry.pendingTransfers,
		)
	})
	return farmingRegistry
}

func (m *FarmingMetrics) ObserveFarmCreated() {
	if m == nil {
		return
	}
	m.farmsCreated.Inc()
}

func (m *FarmingMetrics) ObserveFarmSwept() {
	if m == nil {
		return
	}
	m.farmsSwept.Inc()
}

func (m *FarmingMetrics) ObserveRewardDeposited(farmID string, amount float64) {
	if m == nil {
		return
	}
	if farmID == "" {
		farmID = "unknown"
	}
	m.rewardDeposited.WithLabelValues(farmID).Add(amount)
}

func (m *FarmingMetrics) ObserveRewardClaimed(token string, amount float64) {
	if m == nil {
		return
	}
	if token == "" {
		token = "unknown"
	}
	m.rewardClaimed.WithLabelValues(token).Add(amount)
}

func (m *FarmingMetrics) SetStakeTotal(seed string, amount float64) {
	if m == nil {
		return
	}
	if seed == "" {
		seed = "unknown"
	}
	m.stakeTotal.WithLabelValues(seed).Set(amount)
}

func (m *FarmingMetrics) ObserveTransferResolved(success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.transfersResolved.WithLabelValues(outcome).Inc()
}

func (m *FarmingMetrics) TransferRequested() {
	if m == nil {
		return
	}
	m.pendingTransfers.Inc()
}

func (m *FarmingMetrics) TransferSettled() {
	if m == nil {
		return
	}
	m.pendingTransfers.Dec()
}

package observability

import (
	"math/big"

	"seedfarm/core/events"
	"seedfarm/observability/metrics"
)

// MetricsEmitter bridges engine events into the Prometheus registry. It can be
// chained in front of another emitter so events still reach subscribers.
type MetricsEmitter struct {
	next events.Emitter
}

// NewMetricsEmitter wraps next, which may be nil.
func NewMetricsEmitter(next events.Emitter) *MetricsEmitter {
	return &MetricsEmitter{next: next}
}

// Emit implements the events.Emitter interface.
func (m *MetricsEmitter) Emit(evt events.Event) {
	reg := metrics.Farming()
	switch e := evt.(type) {
	case events.FarmCreated:
		reg.ObserveFarmCreated()
	case events.FarmSwept:
		reg.ObserveFarmSwept()
	case events.RewardDeposited:
		reg.ObserveRewardDeposited(e.FarmID, bigToFloat(e.Amount))
	case events.RewardClaimed:
		reg.ObserveRewardClaimed(e.Token, bigToFloat(e.Amount))
	case events.StakeDeposited:
		reg.SetStakeTotal(e.SeedID, bigToFloat(e.Total))
	case events.StakeWithdrawn:
		reg.SetStakeTotal(e.SeedID, bigToFloat(e.Total))
	case events.TransferRequested:
		reg.TransferRequested()
	case events.TransferResolved:
		reg.TransferSettled()
		reg.ObserveTransferResolved(e.Success)
	}
	if m.next != nil {
		m.next.Emit(evt)
	}
}

func bigToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

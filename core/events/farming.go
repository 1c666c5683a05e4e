package events

import (
	"math/big"
	"strconv"

	"seedfarm/core/types"
)

const (
	TypeFarmCreated       = "farm.created"
	TypeRewardDeposited   = "farm.reward_deposited"
	TypeStakeDeposited    = "farm.stake_deposited"
	TypeStakeWithdrawn    = "farm.stake_withdrawn"
	TypeRewardClaimed     = "farm.reward_claimed"
	TypeFarmSwept         = "farm.swept"
	TypeTransferRequested = "farm.transfer_requested"
	TypeTransferResolved  = "farm.transfer_resolved"
)

type FarmCreated struct {
	FarmID      string
	SeedID      string
	RewardToken string
	StartAt     uint64
}

func (FarmCreated) EventType() string { return TypeFarmCreated }

func (e FarmCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeFarmCreated,
		Attributes: map[string]string{
			"farmId":      e.FarmID,
			"seedId":      e.SeedID,
			"rewardToken": e.RewardToken,
			"startAt":     strconv.FormatUint(e.StartAt, 10),
		},
	}
}

type RewardDeposited struct {
	FarmID        string
	Amount        *big.Int
	Undistributed *big.Int
}

func (RewardDeposited) EventType() string { return TypeRewardDeposited }

func (e RewardDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardDeposited,
		Attributes: map[string]string{
			"farmId":        e.FarmID,
			"amount":        formatAmount(e.Amount),
			"undistributed": formatAmount(e.Undistributed),
		},
	}
}

type StakeDeposited struct {
	Owner  string
	SeedID string
	Amount *big.Int
	Total  *big.Int
}

func (StakeDeposited) EventType() string { return TypeStakeDeposited }

func (e StakeDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeDeposited,
		Attributes: map[string]string{
			"owner":  e.Owner,
			"seedId": e.SeedID,
			"amount": formatAmount(e.Amount),
			"total":  formatAmount(e.Total),
		},
	}
}

type StakeWithdrawn struct {
	Owner  string
	SeedID string
	Amount *big.Int
	Total  *big.Int
}

func (StakeWithdrawn) EventType() string { return TypeStakeWithdrawn }

func (e StakeWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeWithdrawn,
		Attributes: map[string]string{
			"owner":  e.Owner,
			"seedId": e.SeedID,
			"amount": formatAmount(e.Amount),
			"total":  formatAmount(e.Total),
		},
	}
}

type RewardClaimed struct {
	Owner  string
	FarmID string
	Token  string
	Amount *big.Int
}

func (RewardClaimed) EventType() string { return TypeRewardClaimed }

func (e RewardClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardClaimed,
		Attributes: map[string]string{
			"owner":  e.Owner,
			"farmId": e.FarmID,
			"token":  e.Token,
			"amount": formatAmount(e.Amount),
		},
	}
}

type FarmSwept struct {
	FarmID      string
	Beneficiary *big.Int
}

func (FarmSwept) EventType() string { return TypeFarmSwept }

func (e FarmSwept) Event() *types.Event {
	return &types.Event{
		Type: TypeFarmSwept,
		Attributes: map[string]string{
			"farmId":      e.FarmID,
			"beneficiary": formatAmount(e.Beneficiary),
		},
	}
}

type TransferRequested struct {
	RequestID string
	Owner     string
	Token     string
	Amount    *big.Int
}

func (TransferRequested) EventType() string { return TypeTransferRequested }

func (e TransferRequested) Event() *types.Event {
	return &types.Event{
		Type: TypeTransferRequested,
		Attributes: map[string]string{
			"requestId": e.RequestID,
			"owner":     e.Owner,
			"token":     e.Token,
			"amount":    formatAmount(e.Amount),
		},
	}
}

type TransferResolved struct {
	RequestID string
	Owner     string
	Token     string
	Amount    *big.Int
	Success   bool
}

func (TransferResolved) EventType() string { return TypeTransferResolved }

func (e TransferResolved) Event() *types.Event {
	return &types.Event{
		Type: TypeTransferResolved,
		Attributes: map[string]string{
			"requestId": e.RequestID,
			"owner":     e.Owner,
			"token":     e.Token,
			"amount":    formatAmount(e.Amount),
			"success":   strconv.FormatBool(e.Success),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

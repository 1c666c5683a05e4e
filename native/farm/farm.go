package farm

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// ComputeAccrual derives the distribution the farm would hold at the given
// time against the given total stake. It is pure: the farm is not mutated and
// the caller decides whether to commit the result via Settle. A nil
// distribution with a nil error means no accrual applies (the farm is not
// Running, or has not started yet).
func (f *Farm) ComputeAccrual(now uint64, totalStake *big.Int) (*RewardDistribution, error) {
	if f.Status != StatusRunning || now < f.Terms.StartAt {
		return nil, nil
	}
	dist := f.Dist.Clone()
	targetRound := (now - f.Terms.StartAt) / f.Terms.SessionInterval
	if targetRound <= dist.Round {
		return &dist, nil
	}

	elapsed := new(big.Int).SetUint64(targetRound - dist.Round)
	rewardWanted := elapsed.Mul(elapsed, f.Terms.RewardPerSession)
	if dist.Undistributed.Cmp(rewardWanted) < 0 {
		// The remaining reward cannot cover every elapsed session. Release
		// what is left and recompute the round actually reached.
		rewardWanted = new(big.Int).Set(dist.Undistributed)
		wholeRounds := new(big.Int).Quo(rewardWanted, f.Terms.RewardPerSession)
		dist.Round += wholeRounds.Uint64()
		paidWhole := new(big.Int).Mul(wholeRounds, f.Terms.RewardPerSession)
		if paidWhole.Cmp(rewardWanted) < 0 {
			// Tail round: a partial session was paid from the remaining dust.
			// The extra increment marks the farm fully exhausted; no reward is
			// attached to it.
			dist.Round++
		}
	} else {
		dist.Round = targetRound
	}

	dist.Unclaimed = new(big.Int).Add(dist.Unclaimed, rewardWanted)
	dist.Undistributed = new(big.Int).Sub(dist.Undistributed, rewardWanted)

	// With no stake there is no share to assign: the accumulator stays put and
	// the released reward waits in Unclaimed until commit routes it onward.
	if totalStake != nil && totalStake.Sign() > 0 && rewardWanted.Sign() > 0 {
		increment, err := rpsIncrement(rewardWanted, totalStake)
		if err != nil {
			return nil, err
		}
		next, overflow := new(uint256.Int).AddOverflow(dist.RPS, increment)
		if overflow {
			return nil, ErrArithmeticOverflow
		}
		dist.RPS = next
	}
	return &dist, nil
}

// Settle commits the accrual generated since the previous distribution. If the
// total stake is zero the freshly released reward is routed to the beneficiary
// counters immediately, since no one currently holds a claim to it. Once the
// undistributed pool reaches zero the farm moves to Ended.
func (f *Farm) Settle(now uint64, totalStake *big.Int) error {
	dist, err := f.ComputeAccrual(now, totalStake)
	if err != nil {
		return err
	}
	if dist == nil {
		return nil
	}
	if dist.Round != f.Dist.Round {
		f.Dist = *dist
		if totalStake == nil || totalStake.Sign() == 0 {
			f.sweepUnclaimedToBeneficiary()
		}
	}
	if f.Dist.Undistributed.Sign() == 0 {
		f.Status = StatusEnded
	}
	return nil
}

// AddReward tops up the undistributed pool. The first deposit moves a Created
// farm to Running and, when StartAt was left at zero, starts accrual at the
// deposit time. A Running farm rejects the deposit when a non-committing
// accrual check shows it has already silently exhausted its reward. The new
// undistributed total is returned.
func (f *Farm) AddReward(now uint64, amount *big.Int, totalStake *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	switch f.Status {
	case StatusCreated:
		f.Status = StatusRunning
		if f.Terms.StartAt == 0 {
			f.Terms.StartAt = now
		}
	case StatusRunning:
		dist, err := f.ComputeAccrual(now, totalStake)
		if err != nil {
			return nil, err
		}
		if dist != nil && dist.Undistributed.Sign() == 0 {
			return nil, ErrFarmExhausted
		}
	default:
		return nil, fmt.Errorf("%w: status %s", ErrFarmExhausted, f.Status)
	}
	f.TotalReward = new(big.Int).Add(f.TotalReward, amount)
	f.Dist.Undistributed = new(big.Int).Add(f.Dist.Undistributed, amount)
	return new(big.Int).Set(f.Dist.Undistributed), nil
}

// FarmerUnclaimed projects the reward a farmer could claim right now without
// mutating any state: stake * (rps - snapshot) / Scale against the
// non-committed accrual.
func (f *Farm) FarmerUnclaimed(now uint64, snapshot *uint256.Int, farmerStake, totalStake *big.Int) (*big.Int, error) {
	if totalStake == nil || totalStake.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if farmerStake == nil || farmerStake.Sign() == 0 {
		return big.NewInt(0), nil
	}
	dist, err := f.ComputeAccrual(now, totalStake)
	if err != nil {
		return nil, err
	}
	rps := f.Dist.RPS
	if dist != nil {
		rps = dist.RPS
	}
	return farmerShare(rps, snapshot, farmerStake)
}

// SettleFarmer commits the farm's accrual and reconciles one farmer's claim
// against it. It returns the farmer's new accumulator snapshot and the amount
// moved out of the unclaimed pool. The snapshot always advances to the
// post-commit accumulator, even when nothing was claimed, so a later stake
// increase cannot retroactively earn past rewards.
func (f *Farm) SettleFarmer(now uint64, snapshot *uint256.Int, farmerStake, totalStake *big.Int) (*uint256.Int, *big.Int, error) {
	if err := f.Settle(now, totalStake); err != nil {
		return nil, nil, err
	}
	claimed, err := farmerShare(f.Dist.RPS, snapshot, farmerStake)
	if err != nil {
		return nil, nil, err
	}
	if claimed.Sign() > 0 {
		if f.Dist.Unclaimed.Cmp(claimed) < 0 {
			return nil, nil, fmt.Errorf("%w: unclaimed %s, claim %s",
				ErrUnclaimedUnderflow, f.Dist.Unclaimed, claimed)
		}
		f.Dist.Unclaimed = new(big.Int).Sub(f.Dist.Unclaimed, claimed)
		f.TotalClaimed = new(big.Int).Add(f.TotalClaimed, claimed)
	}
	return f.Dist.RPS.Clone(), claimed, nil
}

// CanBeRemoved reports whether the farm is already Ended, or Running with an
// accrual check showing the undistributed pool would reach zero right now.
func (f *Farm) CanBeRemoved(now uint64, totalStake *big.Int) (bool, error) {
	switch f.Status {
	case StatusEnded:
		return true, nil
	case StatusRunning:
		dist, err := f.ComputeAccrual(now, totalStake)
		if err != nil {
			return false, err
		}
		return dist != nil && dist.Undistributed.Sign() == 0, nil
	default:
		return false, nil
	}
}

// MoveToClear transitions an Ended farm to Cleared, sweeping any residual
// unclaimed reward to the beneficiary counters so nothing is left stranded.
// Returns false when the farm is not (and does not become) Ended.
func (f *Farm) MoveToClear(now uint64, totalStake *big.Int) (bool, error) {
	if f.Status == StatusRunning {
		if err := f.Settle(now, totalStake); err != nil {
			return false, err
		}
	}
	if f.Status != StatusEnded {
		return false, nil
	}
	if f.Dist.Unclaimed.Sign() > 0 {
		f.sweepUnclaimedToBeneficiary()
	}
	f.Status = StatusCleared
	return true, nil
}

func (f *Farm) sweepUnclaimedToBeneficiary() {
	f.TotalClaimed = new(big.Int).Add(f.TotalClaimed, f.Dist.Unclaimed)
	f.TotalBeneficiary = new(big.Int).Add(f.TotalBeneficiary, f.Dist.Unclaimed)
	f.Dist.Unclaimed = big.NewInt(0)
}

// rpsIncrement computes reward * Scale / totalStake with full 512-bit
// intermediate precision. Overflow of the 256-bit result is an invariant
// violation, never silently truncated.
func rpsIncrement(reward, totalStake *big.Int) (*uint256.Int, error) {
	rewardU, overflow := uint256.FromBig(reward)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	stakeU, overflow := uint256.FromBig(totalStake)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	increment, overflow := new(uint256.Int).MulDivOverflow(rewardU, Scale, stakeU)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return increment, nil
}

// farmerShare computes stake * (rps - snapshot) / Scale. Truncating division
// rounds in the farm's favour: the remainder stays in the unclaimed pool as
// permanent dust, still covered by the TotalReward invariant.
func farmerShare(rps, snapshot *uint256.Int, stake *big.Int) (*big.Int, error) {
	if stake == nil || stake.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	if snapshot == nil {
		snapshot = uint256.NewInt(0)
	}
	diff, underflow := new(uint256.Int).SubOverflow(rps, snapshot)
	if underflow {
		return nil, ErrArithmeticOverflow
	}
	stakeU, overflow := uint256.FromBig(stake)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	share, overflow := new(uint256.Int).MulDivOverflow(stakeU, diff, Scale)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return share.ToBig(), nil
}

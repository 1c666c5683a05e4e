package farm

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// FarmID names one reward campaign. It is derived from the seed identifier and
// a per-seed sequence number ("<seed>#<index>") so ids are stable and
// collision free.
type FarmID = string

// SeedID names a stakeable asset class, the denominator of proportional
// distribution.
type SeedID = string

// Scale is the fixed constant applied to the reward-per-stake accumulator so
// integer division keeps enough precision. The value must not change over the
// life of a deployment.
var Scale = uint256.MustFromDecimal("1000000000000000000000000") // 10^24

// FarmStatus tracks the strictly forward lifecycle of a farm.
type FarmStatus uint8

const (
	StatusCreated FarmStatus = iota
	StatusRunning
	StatusEnded
	StatusCleared
)

// Valid reports whether the status value is within the supported range.
func (s FarmStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusRunning, StatusEnded, StatusCleared:
		return true
	default:
		return false
	}
}

func (s FarmStatus) String() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusRunning:
		return "Running"
	case StatusEnded:
		return "Ended"
	case StatusCleared:
		return "Cleared"
	default:
		return "Unknown"
	}
}

// FarmTerms defines how a farm releases reward. Terms are immutable after
// creation except StartAt, which may be set once by the first reward deposit
// when it was left at zero.
type FarmTerms struct {
	SeedID           SeedID
	RewardToken      string
	StartAt          uint64 // unix seconds; 0 means start on first reward deposit
	RewardPerSession *big.Int
	SessionInterval  uint64 // seconds
}

// Validate checks the terms are internally consistent.
func (t FarmTerms) Validate() error {
	if strings.TrimSpace(t.SeedID) == "" {
		return fmt.Errorf("%w: empty seed id", ErrInvalidTerms)
	}
	if strings.TrimSpace(t.RewardToken) == "" {
		return fmt.Errorf("%w: empty reward token", ErrInvalidTerms)
	}
	if t.SessionInterval == 0 {
		return fmt.Errorf("%w: session interval must be positive", ErrInvalidTerms)
	}
	if t.RewardPerSession == nil || t.RewardPerSession.Sign() <= 0 {
		return fmt.Errorf("%w: reward per session must be positive", ErrInvalidTerms)
	}
	return nil
}

// RewardDistribution is the mutable accrual state of one farm.
type RewardDistribution struct {
	// Undistributed is reward deposited but not yet released into circulation.
	Undistributed *big.Int
	// Unclaimed is reward released but not yet paid to any farmer.
	Unclaimed *big.Int
	// RPS is the cumulative reward released per unit of stake, scaled by
	// Scale. It never decreases over the life of a farm.
	RPS *uint256.Int
	// Round counts the fully-or-partially completed sessions accounted for so
	// far.
	Round uint64
}

// NewRewardDistribution returns a zeroed distribution.
func NewRewardDistribution() RewardDistribution {
	return RewardDistribution{
		Undistributed: big.NewInt(0),
		Unclaimed:     big.NewInt(0),
		RPS:           uint256.NewInt(0),
	}
}

// Clone returns a deep copy of the distribution.
func (d *RewardDistribution) Clone() RewardDistribution {
	clone := RewardDistribution{Round: d.Round}
	clone.Undistributed = cloneBigInt(d.Undistributed)
	clone.Unclaimed = cloneBigInt(d.Unclaimed)
	if d.RPS != nil {
		clone.RPS = d.RPS.Clone()
	} else {
		clone.RPS = uint256.NewInt(0)
	}
	return clone
}

// Farm is one reward campaign tied to one seed and one reward token.
type Farm struct {
	ID     FarmID
	Terms  FarmTerms
	Status FarmStatus
	Dist   RewardDistribution

	// TotalReward is every unit of reward deposited into this farm so far.
	TotalReward *big.Int
	// TotalClaimed is reward moved out of the unclaimed pool, whether to a
	// farmer balance or to the beneficiary sink. At every observation point
	// TotalReward == Undistributed + Unclaimed + TotalClaimed.
	TotalClaimed *big.Int
	// TotalBeneficiary is the portion of TotalClaimed routed to the
	// beneficiary sink because no stake existed to claim it.
	TotalBeneficiary *big.Int
}

// NewFarm constructs a farm in the Created state with zero reward on hand.
func NewFarm(id FarmID, terms FarmTerms) *Farm {
	return &Farm{
		ID:               id,
		Terms:            terms,
		Status:           StatusCreated,
		Dist:             NewRewardDistribution(),
		TotalReward:      big.NewInt(0),
		TotalClaimed:     big.NewInt(0),
		TotalBeneficiary: big.NewInt(0),
	}
}

// Clone returns a deep copy so callers can mutate without affecting the stored
// instance.
func (f *Farm) Clone() *Farm {
	if f == nil {
		return nil
	}
	clone := &Farm{
		ID:     f.ID,
		Terms:  f.Terms,
		Status: f.Status,
		Dist:   f.Dist.Clone(),
	}
	clone.Terms.RewardPerSession = cloneBigInt(f.Terms.RewardPerSession)
	clone.TotalReward = cloneBigInt(f.TotalReward)
	clone.TotalClaimed = cloneBigInt(f.TotalClaimed)
	clone.TotalBeneficiary = cloneBigInt(f.TotalBeneficiary)
	return clone
}

// GenFarmID derives the deterministic identifier for the index-th farm under a
// seed.
func GenFarmID(seed SeedID, index uint32) FarmID {
	return fmt.Sprintf("%s#%d", seed, index)
}

// ParseFarmID splits a farm id back into its seed identifier and sequence
// number.
func ParseFarmID(id FarmID) (SeedID, uint32, error) {
	sep := strings.LastIndex(id, "#")
	if sep <= 0 || sep == len(id)-1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidFarmID, id)
	}
	index, err := strconv.ParseUint(id[sep+1:], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidFarmID, id)
	}
	return id[:sep], uint32(index), nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

package farm

import (
	"math/big"

	"github.com/holiman/uint256"
)

// FarmerAccount records one participant's staked amounts per seed, claimed
// reward balances per token, and the per-farm accumulator snapshot last seen.
type FarmerAccount struct {
	Owner string
	// StorageFunds is the prepaid funding covering this record's storage cost.
	StorageFunds *big.Int
	// Seeds maps seed id to the amount this farmer has staked.
	Seeds map[SeedID]*big.Int
	// Rewards maps reward token to the claimed-but-unwithdrawn balance.
	Rewards map[string]*big.Int
	// Snapshots maps farm id to the accumulator value last settled against.
	// An entry exists only while the farmer has stake under the farm's seed.
	Snapshots map[FarmID]*uint256.Int
	// Holdings tracks the non-fungible token descriptors staked per seed.
	Holdings map[SeedID]map[string]bool
}

// AddReward adds amount to the claimed balance of the given token.
func (a *FarmerAccount) AddReward(token string, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		return
	}
	if existing, ok := a.Rewards[token]; ok {
		a.Rewards[token] = new(big.Int).Add(existing, amount)
		return
	}
	a.Rewards[token] = cloneBigInt(amount)
}

// SubReward subtracts from the claimed balance of the given token. A zero
// amount withdraws the whole balance and drops the entry. The actual amount
// subtracted is returned.
func (a *FarmerAccount) SubReward(token string, amount *big.Int) (*big.Int, error) {
	balance, ok := a.Rewards[token]
	if !ok {
		return nil, ErrTokenNotFound
	}
	if amount == nil || amount.Sign() == 0 {
		delete(a.Rewards, token)
		return cloneBigInt(balance), nil
	}
	if balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientReward
	}
	a.Rewards[token] = new(big.Int).Sub(balance, amount)
	return cloneBigInt(amount), nil
}

// RewardBalance returns the claimed balance for a token, zero when absent.
func (a *FarmerAccount) RewardBalance(token string) *big.Int {
	if balance, ok := a.Rewards[token]; ok {
		return cloneBigInt(balance)
	}
	return big.NewInt(0)
}

// AddSeed increases the staked amount recorded for a seed.
func (a *FarmerAccount) AddSeed(seed SeedID, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	if existing, ok := a.Seeds[seed]; ok {
		a.Seeds[seed] = new(big.Int).Add(existing, amount)
		return
	}
	a.Seeds[seed] = cloneBigInt(amount)
}

// SubSeed decreases the staked amount for a seed and returns the remainder.
// The entry is dropped when the stake reaches zero.
func (a *FarmerAccount) SubSeed(seed SeedID, amount *big.Int) (*big.Int, error) {
	balance, ok := a.Seeds[seed]
	if !ok {
		return nil, ErrSeedNotFound
	}
	if balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientStake
	}
	remaining := new(big.Int).Sub(balance, amount)
	if remaining.Sign() > 0 {
		a.Seeds[seed] = remaining
	} else {
		delete(a.Seeds, seed)
	}
	return cloneBigInt(remaining), nil
}

// SeedBalance returns the staked amount for a seed, zero when absent.
func (a *FarmerAccount) SeedBalance(seed SeedID) *big.Int {
	if balance, ok := a.Seeds[seed]; ok {
		return cloneBigInt(balance)
	}
	return big.NewInt(0)
}

// Snapshot returns the stored accumulator snapshot for a farm, zero when the
// farmer has never been settled against it.
func (a *FarmerAccount) Snapshot(id FarmID) *uint256.Int {
	if snapshot, ok := a.Snapshots[id]; ok {
		return snapshot.Clone()
	}
	return uint256.NewInt(0)
}

// SetSnapshot stores the accumulator value the farmer was last settled at.
func (a *FarmerAccount) SetSnapshot(id FarmID, rps *uint256.Int) {
	a.Snapshots[id] = rps.Clone()
}

// RemoveSnapshot drops the stored snapshot for a farm.
func (a *FarmerAccount) RemoveSnapshot(id FarmID) {
	delete(a.Snapshots, id)
}

// AddHolding records a staked non-fungible token descriptor for a seed.
func (a *FarmerAccount) AddHolding(seed SeedID, descriptor string) {
	if a.Holdings[seed] == nil {
		a.Holdings[seed] = make(map[string]bool)
	}
	a.Holdings[seed][descriptor] = true
}

// RemoveHolding drops a staked descriptor, reporting whether it was present.
func (a *FarmerAccount) RemoveHolding(seed SeedID, descriptor string) bool {
	holdings, ok := a.Holdings[seed]
	if !ok || !holdings[descriptor] {
		return false
	}
	delete(holdings, descriptor)
	if len(holdings) == 0 {
		delete(a.Holdings, seed)
	}
	return true
}

// FarmerVersion tags the schema revision of a stored farmer record.
type FarmerVersion uint8

// FarmerV1 is the current farmer record schema.
const FarmerV1 FarmerVersion = 1

// VersionedFarmer wraps a farmer record together with its schema version so
// old records can be upgraded in place when loaded. Callers always operate on
// the latest schema, obtained through Account after a single Upgrade step.
type VersionedFarmer struct {
	Version FarmerVersion
	V1      *FarmerAccount
}

// NewFarmer constructs a farmer record at the latest schema version.
func NewFarmer(owner string, funds *big.Int) *VersionedFarmer {
	return &VersionedFarmer{
		Version: FarmerV1,
		V1: &FarmerAccount{
			Owner:        owner,
			StorageFunds: cloneBigInt(funds),
			Seeds:        make(map[SeedID]*big.Int),
			Rewards:      make(map[string]*big.Int),
			Snapshots:    make(map[FarmID]*uint256.Int),
			Holdings:     make(map[SeedID]map[string]bool),
		},
	}
}

// Upgrade converts any older schema revision to the latest one. It is pure:
// the receiver is returned unchanged when already current.
func (v *VersionedFarmer) Upgrade() *VersionedFarmer {
	switch v.Version {
	case FarmerV1:
		return v
	default:
		return v
	}
}

// Account returns the latest-schema farmer record.
func (v *VersionedFarmer) Account() *FarmerAccount {
	return v.Upgrade().V1
}

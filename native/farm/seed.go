package farm

import (
	"math/big"
	"strings"
)

// Delimiters used inside stake-equivalence token descriptors. A descriptor is
// "<contract>@<token>" and may carry a series suffix "<contract>@<series>:<n>".
const (
	descriptorDelimiter = "@"
	seriesDelimiter     = ":"
)

// SeedAggregate tracks the total amount staked against one seed identifier and
// the set of farms paying against it. It exists from the first farm created
// for the seed and is never deleted while any farm references it.
type SeedAggregate struct {
	SeedID      SeedID
	TotalStaked *big.Int
	// Farms lists the active farm ids under this seed in creation order.
	Farms []FarmID
	// NextIndex is the per-seed sequence number used to derive the next farm
	// id.
	NextIndex uint32
	// MinDeposit is the smallest stake increment this seed accepts.
	MinDeposit *big.Int
	// Equivalence optionally maps non-fungible token descriptors to the stake
	// amount they count as. Empty for plain fungible seeds.
	Equivalence map[string]*big.Int
}

// NewSeedAggregate constructs an empty aggregate for a seed.
func NewSeedAggregate(seed SeedID, minDeposit *big.Int) *SeedAggregate {
	return &SeedAggregate{
		SeedID:      seed,
		TotalStaked: big.NewInt(0),
		Farms:       []FarmID{},
		MinDeposit:  cloneBigInt(minDeposit),
	}
}

// Clone returns a deep copy of the aggregate.
func (s *SeedAggregate) Clone() *SeedAggregate {
	if s == nil {
		return nil
	}
	clone := &SeedAggregate{
		SeedID:      s.SeedID,
		TotalStaked: cloneBigInt(s.TotalStaked),
		Farms:       append([]FarmID(nil), s.Farms...),
		NextIndex:   s.NextIndex,
		MinDeposit:  cloneBigInt(s.MinDeposit),
	}
	if s.Equivalence != nil {
		clone.Equivalence = make(map[string]*big.Int, len(s.Equivalence))
		for descriptor, amount := range s.Equivalence {
			clone.Equivalence[descriptor] = cloneBigInt(amount)
		}
	}
	return clone
}

// AddAmount increases the total staked against this seed.
func (s *SeedAggregate) AddAmount(amount *big.Int) {
	s.TotalStaked = new(big.Int).Add(s.TotalStaked, amount)
}

// SubAmount decreases the total staked against this seed. The total can never
// go negative because settlement subtracts at most what was recorded.
func (s *SeedAggregate) SubAmount(amount *big.Int) error {
	if s.TotalStaked.Cmp(amount) < 0 {
		return ErrInsufficientStake
	}
	s.TotalStaked = new(big.Int).Sub(s.TotalStaked, amount)
	return nil
}

// AddFarm appends a farm to the aggregate's active set.
func (s *SeedAggregate) AddFarm(id FarmID) {
	if s.HasFarm(id) {
		return
	}
	s.Farms = append(s.Farms, id)
}

// RemoveFarm drops a farm from the active set, keeping order.
func (s *SeedAggregate) RemoveFarm(id FarmID) {
	for i, existing := range s.Farms {
		if existing == id {
			s.Farms = append(s.Farms[:i], s.Farms[i+1:]...)
			return
		}
	}
}

// HasFarm reports whether the farm is in the active set.
func (s *SeedAggregate) HasFarm(id FarmID) bool {
	for _, existing := range s.Farms {
		if existing == id {
			return true
		}
	}
	return false
}

// ResolveEquivalent looks up the stake amount a non-fungible token descriptor
// counts as. Exact descriptors win; otherwise the series prefix (before ":")
// and then the contract prefix (before "@") are tried, so one table entry can
// cover a whole series or collection.
func (s *SeedAggregate) ResolveEquivalent(descriptor string) (*big.Int, bool) {
	if len(s.Equivalence) == 0 {
		return nil, false
	}
	if amount, ok := s.Equivalence[descriptor]; ok {
		return cloneBigInt(amount), true
	}
	if strings.Contains(descriptor, seriesDelimiter) {
		prefix := strings.SplitN(descriptor, seriesDelimiter, 2)[0]
		if amount, ok := s.Equivalence[prefix]; ok {
			return cloneBigInt(amount), true
		}
	}
	prefix := strings.SplitN(descriptor, descriptorDelimiter, 2)[0]
	if amount, ok := s.Equivalence[prefix]; ok {
		return cloneBigInt(amount), true
	}
	return nil, false
}

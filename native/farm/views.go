package farm

import "math/big"

// FarmView is the read-only projection of a farm returned by the view
// surface. Distribution figures are projected to the current time without
// committing anything.
type FarmView struct {
	FarmID           FarmID   `json:"farmId"`
	SeedID           SeedID   `json:"seedId"`
	RewardToken      string   `json:"rewardToken"`
	StartAt          uint64   `json:"startAt"`
	RewardPerSession *big.Int `json:"rewardPerSession"`
	SessionInterval  uint64   `json:"sessionInterval"`
	Status           string   `json:"status"`
	TotalReward      *big.Int `json:"totalReward"`
	TotalClaimed     *big.Int `json:"totalClaimed"`
	TotalBeneficiary *big.Int `json:"totalBeneficiary"`
	Undistributed    *big.Int `json:"undistributed"`
	Unclaimed        *big.Int `json:"unclaimed"`
	CurrentRound     uint64   `json:"currentRound"`
	LastRound        uint64   `json:"lastRound"`
}

// SeedView is the read-only projection of a seed aggregate.
type SeedView struct {
	SeedID      SeedID              `json:"seedId"`
	TotalStaked *big.Int            `json:"totalStaked"`
	MinDeposit  *big.Int            `json:"minDeposit"`
	Farms       []FarmID            `json:"farms"`
	Equivalence map[string]*big.Int `json:"equivalence,omitempty"`
}

// FarmInfo returns the projected view of one farm. Swept farms are served
// from the archive with their final recorded figures.
func (e *Engine) FarmInfo(id FarmID) (*FarmView, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	target, ok, err := e.state.GetFarm(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		target, ok, err = e.state.GetArchivedFarm(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrFarmNotFound
		}
		final := target.Dist.Clone()
		return e.farmView(target, &final), nil
	}
	seed, ok, err := e.state.GetSeed(target.Terms.SeedID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSeedNotFound
	}
	projected, err := target.ComputeAccrual(e.now(), seed.TotalStaked)
	if err != nil {
		return nil, err
	}
	if projected == nil {
		current := target.Dist.Clone()
		projected = &current
	}
	return e.farmView(target, projected), nil
}

// ListFarmsBySeed returns the projected views of every active farm under a
// seed, in creation order.
func (e *Engine) ListFarmsBySeed(seedID SeedID) ([]*FarmView, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	seed, ok, err := e.state.GetSeed(seedID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSeedNotFound
	}
	views := make([]*FarmView, 0, len(seed.Farms))
	for _, id := range seed.Farms {
		target, ok, err := e.state.GetFarm(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		projected, err := target.ComputeAccrual(e.now(), seed.TotalStaked)
		if err != nil {
			return nil, err
		}
		if projected == nil {
			current := target.Dist.Clone()
			projected = &current
		}
		views = append(views, e.farmView(target, projected))
	}
	return views, nil
}

// SeedInfo returns the projection of one seed aggregate.
func (e *Engine) SeedInfo(seedID SeedID) (*SeedView, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	seed, ok, err := e.state.GetSeed(seedID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSeedNotFound
	}
	view := &SeedView{
		SeedID:      seed.SeedID,
		TotalStaked: cloneBigInt(seed.TotalStaked),
		MinDeposit:  cloneBigInt(seed.MinDeposit),
		Farms:       append([]FarmID(nil), seed.Farms...),
	}
	if len(seed.Equivalence) > 0 {
		view.Equivalence = make(map[string]*big.Int, len(seed.Equivalence))
		for descriptor, amount := range seed.Equivalence {
			view.Equivalence[descriptor] = cloneBigInt(amount)
		}
	}
	return view, nil
}

// FarmerSeeds returns the staked amount per seed for a farmer.
func (e *Engine) FarmerSeeds(owner string) (map[SeedID]*big.Int, error) {
	account, err := e.farmerAccount(owner)
	if err != nil {
		return nil, err
	}
	seeds := make(map[SeedID]*big.Int, len(account.Seeds))
	for seed, amount := range account.Seeds {
		seeds[seed] = cloneBigInt(amount)
	}
	return seeds, nil
}

// FarmerRewards returns the claimed-but-unwithdrawn balance per reward token
// for a farmer.
func (e *Engine) FarmerRewards(owner string) (map[string]*big.Int, error) {
	account, err := e.farmerAccount(owner)
	if err != nil {
		return nil, err
	}
	rewards := make(map[string]*big.Int, len(account.Rewards))
	for token, amount := range account.Rewards {
		rewards[token] = cloneBigInt(amount)
	}
	return rewards, nil
}

// FarmerHoldings returns the staked non-fungible descriptors per seed for a
// farmer.
func (e *Engine) FarmerHoldings(owner string) (map[SeedID][]string, error) {
	account, err := e.farmerAccount(owner)
	if err != nil {
		return nil, err
	}
	holdings := make(map[SeedID][]string, len(account.Holdings))
	for seed, descriptors := range account.Holdings {
		list := make([]string, 0, len(descriptors))
		for descriptor := range descriptors {
			list = append(list, descriptor)
		}
		holdings[seed] = list
	}
	return holdings, nil
}

func (e *Engine) farmerAccount(owner string) (*FarmerAccount, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	farmer, ok, err := e.state.GetFarmer(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrFarmerNotFound
	}
	return farmer.Account(), nil
}

func (e *Engine) farmView(target *Farm, projected *RewardDistribution) *FarmView {
	status := target.Status
	if status == StatusRunning && projected.Undistributed.Sign() == 0 {
		status = StatusEnded
	}
	return &FarmView{
		FarmID:           target.ID,
		SeedID:           target.Terms.SeedID,
		RewardToken:      target.Terms.RewardToken,
		StartAt:          target.Terms.StartAt,
		RewardPerSession: cloneBigInt(target.Terms.RewardPerSession),
		SessionInterval:  target.Terms.SessionInterval,
		Status:           status.String(),
		TotalReward:      cloneBigInt(target.TotalReward),
		TotalClaimed:     cloneBigInt(target.TotalClaimed),
		TotalBeneficiary: cloneBigInt(target.TotalBeneficiary),
		Undistributed:    cloneBigInt(projected.Undistributed),
		Unclaimed:        cloneBigInt(projected.Unclaimed),
		CurrentRound:     projected.Round,
		LastRound:        target.Dist.Round,
	}
}

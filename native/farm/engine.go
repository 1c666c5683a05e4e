package farm

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"seedfarm/core/events"
)

// Flat storage costs a caller's funding must cover before a new record is
// created. Rent accounting itself lives outside this module; the engine only
// enforces that records arrive funded.
var (
	// CreateFarmStorageCost covers one farm record plus its seed-aggregate
	// share.
	CreateFarmStorageCost = big.NewInt(1850)
	// RegisterFarmerStorageCost covers one farmer record.
	RegisterFarmerStorageCost = big.NewInt(920)
	// DefaultMinDeposit applies to seeds created without an explicit minimum.
	DefaultMinDeposit = new(big.Int).SetUint64(1_000_000_000_000_000_000)
)

type engineState interface {
	GetFarm(id FarmID) (*Farm, bool, error)
	PutFarm(farm *Farm) error
	RemoveFarm(id FarmID) error
	ArchiveFarm(farm *Farm) error
	GetArchivedFarm(id FarmID) (*Farm, bool, error)
	GetSeed(id SeedID) (*SeedAggregate, bool, error)
	PutSeed(seed *SeedAggregate) error
	GetFarmer(owner string) (*VersionedFarmer, bool, error)
	PutFarmer(farmer *VersionedFarmer) error
	GetPendingTransfer(id string) (*PendingTransfer, bool, error)
	PutPendingTransfer(transfer *PendingTransfer) error
	RemovePendingTransfer(id string) error
}

// Engine is the settlement coordinator. Every stake-changing or
// claim-requesting action settles every affected farm, updates the farmer's
// accumulator snapshot, and only then mutates stake totals. Actions execute to
// completion one at a time; the only cross-action state is the optimistic
// debit recorded as a PendingTransfer.
type Engine struct {
	state      engineState
	clock      clockwork.Clock
	emitter    events.Emitter
	transferer TokenTransferer
	log        *slog.Logger
	newID      func() string
}

// NewEngine constructs an engine with a real clock, a no-op emitter and a
// no-op transferer. Callers wire the state backend via SetState.
func NewEngine() *Engine {
	return &Engine{
		clock:      clockwork.NewRealClock(),
		emitter:    events.NoopEmitter{},
		transferer: NoopTransferer{},
		log:        slog.Default(),
		newID:      uuid.NewString,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetClock overrides the time source. Primarily intended for tests to drive
// deterministic session boundaries.
func (e *Engine) SetClock(clock clockwork.Clock) {
	if clock == nil {
		e.clock = clockwork.NewRealClock()
		return
	}
	e.clock = clock
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetTransferer configures the external token service used for withdrawals.
func (e *Engine) SetTransferer(transferer TokenTransferer) {
	if transferer == nil {
		e.transferer = NoopTransferer{}
		return
	}
	e.transferer = transferer
}

// SetLogger configures the structured logger used by the engine.
func (e *Engine) SetLogger(log *slog.Logger) {
	if log == nil {
		e.log = slog.Default()
		return
	}
	e.log = log
}

func (e *Engine) now() uint64 {
	return uint64(e.clock.Now().UTC().Unix())
}

func (e *Engine) emit(event events.Event) {
	if e.emitter != nil && event != nil {
		e.emitter.Emit(event)
	}
}

// CreateFarm registers a new reward campaign under the terms' seed and returns
// its id. Funding must cover the new records' storage cost. The optional
// minDeposit and equivalence table apply only when this is the first farm for
// the seed.
func (e *Engine) CreateFarm(terms FarmTerms, funding, minDeposit *big.Int, equivalence map[string]*big.Int) (FarmID, error) {
	if e == nil || e.state == nil {
		return "", errNilState
	}
	if err := terms.Validate(); err != nil {
		return "", err
	}
	if funding == nil || funding.Cmp(CreateFarmStorageCost) < 0 {
		return "", ErrInsufficientFunding
	}

	seed, ok, err := e.state.GetSeed(terms.SeedID)
	if err != nil {
		return "", err
	}
	if !ok {
		if minDeposit == nil || minDeposit.Sign() <= 0 {
			minDeposit = DefaultMinDeposit
		}
		seed = NewSeedAggregate(terms.SeedID, minDeposit)
		if len(equivalence) > 0 {
			seed.Equivalence = make(map[string]*big.Int, len(equivalence))
			for descriptor, amount := range equivalence {
				seed.Equivalence[descriptor] = cloneBigInt(amount)
			}
		}
	}

	id := GenFarmID(seed.SeedID, seed.NextIndex)
	created := NewFarm(id, terms)
	seed.AddFarm(id)
	seed.NextIndex++

	if err := e.state.PutSeed(seed); err != nil {
		return "", err
	}
	if err := e.state.PutFarm(created); err != nil {
		return "", err
	}
	e.log.Info("farm created", "farmId", id, "seedId", terms.SeedID, "rewardToken", terms.RewardToken)
	e.emit(events.FarmCreated{FarmID: id, SeedID: terms.SeedID, RewardToken: terms.RewardToken, StartAt: terms.StartAt})
	return id, nil
}

// DepositReward tops up a farm's undistributed pool and returns the new
// undistributed total. Rejected when the farm can no longer accept reward.
func (e *Engine) DepositReward(id FarmID, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	target, ok, err := e.state.GetFarm(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrFarmNotFound
	}
	seed, ok, err := e.state.GetSeed(target.Terms.SeedID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSeedNotFound
	}
	undistributed, err := target.AddReward(e.now(), amount, seed.TotalStaked)
	if err != nil {
		return nil, err
	}
	if err := e.state.PutFarm(target); err != nil {
		return nil, err
	}
	e.emit(events.RewardDeposited{FarmID: id, Amount: amount, Undistributed: undistributed})
	return undistributed, nil
}

// RegisterFarmer creates a farmer record, or adds funding to an existing one.
// New records require funding to cover their storage cost.
func (e *Engine) RegisterFarmer(owner string, funding *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	wrapped, ok, err := e.state.GetFarmer(owner)
	if err != nil {
		return err
	}
	if ok {
		account := wrapped.Account()
		if funding != nil && funding.Sign() > 0 {
			account.StorageFunds = new(big.Int).Add(account.StorageFunds, funding)
		}
		return e.state.PutFarmer(wrapped)
	}
	if funding == nil || funding.Cmp(RegisterFarmerStorageCost) < 0 {
		return ErrInsufficientFunding
	}
	return e.state.PutFarmer(NewFarmer(owner, funding))
}

// DepositStake credits staked seed to a farmer. Every farm under the seed is
// settled against the pre-change stake before the totals move.
func (e *Engine) DepositStake(owner string, seedID SeedID, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	farmer, seed, err := e.loadFarmerAndSeed(owner, seedID)
	if err != nil {
		return err
	}
	if seed.MinDeposit != nil && amount.Cmp(seed.MinDeposit) < 0 {
		return ErrBelowMinDeposit
	}
	account := farmer.Account()
	if err := e.settleFarmsForSeed(account, seed); err != nil {
		return err
	}

	seed.AddAmount(amount)
	account.AddSeed(seedID, amount)

	if err := e.state.PutSeed(seed); err != nil {
		return err
	}
	if err := e.state.PutFarmer(farmer); err != nil {
		return err
	}
	e.emit(events.StakeDeposited{Owner: owner, SeedID: seedID, Amount: amount, Total: seed.TotalStaked})
	return nil
}

// WithdrawStake debits staked seed from a farmer and initiates the external
// transfer returning the tokens. The returned request id resolves through
// ResolveTransfer; a failed transfer re-stakes the exact amount withdrawn.
func (e *Engine) WithdrawStake(owner string, seedID SeedID, amount *big.Int) (string, error) {
	if e == nil || e.state == nil {
		return "", errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", ErrInvalidAmount
	}
	farmer, seed, err := e.loadFarmerAndSeed(owner, seedID)
	if err != nil {
		return "", err
	}
	account := farmer.Account()
	if err := e.settleFarmsForSeed(account, seed); err != nil {
		return "", err
	}

	remaining, err := account.SubSeed(seedID, amount)
	if err != nil {
		return "", err
	}
	if err := seed.SubAmount(amount); err != nil {
		return "", err
	}
	if remaining.Sign() == 0 {
		// No stake means no future claim; stale snapshots must not be
		// re-settled later.
		for _, id := range seed.Farms {
			account.RemoveSnapshot(id)
		}
	}

	if err := e.state.PutFarmer(farmer); err != nil {
		return "", err
	}
	if err := e.state.PutSeed(seed); err != nil {
		return "", err
	}
	e.emit(events.StakeWithdrawn{Owner: owner, SeedID: seedID, Amount: amount, Total: seed.TotalStaked})
	return e.requestTransfer(TransferStake, owner, seedID, seedID, amount)
}

// DepositStakeEquivalent stakes a non-fungible token by its configured stake
// equivalence.
func (e *Engine) DepositStakeEquivalent(owner string, seedID SeedID, descriptor string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	farmer, seed, err := e.loadFarmerAndSeed(owner, seedID)
	if err != nil {
		return err
	}
	equivalent, ok := seed.ResolveEquivalent(descriptor)
	if !ok {
		return ErrNoEquivalence
	}
	account := farmer.Account()
	if account.Holdings[seedID][descriptor] {
		return ErrHoldingExists
	}
	if err := e.settleFarmsForSeed(account, seed); err != nil {
		return err
	}

	account.AddHolding(seedID, descriptor)
	account.AddSeed(seedID, equivalent)
	seed.AddAmount(equivalent)

	if err := e.state.PutFarmer(farmer); err != nil {
		return err
	}
	if err := e.state.PutSeed(seed); err != nil {
		return err
	}
	e.emit(events.StakeDeposited{Owner: owner, SeedID: seedID, Amount: equivalent, Total: seed.TotalStaked})
	return nil
}

// WithdrawStakeEquivalent unstakes a non-fungible token and initiates the
// external transfer returning it. A failed transfer re-stakes the token.
func (e *Engine) WithdrawStakeEquivalent(owner string, seedID SeedID, descriptor string) (string, error) {
	if e == nil || e.state == nil {
		return "", errNilState
	}
	farmer, seed, err := e.loadFarmerAndSeed(owner, seedID)
	if err != nil {
		return "", err
	}
	equivalent, ok := seed.ResolveEquivalent(descriptor)
	if !ok {
		return "", ErrNoEquivalence
	}
	account := farmer.Account()
	if err := e.settleFarmsForSeed(account, seed); err != nil {
		return "", err
	}

	if !account.RemoveHolding(seedID, descriptor) {
		return "", ErrHoldingNotFound
	}
	remaining, err := account.SubSeed(seedID, equivalent)
	if err != nil {
		return "", err
	}
	if err := seed.SubAmount(equivalent); err != nil {
		return "", err
	}
	if remaining.Sign() == 0 {
		for _, id := range seed.Farms {
			account.RemoveSnapshot(id)
		}
	}

	if err := e.state.PutFarmer(farmer); err != nil {
		return "", err
	}
	if err := e.state.PutSeed(seed); err != nil {
		return "", err
	}
	e.emit(events.StakeWithdrawn{Owner: owner, SeedID: seedID, Amount: equivalent, Total: seed.TotalStaked})
	return e.requestTransfer(TransferHolding, owner, descriptor, seedID, equivalent)
}

// ClaimByFarm settles one farm for a farmer and moves their share of the
// unclaimed pool into the claimed balance for the farm's reward token.
func (e *Engine) ClaimByFarm(owner string, id FarmID) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	target, ok, err := e.state.GetFarm(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrFarmNotFound
	}
	farmer, seed, err := e.loadFarmerAndSeed(owner, target.Terms.SeedID)
	if err != nil {
		return err
	}
	account := farmer.Account()
	if err := e.settleFarmForFarmer(account, target, seed.TotalStaked); err != nil {
		return err
	}
	if err := e.state.PutFarm(target); err != nil {
		return err
	}
	return e.state.PutFarmer(farmer)
}

// ClaimBySeed settles every farm under a seed for a farmer.
func (e *Engine) ClaimBySeed(owner string, seedID SeedID) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	farmer, seed, err := e.loadFarmerAndSeed(owner, seedID)
	if err != nil {
		return err
	}
	if err := e.settleFarmsForSeed(farmer.Account(), seed); err != nil {
		return err
	}
	return e.state.PutFarmer(farmer)
}

// WithdrawClaimed debits a farmer's claimed balance and initiates the external
// transfer. A zero amount withdraws the whole balance. The debit happens
// before the transfer; ResolveTransfer re-credits it on confirmed failure.
func (e *Engine) WithdrawClaimed(owner, token string, amount *big.Int) (string, error) {
	if e == nil || e.state == nil {
		return "", errNilState
	}
	farmer, ok, err := e.state.GetFarmer(owner)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrFarmerNotFound
	}
	actual, err := farmer.Account().SubReward(token, amount)
	if err != nil {
		return "", err
	}
	if err := e.state.PutFarmer(farmer); err != nil {
		return "", err
	}
	return e.requestTransfer(TransferReward, owner, token, "", actual)
}

// ResolveTransfer finishes the two-phase withdrawal protocol. The host calls
// it exactly once per request id. Success discards the pending record; failure
// re-credits exactly what was debited, restoring the pre-withdrawal state.
func (e *Engine) ResolveTransfer(id string, success bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	pending, ok, err := e.state.GetPendingTransfer(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTransferNotFound
	}
	if !success {
		if err := e.compensate(pending); err != nil {
			return err
		}
		e.log.Warn("transfer failed, compensated",
			"requestId", pending.ID, "kind", pending.Kind.String(),
			"owner", pending.Owner, "token", pending.Token, "amount", pending.Amount)
	}
	if err := e.state.RemovePendingTransfer(id); err != nil {
		return err
	}
	e.emit(events.TransferResolved{
		RequestID: pending.ID,
		Owner:     pending.Owner,
		Token:     pending.Token,
		Amount:    pending.Amount,
		Success:   success,
	})
	return nil
}

// ViewUnclaimed projects a farmer's claimable amount for one farm using the
// non-committing accrual check. No state is mutated.
func (e *Engine) ViewUnclaimed(owner string, id FarmID) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	target, ok, err := e.state.GetFarm(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrFarmNotFound
	}
	farmer, seed, err := e.loadFarmerAndSeed(owner, target.Terms.SeedID)
	if err != nil {
		return nil, err
	}
	account := farmer.Account()
	return target.FarmerUnclaimed(e.now(), account.Snapshot(id), account.SeedBalance(seed.SeedID), seed.TotalStaked)
}

// SweepEndedFarm moves a removable farm to Cleared and archives it. Residual
// unclaimed reward is attributed to the beneficiary counter, never lost.
func (e *Engine) SweepEndedFarm(id FarmID) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	target, ok, err := e.state.GetFarm(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrFarmNotFound
	}
	seed, ok, err := e.state.GetSeed(target.Terms.SeedID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSeedNotFound
	}
	removable, err := target.CanBeRemoved(e.now(), seed.TotalStaked)
	if err != nil {
		return err
	}
	if !removable {
		return ErrFarmNotRemovable
	}
	if _, err := target.MoveToClear(e.now(), seed.TotalStaked); err != nil {
		return err
	}
	if err := e.state.RemoveFarm(id); err != nil {
		return err
	}
	if err := e.state.ArchiveFarm(target); err != nil {
		return err
	}
	seed.RemoveFarm(id)
	if err := e.state.PutSeed(seed); err != nil {
		return err
	}
	e.log.Info("farm swept", "farmId", id, "beneficiary", target.TotalBeneficiary)
	e.emit(events.FarmSwept{FarmID: id, Beneficiary: target.TotalBeneficiary})
	return nil
}

// RemoveSnapshot drops a farmer's stale accumulator snapshot once its farm has
// been swept out of the seed's active set.
func (e *Engine) RemoveSnapshot(owner string, id FarmID) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	seedID, _, err := ParseFarmID(id)
	if err != nil {
		return err
	}
	farmer, seed, err := e.loadFarmerAndSeed(owner, seedID)
	if err != nil {
		return err
	}
	if seed.HasFarm(id) {
		return ErrSnapshotInUse
	}
	farmer.Account().RemoveSnapshot(id)
	return e.state.PutFarmer(farmer)
}

// settleFarmsForSeed reconciles a farmer's claim in every farm under the seed
// against the pre-change stake. The caller persists the farmer and seed.
func (e *Engine) settleFarmsForSeed(account *FarmerAccount, seed *SeedAggregate) error {
	for _, id := range seed.Farms {
		target, ok, err := e.state.GetFarm(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrFarmNotFound, id)
		}
		if err := e.settleFarmForFarmer(account, target, seed.TotalStaked); err != nil {
			return err
		}
		if err := e.state.PutFarm(target); err != nil {
			return err
		}
	}
	return nil
}

// settleFarmForFarmer commits the farm's accrual and credits the farmer's
// share, advancing their snapshot to the post-commit accumulator. The caller
// persists both records.
func (e *Engine) settleFarmForFarmer(account *FarmerAccount, target *Farm, totalStake *big.Int) error {
	stake := account.SeedBalance(target.Terms.SeedID)
	snapshot := account.Snapshot(target.ID)
	next, claimed, err := target.SettleFarmer(e.now(), snapshot, stake, totalStake)
	if err != nil {
		if Fatal(err) {
			e.log.Error("settlement invariant violation",
				"farmId", target.ID, "owner", account.Owner, "err", err)
		}
		return err
	}
	account.SetSnapshot(target.ID, next)
	if claimed.Sign() > 0 {
		account.AddReward(target.Terms.RewardToken, claimed)
		e.emit(events.RewardClaimed{Owner: account.Owner, FarmID: target.ID, Token: target.Terms.RewardToken, Amount: claimed})
	}
	return nil
}

// requestTransfer records the optimistic debit and hands the request to the
// external token service.
func (e *Engine) requestTransfer(kind TransferKind, owner, token string, seedID SeedID, amount *big.Int) (string, error) {
	pending := &PendingTransfer{
		ID:        e.newID(),
		Kind:      kind,
		Owner:     owner,
		Token:     token,
		SeedID:    seedID,
		Amount:    cloneBigInt(amount),
		CreatedAt: e.clock.Now().UTC().Unix(),
	}
	if err := e.state.PutPendingTransfer(pending); err != nil {
		return "", err
	}
	e.emit(events.TransferRequested{RequestID: pending.ID, Owner: owner, Token: token, Amount: pending.Amount})
	e.transferer.Transfer(token, owner, pending.Amount, pending.ID)
	return pending.ID, nil
}

// compensate reverts the optimistic debit of a failed transfer. Stake kinds go
// back through the full settle-then-add path so the re-staked amount earns
// nothing for the window it was out.
func (e *Engine) compensate(pending *PendingTransfer) error {
	switch pending.Kind {
	case TransferReward:
		farmer, ok, err := e.state.GetFarmer(pending.Owner)
		if err != nil {
			return err
		}
		if !ok {
			return ErrFarmerNotFound
		}
		farmer.Account().AddReward(pending.Token, pending.Amount)
		return e.state.PutFarmer(farmer)
	case TransferStake, TransferHolding:
		farmer, seed, err := e.loadFarmerAndSeed(pending.Owner, pending.SeedID)
		if err != nil {
			return err
		}
		account := farmer.Account()
		if err := e.settleFarmsForSeed(account, seed); err != nil {
			return err
		}
		if pending.Kind == TransferHolding {
			account.AddHolding(seed.SeedID, pending.Token)
		}
		account.AddSeed(seed.SeedID, pending.Amount)
		seed.AddAmount(pending.Amount)
		if err := e.state.PutFarmer(farmer); err != nil {
			return err
		}
		return e.state.PutSeed(seed)
	default:
		return fmt.Errorf("farm: unknown transfer kind %d", pending.Kind)
	}
}

func (e *Engine) loadFarmerAndSeed(owner string, seedID SeedID) (*VersionedFarmer, *SeedAggregate, error) {
	farmer, ok, err := e.state.GetFarmer(owner)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrFarmerNotFound
	}
	seed, ok, err := e.state.GetSeed(seedID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrSeedNotFound
	}
	return farmer, seed, nil
}

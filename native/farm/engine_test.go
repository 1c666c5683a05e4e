package farm

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"seedfarm/core/events"
)

type emitterFunc func(string)

func (f emitterFunc) Emit(evt events.Event) { f(evt.EventType()) }

type mockEngineState struct {
	farms     map[FarmID]*Farm
	archived  map[FarmID]*Farm
	seeds     map[SeedID]*SeedAggregate
	farmers   map[string]*VersionedFarmer
	transfers map[string]*PendingTransfer
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		farms:     make(map[FarmID]*Farm),
		archived:  make(map[FarmID]*Farm),
		seeds:     make(map[SeedID]*SeedAggregate),
		farmers:   make(map[string]*VersionedFarmer),
		transfers: make(map[string]*PendingTransfer),
	}
}

func (m *mockEngineState) GetFarm(id FarmID) (*Farm, bool, error) {
	record, ok := m.farms[id]
	return record, ok, nil
}

func (m *mockEngineState) PutFarm(record *Farm) error {
	m.farms[record.ID] = record
	return nil
}

func (m *mockEngineState) RemoveFarm(id FarmID) error {
	delete(m.farms, id)
	return nil
}

func (m *mockEngineState) ArchiveFarm(record *Farm) error {
	m.archived[record.ID] = record
	return nil
}

func (m *mockEngineState) GetArchivedFarm(id FarmID) (*Farm, bool, error) {
	record, ok := m.archived[id]
	return record, ok, nil
}

func (m *mockEngineState) GetSeed(id SeedID) (*SeedAggregate, bool, error) {
	record, ok := m.seeds[id]
	return record, ok, nil
}

func (m *mockEngineState) PutSeed(record *SeedAggregate) error {
	m.seeds[record.SeedID] = record
	return nil
}

func (m *mockEngineState) GetFarmer(owner string) (*VersionedFarmer, bool, error) {
	record, ok := m.farmers[owner]
	return record, ok, nil
}

func (m *mockEngineState) PutFarmer(record *VersionedFarmer) error {
	m.farmers[record.Account().Owner] = record
	return nil
}

func (m *mockEngineState) GetPendingTransfer(id string) (*PendingTransfer, bool, error) {
	record, ok := m.transfers[id]
	return record, ok, nil
}

func (m *mockEngineState) PutPendingTransfer(record *PendingTransfer) error {
	m.transfers[record.ID] = record
	return nil
}

func (m *mockEngineState) RemovePendingTransfer(id string) error {
	delete(m.transfers, id)
	return nil
}

type transferCall struct {
	token     string
	recipient string
	amount    *big.Int
	requestID string
}

type recordingTransferer struct {
	calls []transferCall
}

func (r *recordingTransferer) Transfer(token, recipient string, amount *big.Int, requestID string) {
	r.calls = append(r.calls, transferCall{token: token, recipient: recipient, amount: amount, requestID: requestID})
}

func newTestEngine(t *testing.T) (*Engine, *mockEngineState, *clockwork.FakeClock, *recordingTransferer) {
	t.Helper()
	state := newMockEngineState()
	clock := clockwork.NewFakeClockAt(time.Unix(100, 0).UTC())
	transfers := &recordingTransferer{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetClock(clock)
	engine.SetTransferer(transfers)
	return engine, state, clock, transfers
}

func setupFarm(t *testing.T, engine *Engine, reward int64) FarmID {
	t.Helper()
	terms := FarmTerms{
		SeedID:           "swap@0",
		RewardToken:      "reward.token",
		RewardPerSession: big.NewInt(50),
		SessionInterval:  60,
	}
	id, err := engine.CreateFarm(terms, big.NewInt(2000), big.NewInt(1), nil)
	if err != nil {
		t.Fatalf("create farm: %v", err)
	}
	if _, err := engine.DepositReward(id, big.NewInt(reward)); err != nil {
		t.Fatalf("deposit reward: %v", err)
	}
	if err := engine.RegisterFarmer("alice", big.NewInt(1000)); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	return id
}

func TestCreateFarmAssignsSequentialIDs(t *testing.T) {
	engine, state, _, _ := newTestEngine(t)
	terms := FarmTerms{
		SeedID:           "swap@0",
		RewardToken:      "reward.token",
		RewardPerSession: big.NewInt(50),
		SessionInterval:  60,
	}

	first, err := engine.CreateFarm(terms, big.NewInt(2000), big.NewInt(1), nil)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := engine.CreateFarm(terms, big.NewInt(2000), nil, nil)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first != "swap@0#0" || second != "swap@0#1" {
		t.Fatalf("unexpected ids: %s %s", first, second)
	}
	seed := state.seeds["swap@0"]
	if seed.NextIndex != 2 || len(seed.Farms) != 2 {
		t.Fatalf("unexpected seed aggregate: index %d farms %d", seed.NextIndex, len(seed.Farms))
	}
	// The aggregate's minimum was fixed by the first farm.
	if seed.MinDeposit.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("unexpected min deposit: %s", seed.MinDeposit)
	}

	if _, err := engine.CreateFarm(terms, big.NewInt(10), nil, nil); !errors.Is(err, ErrInsufficientFunding) {
		t.Fatalf("expected funding error, got %v", err)
	}
}

func TestRegisterFarmer(t *testing.T) {
	engine, state, _, _ := newTestEngine(t)
	if err := engine.RegisterFarmer("alice", big.NewInt(10)); !errors.Is(err, ErrInsufficientFunding) {
		t.Fatalf("expected funding error, got %v", err)
	}
	if err := engine.RegisterFarmer("alice", big.NewInt(1000)); err != nil {
		t.Fatalf("register: %v", err)
	}
	// Re-registering tops up storage funds.
	if err := engine.RegisterFarmer("alice", big.NewInt(500)); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	account := state.farmers["alice"].Account()
	if account.StorageFunds.Cmp(big.NewInt(1500)) != 0 {
		t.Fatalf("unexpected storage funds: %s", account.StorageFunds)
	}
}

func TestStakeClaimLifecycle(t *testing.T) {
	engine, state, clock, _ := newTestEngine(t)
	id := setupFarm(t, engine, 5000)

	clock.Advance(30 * time.Second) // t=130, mid first session
	if err := engine.DepositStake("alice", "swap@0", big.NewInt(10)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	clock.Advance(30 * time.Second) // t=160, one session elapsed
	unclaimed, err := engine.ViewUnclaimed("alice", id)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if unclaimed.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected unclaimed: %s", unclaimed)
	}

	if err := engine.ClaimByFarm("alice", id); err != nil {
		t.Fatalf("claim: %v", err)
	}
	account := state.farmers["alice"].Account()
	if account.RewardBalance("reward.token").Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected reward balance: %s", account.RewardBalance("reward.token"))
	}
	if state.farms[id].Dist.Round != 1 {
		t.Fatalf("claim did not commit accrual: round %d", state.farms[id].Dist.Round)
	}

	// Let the farm run dry, claim the rest, then sweep it away.
	clock.Advance(3 * time.Hour)
	if err := engine.ClaimBySeed("alice", "swap@0"); err != nil {
		t.Fatalf("final claim: %v", err)
	}
	if account.RewardBalance("reward.token").Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("unexpected final balance: %s", account.RewardBalance("reward.token"))
	}
	if state.farms[id].Status != StatusEnded {
		t.Fatalf("unexpected status: %s", state.farms[id].Status)
	}

	if err := engine.SweepEndedFarm(id); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if _, ok := state.farms[id]; ok {
		t.Fatalf("swept farm still active")
	}
	if state.seeds["swap@0"].HasFarm(id) {
		t.Fatalf("swept farm still listed under seed")
	}
	view, err := engine.FarmInfo(id)
	if err != nil {
		t.Fatalf("archived view: %v", err)
	}
	if view.Status != "Cleared" {
		t.Fatalf("unexpected archived status: %s", view.Status)
	}
	if view.TotalClaimed.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("unexpected archived claimed: %s", view.TotalClaimed)
	}

	// Stale snapshots may now be dropped.
	if err := engine.RemoveSnapshot("alice", id); err != nil {
		t.Fatalf("remove snapshot: %v", err)
	}
	if _, ok := account.Snapshots[id]; ok {
		t.Fatalf("snapshot not removed")
	}
}

func TestTwoFarmersProportionalSplit(t *testing.T) {
	engine, state, clock, _ := newTestEngine(t)
	terms := FarmTerms{
		SeedID:           "swap@0",
		RewardToken:      "reward.token",
		RewardPerSession: big.NewInt(100),
		SessionInterval:  60,
	}
	id, err := engine.CreateFarm(terms, big.NewInt(2000), big.NewInt(1), nil)
	if err != nil {
		t.Fatalf("create farm: %v", err)
	}
	if _, err := engine.DepositReward(id, big.NewInt(600)); err != nil {
		t.Fatalf("deposit reward: %v", err)
	}
	for _, owner := range []string{"alice", "bob"} {
		if err := engine.RegisterFarmer(owner, big.NewInt(1000)); err != nil {
			t.Fatalf("register %s: %v", owner, err)
		}
	}

	if err := engine.DepositStake("alice", "swap@0", big.NewInt(10)); err != nil {
		t.Fatalf("alice stake: %v", err)
	}
	clock.Advance(180 * time.Second) // t=280, three sessions for alice alone
	if err := engine.DepositStake("bob", "swap@0", big.NewInt(10)); err != nil {
		t.Fatalf("bob stake: %v", err)
	}
	clock.Advance(180 * time.Second) // t=460, three sessions shared

	if err := engine.ClaimByFarm("alice", id); err != nil {
		t.Fatalf("alice claim: %v", err)
	}
	if err := engine.ClaimByFarm("bob", id); err != nil {
		t.Fatalf("bob claim: %v", err)
	}
	alice := state.farmers["alice"].Account().RewardBalance("reward.token")
	bob := state.farmers["bob"].Account().RewardBalance("reward.token")
	if alice.Cmp(big.NewInt(450)) != 0 {
		t.Fatalf("unexpected alice balance: %s", alice)
	}
	if bob.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("unexpected bob balance: %s", bob)
	}
	if state.farms[id].Status != StatusEnded {
		t.Fatalf("unexpected status: %s", state.farms[id].Status)
	}
}

func TestStakeRoundTripWithinSessionEarnsNothing(t *testing.T) {
	engine, state, clock, _ := newTestEngine(t)
	id := setupFarm(t, engine, 5000)

	clock.Advance(60 * time.Second) // t=160, session 1 under way
	if err := engine.DepositStake("alice", "swap@0", big.NewInt(10)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	clock.Advance(30 * time.Second) // t=190, still session 1
	if _, err := engine.WithdrawStake("alice", "swap@0", big.NewInt(10)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	account := state.farmers["alice"].Account()
	if balance := account.RewardBalance("reward.token"); balance.Sign() != 0 {
		t.Fatalf("round-trip stake earned reward: %s", balance)
	}
	if _, ok := account.Snapshots[id]; ok {
		t.Fatalf("snapshot kept after stake dropped to zero")
	}
	if stake := state.seeds["swap@0"].TotalStaked; stake.Sign() != 0 {
		t.Fatalf("seed total not restored: %s", stake)
	}
}

func TestDepositStakeGuards(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	setupFarm(t, engine, 5000)

	if err := engine.DepositStake("alice", "swap@0", big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := engine.DepositStake("mallory", "swap@0", big.NewInt(10)); !errors.Is(err, ErrFarmerNotFound) {
		t.Fatalf("expected unregistered farmer error, got %v", err)
	}
	if err := engine.DepositStake("alice", "missing", big.NewInt(10)); !errors.Is(err, ErrSeedNotFound) {
		t.Fatalf("expected missing seed error, got %v", err)
	}
}

func TestDepositStakeBelowMinimum(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	terms := FarmTerms{
		SeedID:           "swap@0",
		RewardToken:      "reward.token",
		RewardPerSession: big.NewInt(50),
		SessionInterval:  60,
	}
	if _, err := engine.CreateFarm(terms, big.NewInt(2000), big.NewInt(100), nil); err != nil {
		t.Fatalf("create farm: %v", err)
	}
	if err := engine.RegisterFarmer("alice", big.NewInt(1000)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.DepositStake("alice", "swap@0", big.NewInt(99)); !errors.Is(err, ErrBelowMinDeposit) {
		t.Fatalf("expected min deposit error, got %v", err)
	}
	if err := engine.DepositStake("alice", "swap@0", big.NewInt(100)); err != nil {
		t.Fatalf("stake at minimum: %v", err)
	}
}

func TestWithdrawStakeTwoPhase(t *testing.T) {
	engine, state, clock, transfers := newTestEngine(t)
	setupFarm(t, engine, 5000)
	if err := engine.DepositStake("alice", "swap@0", big.NewInt(10)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	clock.Advance(60 * time.Second)

	requestID, err := engine.WithdrawStake("alice", "swap@0", big.NewInt(4))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if len(transfers.calls) != 1 || transfers.calls[0].requestID != requestID {
		t.Fatalf("transfer not dispatched: %+v", transfers.calls)
	}
	if transfers.calls[0].token != "swap@0" || transfers.calls[0].amount.Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("unexpected transfer call: %+v", transfers.calls[0])
	}
	account := state.farmers["alice"].Account()
	if account.SeedBalance("swap@0").Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("unexpected stake after withdraw: %s", account.SeedBalance("swap@0"))
	}
	if state.seeds["swap@0"].TotalStaked.Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("unexpected total stake: %s", state.seeds["swap@0"].TotalStaked)
	}
	// The pre-withdraw session was settled before the stake moved.
	if account.RewardBalance("reward.token").Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("withdraw did not settle first: %s", account.RewardBalance("reward.token"))
	}

	if err := engine.ResolveTransfer(requestID, true); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := state.transfers[requestID]; ok {
		t.Fatalf("resolved transfer still pending")
	}
	if err := engine.ResolveTransfer(requestID, true); !errors.Is(err, ErrTransferNotFound) {
		t.Fatalf("expected unknown transfer, got %v", err)
	}
}

func TestWithdrawStakeFailureRestakes(t *testing.T) {
	engine, state, _, _ := newTestEngine(t)
	setupFarm(t, engine, 5000)
	if err := engine.DepositStake("alice", "swap@0", big.NewInt(10)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	requestID, err := engine.WithdrawStake("alice", "swap@0", big.NewInt(10))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	account := state.farmers["alice"].Account()
	if account.SeedBalance("swap@0").Sign() != 0 {
		t.Fatalf("stake not debited")
	}
	if len(account.Snapshots) != 0 {
		t.Fatalf("snapshots kept after full withdrawal")
	}

	if err := engine.ResolveTransfer(requestID, false); err != nil {
		t.Fatalf("resolve failure: %v", err)
	}
	if account.SeedBalance("swap@0").Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("stake not restored: %s", account.SeedBalance("swap@0"))
	}
	if state.seeds["swap@0"].TotalStaked.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("total stake not restored: %s", state.seeds["swap@0"].TotalStaked)
	}
}

func TestWithdrawStakeInsufficient(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	setupFarm(t, engine, 5000)
	if err := engine.DepositStake("alice", "swap@0", big.NewInt(10)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if _, err := engine.WithdrawStake("alice", "swap@0", big.NewInt(11)); !errors.Is(err, ErrInsufficientStake) {
		t.Fatalf("expected insufficient stake, got %v", err)
	}
}

func TestWithdrawClaimedTwoPhase(t *testing.T) {
	engine, state, clock, transfers := newTestEngine(t)
	id := setupFarm(t, engine, 5000)
	if err := engine.DepositStake("alice", "swap@0", big.NewInt(10)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	clock.Advance(120 * time.Second)
	if err := engine.ClaimByFarm("alice", id); err != nil {
		t.Fatalf("claim: %v", err)
	}
	account := state.farmers["alice"].Account()
	if account.RewardBalance("reward.token").Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected balance: %s", account.RewardBalance("reward.token"))
	}

	// Partial withdrawal, confirmed failure: the debit comes back.
	requestID, err := engine.WithdrawClaimed("alice", "reward.token", big.NewInt(60))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if account.RewardBalance("reward.token").Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("debit not applied: %s", account.RewardBalance("reward.token"))
	}
	if err := engine.ResolveTransfer(requestID, false); err != nil {
		t.Fatalf("resolve failure: %v", err)
	}
	if account.RewardBalance("reward.token").Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("failed transfer not re-credited: %s", account.RewardBalance("reward.token"))
	}

	// Zero amount means the whole balance.
	requestID, err = engine.WithdrawClaimed("alice", "reward.token", nil)
	if err != nil {
		t.Fatalf("withdraw all: %v", err)
	}
	if _, ok := account.Rewards["reward.token"]; ok {
		t.Fatalf("balance entry kept after full withdrawal")
	}
	if got := transfers.calls[len(transfers.calls)-1].amount; got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected transfer amount: %s", got)
	}
	if err := engine.ResolveTransfer(requestID, true); err != nil {
		t.Fatalf("resolve success: %v", err)
	}

	if _, err := engine.WithdrawClaimed("alice", "reward.token", nil); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected missing token, got %v", err)
	}
}

func TestEquivalenceStaking(t *testing.T) {
	engine, state, clock, _ := newTestEngine(t)
	terms := FarmTerms{
		SeedID:           "nft.market",
		RewardToken:      "reward.token",
		RewardPerSession: big.NewInt(50),
		SessionInterval:  60,
	}
	equivalence := map[string]*big.Int{"art@alpha": big.NewInt(25)}
	id, err := engine.CreateFarm(terms, big.NewInt(2000), big.NewInt(1), equivalence)
	if err != nil {
		t.Fatalf("create farm: %v", err)
	}
	if _, err := engine.DepositReward(id, big.NewInt(500)); err != nil {
		t.Fatalf("deposit reward: %v", err)
	}
	if err := engine.RegisterFarmer("alice", big.NewInt(1000)); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := engine.DepositStakeEquivalent("alice", "nft.market", "art@alpha:7"); err != nil {
		t.Fatalf("stake token: %v", err)
	}
	if err := engine.DepositStakeEquivalent("alice", "nft.market", "art@alpha:7"); !errors.Is(err, ErrHoldingExists) {
		t.Fatalf("expected duplicate holding error, got %v", err)
	}
	if err := engine.DepositStakeEquivalent("alice", "nft.market", "other@x:1"); !errors.Is(err, ErrNoEquivalence) {
		t.Fatalf("expected no equivalence error, got %v", err)
	}
	account := state.farmers["alice"].Account()
	if account.SeedBalance("nft.market").Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("unexpected equivalent stake: %s", account.SeedBalance("nft.market"))
	}

	clock.Advance(60 * time.Second)
	requestID, err := engine.WithdrawStakeEquivalent("alice", "nft.market", "art@alpha:7")
	if err != nil {
		t.Fatalf("withdraw token: %v", err)
	}
	if account.SeedBalance("nft.market").Sign() != 0 {
		t.Fatalf("equivalent stake not removed")
	}
	// The session staked through was settled on the way out.
	if account.RewardBalance("reward.token").Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected reward: %s", account.RewardBalance("reward.token"))
	}

	if err := engine.ResolveTransfer(requestID, false); err != nil {
		t.Fatalf("resolve failure: %v", err)
	}
	if account.SeedBalance("nft.market").Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("failed withdrawal not re-staked: %s", account.SeedBalance("nft.market"))
	}
	if !account.Holdings["nft.market"]["art@alpha:7"] {
		t.Fatalf("holding not restored")
	}

	if _, err := engine.WithdrawStakeEquivalent("alice", "nft.market", "art@alpha:9"); !errors.Is(err, ErrHoldingNotFound) {
		t.Fatalf("expected missing holding, got %v", err)
	}
}

func TestSweepGuards(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	id := setupFarm(t, engine, 5000)

	if err := engine.SweepEndedFarm(id); !errors.Is(err, ErrFarmNotRemovable) {
		t.Fatalf("expected not removable, got %v", err)
	}
	if err := engine.SweepEndedFarm("missing#0"); !errors.Is(err, ErrFarmNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemoveSnapshotInUse(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	id := setupFarm(t, engine, 5000)
	if err := engine.DepositStake("alice", "swap@0", big.NewInt(10)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := engine.RemoveSnapshot("alice", id); !errors.Is(err, ErrSnapshotInUse) {
		t.Fatalf("expected in-use error, got %v", err)
	}
}

func TestZeroStakeRewardRoutesToBeneficiary(t *testing.T) {
	engine, state, clock, _ := newTestEngine(t)
	id := setupFarm(t, engine, 100)

	// Two full sessions pass with nothing staked; clearing the farm routes
	// the released reward to the beneficiary counter.
	clock.Advance(150 * time.Second)
	if err := engine.SweepEndedFarm(id); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	final := state.archived[id]
	if final.TotalBeneficiary.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected beneficiary total: %s", final.TotalBeneficiary)
	}
	if final.Status != StatusCleared {
		t.Fatalf("unexpected status: %s", final.Status)
	}
}

func TestFarmViews(t *testing.T) {
	engine, _, clock, _ := newTestEngine(t)
	id := setupFarm(t, engine, 5000)
	if err := engine.DepositStake("alice", "swap@0", big.NewInt(10)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	clock.Advance(60 * time.Second)

	view, err := engine.FarmInfo(id)
	if err != nil {
		t.Fatalf("farm info: %v", err)
	}
	if view.CurrentRound != 1 || view.LastRound != 0 {
		t.Fatalf("unexpected rounds: current %d last %d", view.CurrentRound, view.LastRound)
	}
	if view.Unclaimed.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected projected unclaimed: %s", view.Unclaimed)
	}
	if view.Status != "Running" {
		t.Fatalf("unexpected status: %s", view.Status)
	}

	list, err := engine.ListFarmsBySeed("swap@0")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].FarmID != id {
		t.Fatalf("unexpected list: %+v", list)
	}

	seedView, err := engine.SeedInfo("swap@0")
	if err != nil {
		t.Fatalf("seed info: %v", err)
	}
	if seedView.TotalStaked.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("unexpected total staked: %s", seedView.TotalStaked)
	}

	seeds, err := engine.FarmerSeeds("alice")
	if err != nil {
		t.Fatalf("farmer seeds: %v", err)
	}
	if seeds["swap@0"].Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("unexpected farmer seeds: %+v", seeds)
	}
}

func TestEmittedEvents(t *testing.T) {
	engine, _, clock, _ := newTestEngine(t)
	var emitted []string
	engine.SetEmitter(emitterFunc(func(evt string) {
		emitted = append(emitted, evt)
	}))

	id := setupFarm(t, engine, 5000)
	if err := engine.DepositStake("alice", "swap@0", big.NewInt(10)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	clock.Advance(60 * time.Second)
	if err := engine.ClaimByFarm("alice", id); err != nil {
		t.Fatalf("claim: %v", err)
	}

	want := []string{"farm.created", "farm.reward_deposited", "farm.stake_deposited", "farm.reward_claimed"}
	if len(emitted) != len(want) {
		t.Fatalf("unexpected events: %v", emitted)
	}
	for i, evt := range want {
		if emitted[i] != evt {
			t.Fatalf("event %d: got %s want %s", i, emitted[i], evt)
		}
	}
}

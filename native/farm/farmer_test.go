package farm

import (
	"errors"
	"math/big"
	"testing"
)

func TestFarmerRewardBalances(t *testing.T) {
	account := NewFarmer("alice", big.NewInt(1000)).Account()

	account.AddReward("reward.token", big.NewInt(100))
	account.AddReward("reward.token", big.NewInt(50))
	if account.RewardBalance("reward.token").Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("unexpected balance: %s", account.RewardBalance("reward.token"))
	}

	if _, err := account.SubReward("other.token", big.NewInt(1)); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected missing token, got %v", err)
	}
	if _, err := account.SubReward("reward.token", big.NewInt(151)); !errors.Is(err, ErrInsufficientReward) {
		t.Fatalf("expected insufficient reward, got %v", err)
	}

	actual, err := account.SubReward("reward.token", big.NewInt(60))
	if err != nil {
		t.Fatalf("sub reward: %v", err)
	}
	if actual.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("unexpected debit: %s", actual)
	}

	// Zero means everything, and the entry goes away.
	actual, err = account.SubReward("reward.token", nil)
	if err != nil {
		t.Fatalf("sub all: %v", err)
	}
	if actual.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("unexpected remainder debit: %s", actual)
	}
	if _, ok := account.Rewards["reward.token"]; ok {
		t.Fatalf("entry kept after full debit")
	}
}

func TestFarmerSeedBalances(t *testing.T) {
	account := NewFarmer("alice", big.NewInt(1000)).Account()

	account.AddSeed("swap@0", big.NewInt(10))
	account.AddSeed("swap@0", big.NewInt(5))
	if account.SeedBalance("swap@0").Cmp(big.NewInt(15)) != 0 {
		t.Fatalf("unexpected balance: %s", account.SeedBalance("swap@0"))
	}

	if _, err := account.SubSeed("missing", big.NewInt(1)); !errors.Is(err, ErrSeedNotFound) {
		t.Fatalf("expected missing seed, got %v", err)
	}
	if _, err := account.SubSeed("swap@0", big.NewInt(16)); !errors.Is(err, ErrInsufficientStake) {
		t.Fatalf("expected insufficient stake, got %v", err)
	}

	remaining, err := account.SubSeed("swap@0", big.NewInt(15))
	if err != nil {
		t.Fatalf("sub seed: %v", err)
	}
	if remaining.Sign() != 0 {
		t.Fatalf("unexpected remainder: %s", remaining)
	}
	if _, ok := account.Seeds["swap@0"]; ok {
		t.Fatalf("entry kept at zero stake")
	}
}

func TestVersionedFarmerUpgrade(t *testing.T) {
	record := NewFarmer("alice", big.NewInt(1))
	if record.Version != FarmerV1 {
		t.Fatalf("unexpected version: %d", record.Version)
	}
	upgraded := record.Upgrade()
	if upgraded != record {
		t.Fatalf("current schema should upgrade to itself")
	}
	if upgraded.Account().Owner != "alice" {
		t.Fatalf("unexpected owner: %s", upgraded.Account().Owner)
	}
}

package farmstore

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"seedfarm/native/farm"
	"seedfarm/storage"
)

// Key formats for farming records. Active and swept farms live under separate
// prefixes so sweeping never overwrites live state.
const (
	farmKeyFmt     = "farming/farm/%s"
	archivedKeyFmt = "farming/outdated/%s"
	seedKeyFmt     = "farming/seed/%s"
	farmerKeyFmt   = "farming/farmer/%s"
	transferKeyFmt = "farming/transfer/%s"
)

// Store persists farming records as RLP-encoded values in a key-value
// database. Maps are flattened into sorted pair lists before encoding so the
// stored bytes are deterministic.
type Store struct {
	db storage.Database
}

// NewStore wraps a key-value database in a farming record store.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

type storedFarm struct {
	ID               string
	SeedID           string
	RewardToken      string
	StartAt          uint64
	RewardPerSession *big.Int
	SessionInterval  uint64
	Status           uint8
	Undistributed    *big.Int
	Unclaimed        *big.Int
	RPS              *uint256.Int
	Round            uint64
	TotalReward      *big.Int
	TotalClaimed     *big.Int
	TotalBeneficiary *big.Int
}

type storedPair struct {
	Key    string
	Amount *big.Int
}

type storedSnapshot struct {
	FarmID string
	RPS    *uint256.Int
}

type storedHolding struct {
	SeedID      string
	Descriptors []string
}

type storedSeed struct {
	SeedID      string
	TotalStaked *big.Int
	Farms       []string
	NextIndex   uint32
	MinDeposit  *big.Int
	Equivalence []storedPair
}

type storedFarmer struct {
	Version      uint8
	Owner        string
	StorageFunds *big.Int
	Seeds        []storedPair
	Rewards      []storedPair
	Snapshots    []storedSnapshot
	Holdings     []storedHolding
}

type storedTransfer struct {
	ID        string
	Kind      uint8
	Owner     string
	Token     string
	SeedID    string
	Amount    *big.Int
	CreatedAt uint64
}

// GetFarm loads an active farm by id.
func (s *Store) GetFarm(id farm.FarmID) (*farm.Farm, bool, error) {
	return s.readFarm(farmKey(id))
}

// PutFarm persists an active farm.
func (s *Store) PutFarm(record *farm.Farm) error {
	return s.writeFarm(farmKey(record.ID), record)
}

// RemoveFarm deletes an active farm record.
func (s *Store) RemoveFarm(id farm.FarmID) error {
	return s.db.Delete(farmKey(id))
}

// ArchiveFarm persists a swept farm under the outdated prefix.
func (s *Store) ArchiveFarm(record *farm.Farm) error {
	return s.writeFarm(archivedKey(record.ID), record)
}

// GetArchivedFarm loads a swept farm by id.
func (s *Store) GetArchivedFarm(id farm.FarmID) (*farm.Farm, bool, error) {
	return s.readFarm(archivedKey(id))
}

// GetSeed loads a seed aggregate by id.
func (s *Store) GetSeed(id farm.SeedID) (*farm.SeedAggregate, bool, error) {
	raw, ok, err := s.read(seedKey(id))
	if err != nil || !ok {
		return nil, false, err
	}
	var stored storedSeed
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("farmstore: decode seed %s: %w", id, err)
	}
	record := &farm.SeedAggregate{
		SeedID:      stored.SeedID,
		TotalStaked: normalizeBig(stored.TotalStaked),
		Farms:       make([]farm.FarmID, 0, len(stored.Farms)),
		NextIndex:   stored.NextIndex,
		MinDeposit:  normalizeBig(stored.MinDeposit),
	}
	for _, farmID := range stored.Farms {
		record.Farms = append(record.Farms, farm.FarmID(farmID))
	}
	if len(stored.Equivalence) > 0 {
		record.Equivalence = make(map[string]*big.Int, len(stored.Equivalence))
		for _, pair := range stored.Equivalence {
			record.Equivalence[pair.Key] = normalizeBig(pair.Amount)
		}
	}
	return record, true, nil
}

// PutSeed persists a seed aggregate.
func (s *Store) PutSeed(record *farm.SeedAggregate) error {
	stored := storedSeed{
		SeedID:      record.SeedID,
		TotalStaked: normalizeBig(record.TotalStaked),
		Farms:       make([]string, 0, len(record.Farms)),
		NextIndex:   record.NextIndex,
		MinDeposit:  normalizeBig(record.MinDeposit),
		Equivalence: sortedPairs(record.Equivalence),
	}
	for _, id := range record.Farms {
		stored.Farms = append(stored.Farms, string(id))
	}
	return s.write(seedKey(record.SeedID), &stored, "seed", record.SeedID)
}

// GetFarmer loads a farmer record by owner, upgrading older schema revisions
// to the current one.
func (s *Store) GetFarmer(owner string) (*farm.VersionedFarmer, bool, error) {
	raw, ok, err := s.read(farmerKey(owner))
	if err != nil || !ok {
		return nil, false, err
	}
	var stored storedFarmer
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("farmstore: decode farmer %s: %w", owner, err)
	}
	account := &farm.FarmerAccount{
		Owner:        stored.Owner,
		StorageFunds: normalizeBig(stored.StorageFunds),
		Seeds:        make(map[farm.SeedID]*big.Int, len(stored.Seeds)),
		Rewards:      make(map[string]*big.Int, len(stored.Rewards)),
		Snapshots:    make(map[farm.FarmID]*uint256.Int, len(stored.Snapshots)),
		Holdings:     make(map[farm.SeedID]map[string]bool, len(stored.Holdings)),
	}
	for _, pair := range stored.Seeds {
		account.Seeds[farm.SeedID(pair.Key)] = normalizeBig(pair.Amount)
	}
	for _, pair := range stored.Rewards {
		account.Rewards[pair.Key] = normalizeBig(pair.Amount)
	}
	for _, snapshot := range stored.Snapshots {
		rps := snapshot.RPS
		if rps == nil {
			rps = uint256.NewInt(0)
		}
		account.Snapshots[farm.FarmID(snapshot.FarmID)] = rps.Clone()
	}
	for _, holding := range stored.Holdings {
		descriptors := make(map[string]bool, len(holding.Descriptors))
		for _, descriptor := range holding.Descriptors {
			descriptors[descriptor] = true
		}
		account.Holdings[farm.SeedID(holding.SeedID)] = descriptors
	}
	record := &farm.VersionedFarmer{Version: farm.FarmerVersion(stored.Version), V1: account}
	return record.Upgrade(), true, nil
}

// PutFarmer persists a farmer record at its current schema version.
func (s *Store) PutFarmer(record *farm.VersionedFarmer) error {
	account := record.Account()
	stored := storedFarmer{
		Version:      uint8(farm.FarmerV1),
		Owner:        account.Owner,
		StorageFunds: normalizeBig(account.StorageFunds),
		Rewards:      sortedPairs(account.Rewards),
	}
	stored.Seeds = make([]storedPair, 0, len(account.Seeds))
	for id, amount := range account.Seeds {
		stored.Seeds = append(stored.Seeds, storedPair{Key: string(id), Amount: normalizeBig(amount)})
	}
	sort.Slice(stored.Seeds, func(i, j int) bool { return stored.Seeds[i].Key < stored.Seeds[j].Key })
	stored.Snapshots = make([]storedSnapshot, 0, len(account.Snapshots))
	for id, rps := range account.Snapshots {
		stored.Snapshots = append(stored.Snapshots, storedSnapshot{FarmID: string(id), RPS: rps.Clone()})
	}
	sort.Slice(stored.Snapshots, func(i, j int) bool { return stored.Snapshots[i].FarmID < stored.Snapshots[j].FarmID })
	stored.Holdings = make([]storedHolding, 0, len(account.Holdings))
	for id, descriptors := range account.Holdings {
		holding := storedHolding{SeedID: string(id), Descriptors: make([]string, 0, len(descriptors))}
		for descriptor := range descriptors {
			holding.Descriptors = append(holding.Descriptors, descriptor)
		}
		sort.Strings(holding.Descriptors)
		stored.Holdings = append(stored.Holdings, holding)
	}
	sort.Slice(stored.Holdings, func(i, j int) bool { return stored.Holdings[i].SeedID < stored.Holdings[j].SeedID })
	return s.write(farmerKey(account.Owner), &stored, "farmer", account.Owner)
}

// GetPendingTransfer loads a pending transfer by request id.
func (s *Store) GetPendingTransfer(id string) (*farm.PendingTransfer, bool, error) {
	raw, ok, err := s.read(transferKey(id))
	if err != nil || !ok {
		return nil, false, err
	}
	var stored storedTransfer
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("farmstore: decode transfer %s: %w", id, err)
	}
	return &farm.PendingTransfer{
		ID:        stored.ID,
		Kind:      farm.TransferKind(stored.Kind),
		Owner:     stored.Owner,
		Token:     stored.Token,
		SeedID:    farm.SeedID(stored.SeedID),
		Amount:    normalizeBig(stored.Amount),
		CreatedAt: int64(stored.CreatedAt),
	}, true, nil
}

// PutPendingTransfer persists a pending transfer record.
func (s *Store) PutPendingTransfer(record *farm.PendingTransfer) error {
	stored := storedTransfer{
		ID:        record.ID,
		Kind:      uint8(record.Kind),
		Owner:     record.Owner,
		Token:     record.Token,
		SeedID:    string(record.SeedID),
		Amount:    normalizeBig(record.Amount),
		CreatedAt: uint64(record.CreatedAt),
	}
	return s.write(transferKey(record.ID), &stored, "transfer", record.ID)
}

// RemovePendingTransfer deletes a resolved transfer record.
func (s *Store) RemovePendingTransfer(id string) error {
	return s.db.Delete(transferKey(id))
}

func (s *Store) readFarm(key []byte) (*farm.Farm, bool, error) {
	raw, ok, err := s.read(key)
	if err != nil || !ok {
		return nil, false, err
	}
	var stored storedFarm
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, false, fmt.Errorf("farmstore: decode farm %s: %w", key, err)
	}
	rps := stored.RPS
	if rps == nil {
		rps = uint256.NewInt(0)
	}
	return &farm.Farm{
		ID: farm.FarmID(stored.ID),
		Terms: farm.FarmTerms{
			SeedID:           farm.SeedID(stored.SeedID),
			RewardToken:      stored.RewardToken,
			StartAt:          stored.StartAt,
			RewardPerSession: normalizeBig(stored.RewardPerSession),
			SessionInterval:  stored.SessionInterval,
		},
		Status: farm.FarmStatus(stored.Status),
		Dist: farm.RewardDistribution{
			Undistributed: normalizeBig(stored.Undistributed),
			Unclaimed:     normalizeBig(stored.Unclaimed),
			RPS:           rps.Clone(),
			Round:         stored.Round,
		},
		TotalReward:      normalizeBig(stored.TotalReward),
		TotalClaimed:     normalizeBig(stored.TotalClaimed),
		TotalBeneficiary: normalizeBig(stored.TotalBeneficiary),
	}, true, nil
}

func (s *Store) writeFarm(key []byte, record *farm.Farm) error {
	stored := storedFarm{
		ID:               string(record.ID),
		SeedID:           string(record.Terms.SeedID),
		RewardToken:      record.Terms.RewardToken,
		StartAt:          record.Terms.StartAt,
		RewardPerSession: normalizeBig(record.Terms.RewardPerSession),
		SessionInterval:  record.Terms.SessionInterval,
		Status:           uint8(record.Status),
		Undistributed:    normalizeBig(record.Dist.Undistributed),
		Unclaimed:        normalizeBig(record.Dist.Unclaimed),
		RPS:              record.Dist.RPS.Clone(),
		Round:            record.Dist.Round,
		TotalReward:      normalizeBig(record.TotalReward),
		TotalClaimed:     normalizeBig(record.TotalClaimed),
		TotalBeneficiary: normalizeBig(record.TotalBeneficiary),
	}
	return s.write(key, &stored, "farm", string(record.ID))
}

func (s *Store) read(key []byte) ([]byte, bool, error) {
	raw, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

func (s *Store) write(key []byte, value interface{}, kind, id string) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("farmstore: encode %s %s: %w", kind, id, err)
	}
	return s.db.Put(key, encoded)
}

func sortedPairs(entries map[string]*big.Int) []storedPair {
	if len(entries) == 0 {
		return nil
	}
	pairs := make([]storedPair, 0, len(entries))
	for key, amount := range entries {
		pairs = append(pairs, storedPair{Key: key, Amount: normalizeBig(amount)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs
}

// normalizeBig maps nil to zero so stored records never carry nil amounts.
func normalizeBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func farmKey(id farm.FarmID) []byte {
	return []byte(fmt.Sprintf(farmKeyFmt, id))
}

func archivedKey(id farm.FarmID) []byte {
	return []byte(fmt.Sprintf(archivedKeyFmt, id))
}

func seedKey(id farm.SeedID) []byte {
	return []byte(fmt.Sprintf(seedKeyFmt, id))
}

func farmerKey(owner string) []byte {
	return []byte(fmt.Sprintf(farmerKeyFmt, owner))
}

func transferKey(id string) []byte {
	return []byte(fmt.Sprintf(transferKeyFmt, id))
}
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"seedfarm/native/farm"
)

const (
	codeFarmingInvalidParams = -32061
	codeFarmingNotFound      = -32062
	codeFarmingConflict      = -32063
	codeFarmingInternal      = -32065
)

type farmCreateParams struct {
	SeedID           string            `json:"seedId"`
	RewardToken      string            `json:"rewardToken"`
	StartAt          uint64            `json:"startAt"`
	RewardPerSession string            `json:"rewardPerSession"`
	SessionInterval  uint64            `json:"sessionInterval"`
	Funding          string            `json:"funding"`
	MinDeposit       string            `json:"minDeposit,omitempty"`
	Equivalence      map[string]string `json:"equivalence,omitempty"`
}

type farmAmountParams struct {
	FarmID string `json:"farmId"`
	Amount string `json:"amount"`
}

type farmerFundingParams struct {
	Owner   string `json:"owner"`
	Funding string `json:"funding"`
}

type stakeParams struct {
	Owner  string `json:"owner"`
	SeedID string `json:"seedId"`
	Amount string `json:"amount"`
}

type tokenStakeParams struct {
	Owner      string `json:"owner"`
	SeedID     string `json:"seedId"`
	Descriptor string `json:"descriptor"`
}

type claimParams struct {
	Owner  string `json:"owner"`
	FarmID string `json:"farmId,omitempty"`
	SeedID string `json:"seedId,omitempty"`
}

type withdrawRewardParams struct {
	Owner  string `json:"owner"`
	Token  string `json:"token"`
	Amount string `json:"amount,omitempty"`
}

type resolveTransferParams struct {
	RequestID string `json:"requestId"`
	Success   bool   `json:"success"`
}

type farmIDParams struct {
	FarmID string `json:"farmId"`
}

type seedIDParams struct {
	SeedID string `json:"seedId"`
}

type ownerParams struct {
	Owner string `json:"owner"`
}

type viewUnclaimedParams struct {
	Owner  string `json:"owner"`
	FarmID string `json:"farmId"`
}

type farmCreateResult struct {
	FarmID string `json:"farmId"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

type transferResult struct {
	RequestID string `json:"requestId"`
}

type okResult struct {
	OK bool `json:"ok"`
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parsePositiveBigInt(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}

// parseOptionalBigInt accepts an empty string, returning nil.
func parseOptionalBigInt(raw string) (*big.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return parsePositiveBigInt(raw)
}

func formatBig(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatBigMap(values map[string]*big.Int) map[string]string {
	out := make(map[string]string, len(values))
	for key, value := range values {
		out[key] = formatBig(value)
	}
	return out
}

func writeFarmingError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, farm.ErrFarmNotFound),
		errors.Is(err, farm.ErrSeedNotFound),
		errors.Is(err, farm.ErrFarmerNotFound),
		errors.Is(err, farm.ErrTransferNotFound),
		errors.Is(err, farm.ErrTokenNotFound),
		errors.Is(err, farm.ErrHoldingNotFound):
		writeError(w, http.StatusNotFound, id, codeFarmingNotFound, "not_found", err.Error())
	case errors.Is(err, farm.ErrInvalidTerms),
		errors.Is(err, farm.ErrInvalidAmount),
		errors.Is(err, farm.ErrInvalidFarmID),
		errors.Is(err, farm.ErrBelowMinDeposit),
		errors.Is(err, farm.ErrNoEquivalence):
		writeError(w, http.StatusBadRequest, id, codeFarmingInvalidParams, "invalid_params", err.Error())
	case errors.Is(err, farm.ErrInsufficientStake),
		errors.Is(err, farm.ErrInsufficientReward),
		errors.Is(err, farm.ErrInsufficientFunding),
		errors.Is(err, farm.ErrFarmExhausted),
		errors.Is(err, farm.ErrFarmNotRemovable),
		errors.Is(err, farm.ErrSnapshotInUse),
		errors.Is(err, farm.ErrHoldingExists):
		writeError(w, http.StatusConflict, id, codeFarmingConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeFarmingInternal, "internal_error", err.Error())
	}
}

func (s *Server) handleFarmCreate(w http.ResponseWriter, req *RPCRequest) {
	var params farmCreateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	rewardPerSession, err := parsePositiveBigInt(params.RewardPerSession)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	funding, err := parsePositiveBigInt(params.Funding)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	minDeposit, err := parseOptionalBigInt(params.MinDeposit)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	var equivalence map[string]*big.Int
	if len(params.Equivalence) > 0 {
		equivalence = make(map[string]*big.Int, len(params.Equivalence))
		for descriptor, raw := range params.Equivalence {
			amount, err := parsePositiveBigInt(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
				return
			}
			equivalence[descriptor] = amount
		}
	}
	terms := farm.FarmTerms{
		SeedID:           strings.TrimSpace(params.SeedID),
		RewardToken:      strings.TrimSpace(params.RewardToken),
		StartAt:          params.StartAt,
		RewardPerSession: rewardPerSession,
		SessionInterval:  params.SessionInterval,
	}
	id, err := s.engine.CreateFarm(terms, funding, minDeposit, equivalence)
	if err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, farmCreateResult{FarmID: id})
}

func (s *Server) handleDepositReward(w http.ResponseWriter, req *RPCRequest) {
	var params farmAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	undistributed, err := s.engine.DepositReward(params.FarmID, amount)
	if err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatBig(undistributed)})
}

func (s *Server) handleRegisterFarmer(w http.ResponseWriter, req *RPCRequest) {
	var params farmerFundingParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	funding, err := parsePositiveBigInt(params.Funding)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.RegisterFarmer(strings.TrimSpace(params.Owner), funding); err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleDepositStake(w http.ResponseWriter, req *RPCRequest) {
	var params stakeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.DepositStake(strings.TrimSpace(params.Owner), params.SeedID, amount); err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleWithdrawStake(w http.ResponseWriter, req *RPCRequest) {
	var params stakeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	requestID, err := s.engine.WithdrawStake(strings.TrimSpace(params.Owner), params.SeedID, amount)
	if err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, transferResult{RequestID: requestID})
}

func (s *Server) handleDepositToken(w http.ResponseWriter, req *RPCRequest) {
	var params tokenStakeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.DepositStakeEquivalent(strings.TrimSpace(params.Owner), params.SeedID, params.Descriptor); err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleWithdrawToken(w http.ResponseWriter, req *RPCRequest) {
	var params tokenStakeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	requestID, err := s.engine.WithdrawStakeEquivalent(strings.TrimSpace(params.Owner), params.SeedID, params.Descriptor)
	if err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, transferResult{RequestID: requestID})
}

func (s *Server) handleClaimByFarm(w http.ResponseWriter, req *RPCRequest) {
	var params claimParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.ClaimByFarm(strings.TrimSpace(params.Owner), params.FarmID); err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleClaimBySeed(w http.ResponseWriter, req *RPCRequest) {
	var params claimParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.ClaimBySeed(strings.TrimSpace(params.Owner), params.SeedID); err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleWithdrawReward(w http.ResponseWriter, req *RPCRequest) {
	var params withdrawRewardParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parseOptionalBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	requestID, err := s.engine.WithdrawClaimed(strings.TrimSpace(params.Owner), params.Token, amount)
	if err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, transferResult{RequestID: requestID})
}

func (s *Server) handleResolveTransfer(w http.ResponseWriter, req *RPCRequest) {
	var params resolveTransferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.ResolveTransfer(strings.TrimSpace(params.RequestID), params.Success); err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleRemoveSnapshot(w http.ResponseWriter, req *RPCRequest) {
	var params viewUnclaimedParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.RemoveSnapshot(strings.TrimSpace(params.Owner), params.FarmID); err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleSweep(w http.ResponseWriter, req *RPCRequest) {
	var params farmIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.SweepEndedFarm(params.FarmID); err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleViewUnclaimed(w http.ResponseWriter, req *RPCRequest) {
	var params viewUnclaimedParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	unclaimed, err := s.engine.ViewUnclaimed(strings.TrimSpace(params.Owner), params.FarmID)
	if err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatBig(unclaimed)})
}

func (s *Server) handleGetFarm(w http.ResponseWriter, req *RPCRequest) {
	var params farmIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	view, err := s.engine.FarmInfo(params.FarmID)
	if err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, farmViewJSON(view))
}

func (s *Server) handleListFarms(w http.ResponseWriter, req *RPCRequest) {
	var params seedIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	views, err := s.engine.ListFarmsBySeed(params.SeedID)
	if err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	out := make([]farmJSON, 0, len(views))
	for _, view := range views {
		out = append(out, farmViewJSON(view))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleGetSeed(w http.ResponseWriter, req *RPCRequest) {
	var params seedIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	view, err := s.engine.SeedInfo(params.SeedID)
	if err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	out := seedJSON{
		SeedID:      view.SeedID,
		TotalStaked: formatBig(view.TotalStaked),
		MinDeposit:  formatBig(view.MinDeposit),
		Farms:       view.Farms,
	}
	if len(view.Equivalence) > 0 {
		out.Equivalence = formatBigMap(view.Equivalence)
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleFarmerSeeds(w http.ResponseWriter, req *RPCRequest) {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	seeds, err := s.engine.FarmerSeeds(strings.TrimSpace(params.Owner))
	if err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatBigMap(seeds))
}

func (s *Server) handleFarmerRewards(w http.ResponseWriter, req *RPCRequest) {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	rewards, err := s.engine.FarmerRewards(strings.TrimSpace(params.Owner))
	if err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatBigMap(rewards))
}

func (s *Server) handleFarmerHoldings(w http.ResponseWriter, req *RPCRequest) {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeFarmingInvalidParams, "invalid_params", err.Error())
		return
	}
	holdings, err := s.engine.FarmerHoldings(strings.TrimSpace(params.Owner))
	if err != nil {
		writeFarmingError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, holdings)
}

type farmJSON struct {
	FarmID           string `json:"farmId"`
	SeedID           string `json:"seedId"`
	RewardToken      string `json:"rewardToken"`
	StartAt          uint64 `json:"startAt"`
	RewardPerSession string `json:"rewardPerSession"`
	SessionInterval  uint64 `json:"sessionInterval"`
	Status           string `json:"status"`
	TotalReward      string `json:"totalReward"`
	TotalClaimed     string `json:"totalClaimed"`
	TotalBeneficiary string `json:"totalBeneficiary"`
	Undistributed    string `json:"undistributed"`
	Unclaimed        string `json:"unclaimed"`
	CurrentRound     uint64 `json:"currentRound"`
	LastRound        uint64 `json:"lastRound"`
}

type seedJSON struct {
	SeedID      string            `json:"seedId"`
	TotalStaked string            `json:"totalStaked"`
	MinDeposit  string            `json:"minDeposit"`
	Farms       []string          `json:"farms"`
	Equivalence map[string]string `json:"equivalence,omitempty"`
}

func farmViewJSON(view *farm.FarmView) farmJSON {
	return farmJSON{
		FarmID:           view.FarmID,
		SeedID:           view.SeedID,
		RewardToken:      view.RewardToken,
		StartAt:          view.StartAt,
		RewardPerSession: formatBig(view.RewardPerSession),
		SessionInterval:  view.SessionInterval,
		Status:           view.Status,
		TotalReward:      formatBig(view.TotalReward),
		TotalClaimed:     formatBig(view.TotalClaimed),
		TotalBeneficiary: formatBig(view.TotalBeneficiary),
		Undistributed:    formatBig(view.Undistributed),
		Unclaimed:        formatBig(view.Unclaimed),
		CurrentRound:     view.CurrentRound,
		LastRound:        view.LastRound,
	}
}

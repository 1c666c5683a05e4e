package farm

import "errors"

var (
	// Not-found errors: the referenced record does not exist. No state change.
	ErrFarmNotFound     = errors.New("farm: farm not found")
	ErrSeedNotFound     = errors.New("farm: seed not found")
	ErrFarmerNotFound   = errors.New("farm: farmer not registered")
	ErrTransferNotFound = errors.New("farm: pending transfer not found")
	ErrTokenNotFound    = errors.New("farm: reward token not registered for farmer")

	// Insufficient-balance errors: the requested amount exceeds the recorded
	// stake, reward or funding. No state change.
	ErrInsufficientStake   = errors.New("farm: insufficient staked seed")
	ErrInsufficientReward  = errors.New("farm: insufficient claimed reward")
	ErrInsufficientFunding = errors.New("farm: funding does not cover record storage cost")

	// Invalid-state errors: the action is not valid for the current lifecycle
	// state or input. No state change.
	ErrInvalidTerms     = errors.New("farm: invalid farm terms")
	ErrInvalidAmount    = errors.New("farm: amount must be positive")
	ErrInvalidFarmID    = errors.New("farm: malformed farm id")
	ErrFarmExhausted    = errors.New("farm: farm cannot accept more reward")
	ErrFarmNotRemovable = errors.New("farm: farm is not removable")
	ErrSnapshotInUse    = errors.New("farm: snapshot still referenced by an active farm")
	ErrBelowMinDeposit  = errors.New("farm: stake below seed minimum deposit")
	ErrNoEquivalence    = errors.New("farm: no stake equivalence for token")
	ErrHoldingExists    = errors.New("farm: token already staked")
	ErrHoldingNotFound  = errors.New("farm: token not staked")

	// Invariant violations: internal accounting mismatches that must never
	// occur given correct settlement ordering. Fatal, never handled.
	ErrUnclaimedUnderflow = errors.New("farm: claim exceeds unclaimed pool")
	ErrArithmeticOverflow = errors.New("farm: accumulator arithmetic overflow")

	errNilState = errors.New("farm: engine state not configured")
)

// Fatal reports whether err is an internal invariant violation rather than a
// caller-recoverable condition.
func Fatal(err error) bool {
	return errors.Is(err, ErrUnclaimedUnderflow) || errors.Is(err, ErrArithmeticOverflow)
}

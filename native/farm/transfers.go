package farm

import "math/big"

// TransferKind distinguishes what a pending external transfer is paying out.
type TransferKind uint8

const (
	// TransferReward pays claimed reward tokens back to their owner.
	TransferReward TransferKind = iota
	// TransferStake returns withdrawn seed tokens to their owner.
	TransferStake
	// TransferHolding returns a withdrawn non-fungible token to its owner.
	// Token carries the descriptor instead of a fungible token id.
	TransferHolding
)

func (k TransferKind) String() string {
	switch k {
	case TransferReward:
		return "reward"
	case TransferStake:
		return "stake"
	case TransferHolding:
		return "holding"
	default:
		return "unknown"
	}
}

// PendingTransfer records an optimistic debit awaiting confirmation from the
// external token service. The record carries everything needed to compensate
// on failure; it is removed once the transfer resolves either way.
type PendingTransfer struct {
	ID   string
	Kind TransferKind
	// Owner is the recipient of the outgoing transfer.
	Owner string
	// Token is the asset being transferred: a fungible token id, or the
	// descriptor for TransferHolding.
	Token string
	// SeedID names the seed a stake or holding transfer was debited from.
	// Empty for reward transfers.
	SeedID SeedID
	Amount *big.Int
	// CreatedAt is the unix time the debit was recorded.
	CreatedAt int64
}

// Clone returns a deep copy of the pending transfer.
func (p *PendingTransfer) Clone() *PendingTransfer {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Amount = cloneBigInt(p.Amount)
	return &clone
}

// TokenTransferer executes token transfers on the external service. Transfer
// is fire-and-forget from the engine's point of view: the host environment
// guarantees exactly one later call to Engine.ResolveTransfer with the request
// id, reporting success or failure.
type TokenTransferer interface {
	Transfer(token, recipient string, amount *big.Int, requestID string)
}

// NoopTransferer satisfies TokenTransferer while discarding all requests. The
// caller remains responsible for resolving the pending records.
type NoopTransferer struct{}

// Transfer implements the TokenTransferer interface.
func (NoopTransferer) Transfer(string, string, *big.Int, string) {}

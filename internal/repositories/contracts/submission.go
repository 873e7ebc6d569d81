package contracts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrReverted = errors.New("transaction rejected by the ledger")
	ErrNotFound = errors.New("not found on the ledger")
	// ErrNotSubmitted means nothing reached the ledger, e.g. the sender is still busy with its
	// previous submission. Safe to retry.
	ErrNotSubmitted = errors.New("transaction not submitted")
)

type TxStatus uint8

const (
	TxPending TxStatus = iota
	TxCommitted
	TxReverted
)

func (s TxStatus) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxCommitted:
		return "committed"
	case TxReverted:
		return "reverted"
	}
	return fmt.Sprintf("TxStatus(%d)", uint8(s))
}

// Submission is a state changing call accepted by the ledger but not yet finalized.
// While a submission of an identity is not finalized, the next submission of the same
// identity waits for it.
type Submission struct {
	TxHash common.Hash
	From   common.Address
	Nonce  uint64
	Method string

	tx       *types.Transaction
	finalize func()
}

func NewSubmission(txHash common.Hash, from common.Address, nonce uint64, method string, finalize func()) *Submission {
	once := sync.Once{}
	return &Submission{
		TxHash: txHash,
		From:   from,
		Nonce:  nonce,
		Method: method,
		finalize: func() {
			if finalize != nil {
				once.Do(finalize)
			}
		},
	}
}

// Finalized releases the identity of the submission, safe to call multiple times
func (s *Submission) Finalized() {
	if s.finalize != nil {
		s.finalize()
	}
}

func (s *Submission) String() string {
	return fmt.Sprintf("%s tx %s nonce %d", s.Method, s.TxHash.Hex(), s.Nonce)
}

type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

type Finalizer interface {
	// WaitFinalized blocks until the submission is committed or rejected. On context
	// deadline, or when the receipt can't be obtained, it returns lib.ErrTimeout with a
	// PendingError and the outcome stays unknown.
	WaitFinalized(ctx context.Context, sub *Submission) (*Receipt, error)
	// Reconcile queries the ledger for the outcome of a submission without waiting
	Reconcile(ctx context.Context, sub *Submission) (TxStatus, error)
}

// PendingError carries the submission whose outcome is unknown, e.g. after a wait timed out.
// Its outcome has to be reconciled before any retry.
type PendingError struct {
	Submission *Submission
	Err        error
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("%s is pending: %s", e.Submission, e.Err)
}

func (e *PendingError) Unwrap() error {
	return e.Err
}

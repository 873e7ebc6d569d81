package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/interfaces"
	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const receiptPollDuration = 30 * time.Minute

// Transactor submits transactions on behalf of identities. Transactions of one identity are
// strictly sequential: a submission waits until the previous one of the same identity is finalized.
type Transactor struct {
	// config
	legacyTx            bool // use legacy transaction fee, for local node testing
	receiptPollDuration time.Duration

	// state
	chainID *big.Int
	nonces  map[common.Address]uint64
	mutex   lib.Mutex
	senders *lib.KeyedMutex

	// deps
	client EthereumClient
	log    interfaces.ILogger
}

func NewTransactor(client EthereumClient, log interfaces.ILogger) *Transactor {
	return &Transactor{
		receiptPollDuration: receiptPollDuration,
		nonces:              make(map[common.Address]uint64),
		mutex:               lib.NewMutex(),
		senders:             lib.NewKeyedMutex(),
		client:              client,
		log:                 log,
	}
}

func (t *Transactor) SetLegacyTx(legacyTx bool) {
	t.legacyTx = legacyTx
}

func (t *Transactor) ChainID(ctx context.Context) (*big.Int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.chainID != nil {
		return t.chainID, nil
	}
	chainID, err := t.client.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	t.chainID = chainID
	return chainID, nil
}

// Transact submits the call and returns as soon as the ledger accepted the transaction
func (t *Transactor) Transact(ctx context.Context, from signer.Identity, contract *bind.BoundContract, method string, args ...interface{}) (*Submission, error) {
	key := from.Address.Hex()
	err := t.senders.LockCtx(ctx, key)
	if err != nil {
		return nil, lib.WrapError(ErrNotSubmitted, fmt.Errorf("previous transaction of %s is not finalized: %w", from, err))
	}
	release := func() { t.senders.Unlock(key) }

	opts, err := t.getTransactOpts(ctx, from)
	if err != nil {
		release()
		return nil, err
	}

	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		release()
		t.resetNonce(from.Address)
		return nil, lib.WrapError(ErrReverted, fmt.Errorf("%s: %w", method, err))
	}

	sub := NewSubmission(tx.Hash(), from.Address, tx.Nonce(), method, release)
	sub.tx = tx
	t.log.Debugf("submitted %s from %s", sub, from)
	return sub, nil
}

func (t *Transactor) WaitFinalized(ctx context.Context, sub *Submission) (*Receipt, error) {
	var (
		receipt *types.Receipt
		err     error
	)
	if sub.tx != nil {
		receipt, err = bind.WaitMined(ctx, t.client, sub.tx)
	} else {
		receipt, err = t.waitReceipt(ctx, sub.TxHash)
	}
	if err != nil {
		// the sender stays locked until Reconcile finds the receipt
		return nil, lib.WrapError(lib.ErrTimeout, &PendingError{Submission: sub, Err: err})
	}

	sub.Finalized()
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, lib.WrapError(ErrReverted, fmt.Errorf("%s reverted in block %d", sub, receipt.BlockNumber))
	}

	return &Receipt{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

// Reconcile reports pending for transactions the ledger does not know about, they
// may still be in the pool or may have been dropped
func (t *Transactor) Reconcile(ctx context.Context, sub *Submission) (TxStatus, error) {
	receipt, err := t.client.TransactionReceipt(ctx, sub.TxHash)
	if errors.Is(err, ethereum.NotFound) {
		return TxPending, nil
	}
	if err != nil {
		return TxPending, err
	}

	sub.Finalized()
	if receipt.Status != types.ReceiptStatusSuccessful {
		return TxReverted, nil
	}
	return TxCommitted, nil
}

func (t *Transactor) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := lib.Poll(ctx, t.receiptPollDuration, func() error {
		r, err := t.client.TransactionReceipt(ctx, hash)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	return receipt, err
}

func (t *Transactor) getTransactOpts(ctx context.Context, from signer.Identity) (*bind.TransactOpts, error) {
	chainID, err := t.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	transactOpts, err := from.NewTransactor(chainID)
	if err != nil {
		return nil, err
	}

	if t.legacyTx {
		gasPrice, err := t.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, err
		}
		transactOpts.GasPrice = gasPrice
	}

	nonce, err := t.getNonce(ctx, from.Address)
	if err != nil {
		return nil, err
	}

	transactOpts.Value = big.NewInt(0)
	transactOpts.Nonce = nonce
	transactOpts.Context = ctx

	return transactOpts, nil
}

func (t *Transactor) getNonce(ctx context.Context, from common.Address) (*big.Int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	nonce := &big.Int{}
	blockchainNonce, err := t.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nonce, err
	}

	if t.nonces[from] > blockchainNonce {
		nonce.SetUint64(t.nonces[from])
	} else {
		nonce.SetUint64(blockchainNonce)
	}

	t.nonces[from] = nonce.Uint64() + 1

	return nonce, nil
}

func (t *Transactor) resetNonce(from common.Address) {
	t.mutex.Lock()
	delete(t.nonces, from)
	t.mutex.Unlock()
}

package asset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/interfaces"
	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/Lumerin-protocol/actus-originator/internal/order"
	"github.com/Lumerin-protocol/actus-originator/internal/repositories/contracts"
	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrIssuanceRejected = errors.New("asset issuance rejected")
	ErrNotFound         = errors.New("asset not found")
)

type Ledger interface {
	IssueFromOrder(ctx context.Context, from signer.Identity, verified *order.VerifiedOrder) (*contracts.Submission, error)
	AssetExists(ctx context.Context, assetID common.Hash) (bool, error)
	AssetIDs(ctx context.Context, owner common.Address) ([]common.Hash, error)
	contracts.Finalizer
}

// Issuer turns verified orders into assets. Every order is submitted at most once per issuer,
// a second attempt is rejected without touching the ledger.
type Issuer struct {
	// state
	attempted lib.Set[common.Hash]
	mutex     sync.Mutex
	now       func() time.Time

	// deps
	ledger Ledger
	log    interfaces.ILogger
}

func NewIssuer(ledger Ledger, log interfaces.ILogger) *Issuer {
	return &Issuer{
		attempted: lib.NewSet[common.Hash](),
		now:       time.Now,
		ledger:    ledger,
		log:       log,
	}
}

func (i *Issuer) Issue(ctx context.Context, issuer signer.Identity, verified *order.VerifiedOrder) (common.Hash, error) {
	if verified == nil {
		return common.Hash{}, lib.WrapError(ErrIssuanceRejected, fmt.Errorf("order is not verified"))
	}
	o := verified.Order()
	assetID := verified.AssetID()

	if o.ExpirationDate != 0 && int64(o.ExpirationDate) < i.now().Unix() {
		return common.Hash{}, lib.WrapError(ErrIssuanceRejected, fmt.Errorf("order expired at %s", time.Unix(int64(o.ExpirationDate), 0)))
	}

	if err := i.markAttempted(verified.Digest()); err != nil {
		return common.Hash{}, err
	}

	exists, err := i.ledger.AssetExists(ctx, assetID)
	if err != nil {
		return common.Hash{}, err
	}
	if exists {
		return common.Hash{}, lib.WrapError(ErrIssuanceRejected, fmt.Errorf("asset %s is already issued", assetID.Hex()))
	}

	i.log.Infof("issuing asset %s from order with terms hash %s", assetID.Hex(), verified.TermsHash().Hex())
	sub, err := i.ledger.IssueFromOrder(ctx, issuer, verified)
	if err != nil {
		if errors.Is(err, contracts.ErrNotSubmitted) {
			i.unmarkAttempted(verified.Digest())
			return common.Hash{}, err
		}
		return common.Hash{}, lib.WrapError(ErrIssuanceRejected, err)
	}
	i.log.Infof("issuance submitted, pending: %s", sub)

	_, err = i.ledger.WaitFinalized(ctx, sub)
	if err != nil {
		if errors.Is(err, lib.ErrTimeout) {
			i.log.Warnf("issuance outcome unknown, do not retry before reconciling: %s", err)
			return common.Hash{}, err
		}
		i.log.Errorf("issuance rejected: %s", err)
		return common.Hash{}, lib.WrapError(ErrIssuanceRejected, err)
	}

	exists, err = i.ledger.AssetExists(ctx, assetID)
	if err != nil {
		return common.Hash{}, err
	}
	if !exists {
		return common.Hash{}, lib.WrapError(ErrIssuanceRejected, fmt.Errorf("asset %s is not registered after issuance", assetID.Hex()))
	}

	i.log.Infof("asset %s issued", assetID.Hex())
	return assetID, nil
}

// ResolveLatest returns the most recently issued asset of the owner
func (i *Issuer) ResolveLatest(ctx context.Context, owner common.Address) (common.Hash, error) {
	ids, err := i.ledger.AssetIDs(ctx, owner)
	if err != nil {
		return common.Hash{}, err
	}
	if len(ids) == 0 {
		return common.Hash{}, lib.WrapError(ErrNotFound, fmt.Errorf("owner %s has no assets", owner.Hex()))
	}
	return ids[len(ids)-1], nil
}

// markAttempted is keyed on the order digest, so a re-encoded signature is the same order
func (i *Issuer) markAttempted(digest common.Hash) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if i.attempted.Contains(digest) {
		return lib.WrapError(ErrIssuanceRejected, fmt.Errorf("issuance of order %s was already attempted", digest.Hex()))
	}
	i.attempted.Add(digest)
	return nil
}

func (i *Issuer) unmarkAttempted(digest common.Hash) {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	i.attempted.Remove(digest)
}

package ledgermock

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/engine"
	"github.com/Lumerin-protocol/actus-originator/internal/interfaces"
	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/Lumerin-protocol/actus-originator/internal/order"
	"github.com/Lumerin-protocol/actus-originator/internal/repositories/contracts"
	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/Lumerin-protocol/actus-originator/internal/template"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	DefaultChainID   = big.NewInt(1337)
	IssuerAddress    = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")
	EngineAddress    = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	ActorAddress     = common.HexToAddress("0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9")
	SettlementToken  = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	errNoObligation  = errors.New("no pending obligation")
	errLowAllowance  = errors.New("insufficient allowance")
	errLowBalance    = errors.New("insufficient balance")
	errUnknownTx     = errors.New("unknown transaction")
	errAlreadyIssued = errors.New("asset already issued")
)

type pendingTx struct {
	sub   *contracts.Submission
	apply func() error
}

type txResult struct {
	status  contracts.TxStatus
	reason  error
	receipt *contracts.Receipt
}

type templateRecord struct {
	terms    *terms.ExtendedTerms
	schedule []engine.ScheduleEvent
}

type assetRecord struct {
	terms     terms.Terms
	ownership order.Ownership
	schedule  []engine.ScheduleEvent
	next      int
}

type issuedEvent struct {
	assetID      common.Hash
	creator      common.Address
	counterparty common.Address
}

type tokenAccount struct {
	token   common.Address
	account common.Address
}

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

// Ledger is an in-memory ledger with the ACTUS protocol contracts deployed. Submissions are
// applied when they are finalized, so their effect is invisible before WaitFinalized or Reconcile.
type Ledger struct {
	// state
	mu          sync.Mutex
	blockNumber uint64
	txCount     uint64
	nonces      map[common.Address]uint64
	pending     map[common.Hash]*pendingTx
	results     map[common.Hash]*txResult
	templates   map[common.Hash]*templateRecord
	assets      map[common.Hash]*assetRecord
	assetIDs    map[common.Address][]common.Hash
	balances    map[tokenAccount]*big.Int
	allowances  map[allowanceKey]*big.Int
	orders      lib.Set[common.Hash] // digests of issued orders
	issued      []issuedEvent
	issuedCh    chan struct{} // closed and replaced on every issuance
	hold        chan struct{} // not nil while finality is held
	now         func() time.Time

	// deps
	senders  *lib.KeyedMutex
	engine   *PAMEngine
	verifier *order.Verifier
	log      interfaces.ILogger
}

func NewLedger(log interfaces.ILogger) *Ledger {
	return &Ledger{
		nonces:     make(map[common.Address]uint64),
		pending:    make(map[common.Hash]*pendingTx),
		results:    make(map[common.Hash]*txResult),
		templates:  make(map[common.Hash]*templateRecord),
		assets:     make(map[common.Hash]*assetRecord),
		assetIDs:   make(map[common.Address][]common.Hash),
		balances:   make(map[tokenAccount]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
		orders:     lib.NewSet[common.Hash](),
		issuedCh:   make(chan struct{}),
		now:        time.Now,
		senders:    lib.NewKeyedMutex(),
		engine:     NewPAMEngine(),
		verifier:   order.NewVerifier(signer.NewEIP712(), order.Domain{ChainID: DefaultChainID, VerifyingContract: IssuerAddress}),
		log:        log,
	}
}

// HoldFinality keeps every submission pending until ReleaseFinality is called
func (l *Ledger) HoldFinality() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hold == nil {
		l.hold = make(chan struct{})
	}
}

func (l *Ledger) ReleaseFinality() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hold != nil {
		close(l.hold)
		l.hold = nil
	}
}

func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (l *Ledger) Mint(token common.Address, account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance(token, account).Add(l.balance(token, account), amount)
}

func (l *Ledger) Domain(ctx context.Context) (order.Domain, error) {
	return order.Domain{ChainID: new(big.Int).Set(DefaultChainID), VerifyingContract: IssuerAddress}, nil
}

func (l *Ledger) EngineAddress() common.Address {
	return EngineAddress
}

func (l *Ledger) ComputeSchedule(ctx context.Context, t terms.Terms) ([]engine.ScheduleEvent, error) {
	return l.engine.ComputeSchedule(ctx, t)
}

func (l *Ledger) RegisterTemplate(ctx context.Context, from signer.Identity, ext *terms.ExtendedTerms, schedule []engine.ScheduleEvent) (*contracts.Submission, error) {
	record := &templateRecord{terms: &terms.ExtendedTerms{Terms: ext.Terms}, schedule: append([]engine.ScheduleEvent(nil), schedule...)}
	return l.submit(ctx, from, "registerTemplate", func() error {
		id, err := template.ContentID(record.terms, record.schedule)
		if err != nil {
			return err
		}
		if _, ok := l.templates[id]; ok {
			return fmt.Errorf("template %s is already registered", id.Hex())
		}
		l.templates[id] = record
		return nil
	})
}

func (l *Ledger) GetTemplate(ctx context.Context, templateID common.Hash) (*terms.ExtendedTerms, []engine.ScheduleEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.templates[templateID]
	if !ok {
		return nil, nil, fmt.Errorf("template %s: %w", templateID.Hex(), contracts.ErrNotFound)
	}
	return &terms.ExtendedTerms{Terms: record.terms.Terms}, append([]engine.ScheduleEvent(nil), record.schedule...), nil
}

func (l *Ledger) IssueFromOrder(ctx context.Context, from signer.Identity, verified *order.VerifiedOrder) (*contracts.Submission, error) {
	o := verified.Order()
	return l.submit(ctx, from, "issueFromOrder", func() error {
		// the issuer contract verifies the signatures on its own
		checked, err := l.verifier.Verify(o)
		if err != nil {
			return err
		}
		if l.orders.Contains(checked.Digest()) {
			return errAlreadyIssued
		}
		tpl, ok := l.templates[o.TemplateID]
		if !ok {
			return fmt.Errorf("template %s is not registered", o.TemplateID.Hex())
		}
		if o.Engine != EngineAddress {
			return fmt.Errorf("engine %s does not match template engine", o.Engine.Hex())
		}
		if o.ExpirationDate != 0 && int64(o.ExpirationDate) < l.now().Unix() {
			return fmt.Errorf("order expired at %d", o.ExpirationDate)
		}
		assetID := o.AssetID()
		if _, ok := l.assets[assetID]; ok {
			return errAlreadyIssued
		}

		schedule := make([]engine.ScheduleEvent, len(tpl.schedule))
		for i, ev := range tpl.schedule {
			schedule[i] = ev.Shift(o.CustomTerms.AnchorDate)
		}
		l.assets[assetID] = &assetRecord{
			terms:     o.CustomTerms.Resolve(),
			ownership: o.Ownership,
			schedule:  schedule,
		}
		l.assetIDs[o.Ownership.CreatorObligor] = append(l.assetIDs[o.Ownership.CreatorObligor], assetID)
		if o.Ownership.CounterpartyObligor != o.Ownership.CreatorObligor {
			l.assetIDs[o.Ownership.CounterpartyObligor] = append(l.assetIDs[o.Ownership.CounterpartyObligor], assetID)
		}

		l.orders.Add(checked.Digest())
		l.issued = append(l.issued, issuedEvent{assetID, o.Ownership.CreatorObligor, o.Ownership.CounterpartyObligor})
		close(l.issuedCh)
		l.issuedCh = make(chan struct{})
		return nil
	})
}

// WatchIssuedAssets calls the handler for every asset issued from now on until the context is done
func (l *Ledger) WatchIssuedAssets(ctx context.Context, handler func(assetID common.Hash, creator common.Address, counterparty common.Address) error) error {
	l.mu.Lock()
	cursor := len(l.issued)
	l.mu.Unlock()

	for {
		l.mu.Lock()
		events := l.issued[cursor:]
		signal := l.issuedCh
		l.mu.Unlock()

		for _, ev := range events {
			if err := handler(ev.assetID, ev.creator, ev.counterparty); err != nil {
				return err
			}
		}
		cursor += len(events)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-signal:
		}
	}
}

func (l *Ledger) AssetExists(ctx context.Context, assetID common.Hash) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.assets[assetID]
	return ok, nil
}

func (l *Ledger) AssetIDs(ctx context.Context, owner common.Address) ([]common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]common.Hash(nil), l.assetIDs[owner]...), nil
}

func (l *Ledger) ActorAddress(ctx context.Context, assetID common.Hash) (common.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.assets[assetID]; !ok {
		return common.Address{}, fmt.Errorf("asset %s: %w", assetID.Hex(), contracts.ErrNotFound)
	}
	return ActorAddress, nil
}

func (l *Ledger) NextObligation(ctx context.Context, assetID common.Hash) (*engine.Obligation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	asset, ok := l.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", assetID.Hex(), contracts.ErrNotFound)
	}
	return asset.obligation(), nil
}

func (l *Ledger) Approve(ctx context.Context, payer signer.Identity, token common.Address, spender common.Address, amount *big.Int) (*contracts.Submission, error) {
	value := new(big.Int).Set(amount)
	return l.submit(ctx, payer, "approve", func() error {
		l.allowances[allowanceKey{token, payer.Address, spender}] = value
		return nil
	})
}

func (l *Ledger) Allowance(ctx context.Context, token common.Address, owner common.Address, spender common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.allowance(token, owner, spender)), nil
}

func (l *Ledger) BalanceOf(ctx context.Context, token common.Address, account common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(token, account)), nil
}

// Progress settles the next obligation of the asset, the actor pulls the amount from the payer
func (l *Ledger) Progress(ctx context.Context, from signer.Identity, assetID common.Hash) (*contracts.Submission, error) {
	return l.submit(ctx, from, "progress", func() error {
		asset, ok := l.assets[assetID]
		if !ok {
			return fmt.Errorf("asset %s: %w", assetID.Hex(), contracts.ErrNotFound)
		}
		ob := asset.obligation()
		if ob == nil {
			return errNoObligation
		}

		allowance := l.allowance(ob.Token, ob.Payer, ActorAddress)
		if allowance.Cmp(ob.Amount) < 0 {
			return fmt.Errorf("%w: %s < %s", errLowAllowance, allowance, ob.Amount)
		}
		payerBalance := l.balance(ob.Token, ob.Payer)
		if payerBalance.Cmp(ob.Amount) < 0 {
			return fmt.Errorf("%w: %s < %s", errLowBalance, payerBalance, ob.Amount)
		}

		allowance.Sub(allowance, ob.Amount)
		payerBalance.Sub(payerBalance, ob.Amount)
		payeeBalance := l.balance(ob.Token, ob.Payee)
		payeeBalance.Add(payeeBalance, ob.Amount)
		asset.next++
		return nil
	})
}

func (l *Ledger) WaitFinalized(ctx context.Context, sub *contracts.Submission) (*contracts.Receipt, error) {
	for {
		l.mu.Lock()
		hold := l.hold
		if hold == nil {
			res, err := l.finalize(sub.TxHash)
			l.mu.Unlock()
			if err != nil {
				return nil, err
			}
			sub.Finalized()
			if res.status == contracts.TxReverted {
				return nil, lib.WrapError(contracts.ErrReverted, fmt.Errorf("%s: %w", sub, res.reason))
			}
			return res.receipt, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, lib.WrapError(lib.ErrTimeout, &contracts.PendingError{Submission: sub, Err: ctx.Err()})
		case <-hold:
		}
	}
}

func (l *Ledger) Reconcile(ctx context.Context, sub *contracts.Submission) (contracts.TxStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hold != nil {
		if res, ok := l.results[sub.TxHash]; ok {
			sub.Finalized()
			return res.status, nil
		}
		return contracts.TxPending, nil
	}

	res, err := l.finalize(sub.TxHash)
	if err != nil {
		return contracts.TxPending, err
	}
	sub.Finalized()
	return res.status, nil
}

func (l *Ledger) submit(ctx context.Context, from signer.Identity, method string, apply func() error) (*contracts.Submission, error) {
	key := from.Address.Hex()
	if err := l.senders.LockCtx(ctx, key); err != nil {
		return nil, lib.WrapError(contracts.ErrNotSubmitted, fmt.Errorf("previous transaction of %s is not finalized: %w", from, err))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.txCount++
	nonce := l.nonces[from.Address]
	l.nonces[from.Address]++

	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], l.txCount)
	hash := crypto.Keccak256Hash(seed[:], from.Address.Bytes(), []byte(method))

	sub := contracts.NewSubmission(hash, from.Address, nonce, method, func() { l.senders.Unlock(key) })
	l.pending[hash] = &pendingTx{sub: sub, apply: apply}
	l.log.Debugf("accepted %s from %s", sub, from)
	return sub, nil
}

// finalize mines a pending transaction, must be called with the lock held
func (l *Ledger) finalize(hash common.Hash) (*txResult, error) {
	if res, ok := l.results[hash]; ok {
		return res, nil
	}
	tx, ok := l.pending[hash]
	if !ok {
		return nil, fmt.Errorf("%w %s", errUnknownTx, hash.Hex())
	}
	delete(l.pending, hash)

	l.blockNumber++
	res := &txResult{status: contracts.TxCommitted}
	if err := tx.apply(); err != nil {
		res.status = contracts.TxReverted
		res.reason = err
		l.log.Debugf("%s reverted: %s", tx.sub, err)
	} else {
		res.receipt = &contracts.Receipt{TxHash: hash, BlockNumber: l.blockNumber, GasUsed: 21000}
	}
	l.results[hash] = res
	return res, nil
}

func (l *Ledger) balance(token common.Address, account common.Address) *big.Int {
	key := tokenAccount{token, account}
	if _, ok := l.balances[key]; !ok {
		l.balances[key] = new(big.Int)
	}
	return l.balances[key]
}

func (l *Ledger) allowance(token common.Address, owner common.Address, spender common.Address) *big.Int {
	key := allowanceKey{token, owner, spender}
	if _, ok := l.allowances[key]; !ok {
		l.allowances[key] = new(big.Int)
	}
	return l.allowances[key]
}

func (a *assetRecord) obligation() *engine.Obligation {
	if a.next >= len(a.schedule) {
		return nil
	}
	ev := a.schedule[a.next]

	// interest accrues since the previous interest payment or the initial exchange
	prev := a.terms.InitialExchangeDate
	for i := a.next - 1; i >= 0; i-- {
		if a.schedule[i].Type == engine.EventIP || a.schedule[i].Type == engine.EventIED {
			prev = a.schedule[i].ScheduleTime
			break
		}
	}

	lender, borrower := a.ownership.CreatorObligor, a.ownership.CounterpartyObligor
	lenderBeneficiary, borrowerBeneficiary := a.ownership.CreatorBeneficiary, a.ownership.CounterpartyBeneficiary
	if a.terms.ContractRole == terms.ContractRoleRPL {
		lender, borrower = borrower, lender
		lenderBeneficiary, borrowerBeneficiary = borrowerBeneficiary, lenderBeneficiary
	}

	ob := &engine.Obligation{
		Event:  ev,
		Amount: payoff(a.terms, ev, prev),
		Token:  a.terms.SettlementCurrency,
		Payer:  borrower,
		Payee:  lenderBeneficiary,
	}
	if ev.Type == engine.EventIED {
		ob.Payer, ob.Payee = lender, borrowerBeneficiary
	}
	return ob
}

package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Lumerin-protocol/actus-originator/internal/engine"
	"github.com/Lumerin-protocol/actus-originator/internal/interfaces"
	"github.com/Lumerin-protocol/actus-originator/internal/order"
	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

type ActusAddresses struct {
	TemplateRegistry common.Address
	AssetIssuer      common.Address
	AssetRegistry    common.Address
	PAMEngine        common.Address
}

// ActusEthereum is the ledger client of the ACTUS protocol contracts
type ActusEthereum struct {
	*Transactor

	// config
	addrs ActusAddresses

	// deps
	templateRegistry *bind.BoundContract
	assetIssuer      *bind.BoundContract
	assetRegistry    *bind.BoundContract
	logWatcher       *LogWatcherPolling
	client           EthereumClient
	log              interfaces.ILogger
}

func NewActusEthereum(addrs ActusAddresses, client EthereumClient, transactor *Transactor, logWatcher *LogWatcherPolling, log interfaces.ILogger) *ActusEthereum {
	return &ActusEthereum{
		Transactor:       transactor,
		logWatcher:       logWatcher,
		addrs:            addrs,
		templateRegistry: bind.NewBoundContract(addrs.TemplateRegistry, TemplateRegistryABI, client, client, client),
		assetIssuer:      bind.NewBoundContract(addrs.AssetIssuer, AssetIssuerABI, client, client, client),
		assetRegistry:    bind.NewBoundContract(addrs.AssetRegistry, AssetRegistryABI, client, client, client),
		client:           client,
		log:              log,
	}
}

// Domain is the verifying context of order signatures, the asset issuer checks them on chain
func (g *ActusEthereum) Domain(ctx context.Context) (order.Domain, error) {
	chainID, err := g.ChainID(ctx)
	if err != nil {
		return order.Domain{}, err
	}
	return order.Domain{ChainID: chainID, VerifyingContract: g.addrs.AssetIssuer}, nil
}

func (g *ActusEthereum) EngineAddress() common.Address {
	return g.addrs.PAMEngine
}

func (g *ActusEthereum) RegisterTemplate(ctx context.Context, from signer.Identity, ext *terms.ExtendedTerms, schedule []engine.ScheduleEvent) (*Submission, error) {
	encoded, err := ext.Terms.Encode()
	if err != nil {
		return nil, err
	}
	return g.Transact(ctx, from, g.templateRegistry, "registerTemplate", encoded, engine.EncodeSchedule(schedule))
}

func (g *ActusEthereum) GetTemplate(ctx context.Context, templateID common.Hash) (*terms.ExtendedTerms, []engine.ScheduleEvent, error) {
	registered, err := callOne[bool](ctx, g.templateRegistry, "isRegistered", [32]byte(templateID))
	if err != nil {
		return nil, nil, err
	}
	if !registered {
		return nil, nil, fmt.Errorf("template %s: %w", templateID.Hex(), ErrNotFound)
	}

	encoded, err := callOne[[]byte](ctx, g.templateRegistry, "getTemplateTerms", [32]byte(templateID))
	if err != nil {
		return nil, nil, err
	}
	t, err := terms.DecodeTerms(encoded)
	if err != nil {
		return nil, nil, err
	}

	words, err := callOne[[][32]byte](ctx, g.templateRegistry, "getTemplateSchedule", [32]byte(templateID))
	if err != nil {
		return nil, nil, err
	}

	return &terms.ExtendedTerms{Terms: t}, engine.DecodeSchedule(words), nil
}

func (g *ActusEthereum) IssueFromOrder(ctx context.Context, from signer.Identity, verified *order.VerifiedOrder) (*Submission, error) {
	o := verified.Order()
	customTerms, err := o.CustomTerms.Encode()
	if err != nil {
		return nil, err
	}

	return g.Transact(ctx, from, g.assetIssuer, "issueFromOrder",
		[32]byte(o.TermsHash),
		[32]byte(o.TemplateID),
		customTerms,
		o.Ownership.Array(),
		new(big.Int).SetUint64(uint64(o.ExpirationDate)),
		o.Engine,
		o.Admin,
		o.Salt,
		o.CreatorSignature,
		o.CounterpartySignature,
	)
}

// WatchIssuedAssets calls the handler for every asset issued from now on until the context is done
func (g *ActusEthereum) WatchIssuedAssets(ctx context.Context, handler func(assetID common.Hash, creator common.Address, counterparty common.Address) error) error {
	mapper := CreateEventMapper(assetIssuerEventFactory, AssetIssuerABI)
	return g.logWatcher.Watch(ctx, g.addrs.AssetIssuer, mapper, nil, func(event interface{}) error {
		issued, ok := event.(*IssuedAssetEvent)
		if !ok {
			return nil
		}
		g.log.Debugf("asset %s issued in block %d", issued.AssetID().Hex(), issued.Raw.BlockNumber)
		return handler(issued.AssetID(), issued.Creator, issued.Counterparty)
	})
}

func (g *ActusEthereum) AssetExists(ctx context.Context, assetID common.Hash) (bool, error) {
	return callOne[bool](ctx, g.assetRegistry, "isRegistered", [32]byte(assetID))
}

func (g *ActusEthereum) AssetIDs(ctx context.Context, owner common.Address) ([]common.Hash, error) {
	words, err := callOne[[][32]byte](ctx, g.assetRegistry, "getAssetIds", owner)
	if err != nil {
		return nil, err
	}
	ids := make([]common.Hash, len(words))
	for i, w := range words {
		ids[i] = common.Hash(w)
	}
	return ids, nil
}

func (g *ActusEthereum) ActorAddress(ctx context.Context, assetID common.Hash) (common.Address, error) {
	actor, err := callOne[common.Address](ctx, g.assetRegistry, "getActor", [32]byte(assetID))
	if err != nil {
		return common.Address{}, err
	}
	if actor == (common.Address{}) {
		return common.Address{}, fmt.Errorf("actor of asset %s: %w", assetID.Hex(), ErrNotFound)
	}
	return actor, nil
}

// NextObligation returns nil if the asset has no pending obligation
func (g *ActusEthereum) NextObligation(ctx context.Context, assetID common.Hash) (*engine.Obligation, error) {
	var out []interface{}
	err := g.assetRegistry.Call(&bind.CallOpts{Context: ctx}, &out, "getNextScheduledPayment", [32]byte(assetID))
	if err != nil {
		return nil, err
	}
	if len(out) != 5 {
		return nil, fmt.Errorf("getNextScheduledPayment: unexpected %d return values", len(out))
	}

	word := common.Hash(out[0].([32]byte))
	if word == (common.Hash{}) {
		return nil, nil
	}

	return &engine.Obligation{
		Event:  engine.DecodeEvent(word),
		Amount: out[1].(*big.Int),
		Token:  out[2].(common.Address),
		Payer:  out[3].(common.Address),
		Payee:  out[4].(common.Address),
	}, nil
}

func (g *ActusEthereum) Progress(ctx context.Context, from signer.Identity, assetID common.Hash) (*Submission, error) {
	actor, err := g.ActorAddress(ctx, assetID)
	if err != nil {
		return nil, err
	}
	contract := bind.NewBoundContract(actor, AssetActorABI, g.client, g.client, g.client)
	return g.Transact(ctx, from, contract, "progress", [32]byte(assetID))
}

func (g *ActusEthereum) Approve(ctx context.Context, payer signer.Identity, token common.Address, spender common.Address, amount *big.Int) (*Submission, error) {
	return g.Transact(ctx, payer, g.erc20(token), "approve", spender, amount)
}

func (g *ActusEthereum) Allowance(ctx context.Context, token common.Address, owner common.Address, spender common.Address) (*big.Int, error) {
	return callOne[*big.Int](ctx, g.erc20(token), "allowance", owner, spender)
}

func (g *ActusEthereum) BalanceOf(ctx context.Context, token common.Address, account common.Address) (*big.Int, error) {
	return callOne[*big.Int](ctx, g.erc20(token), "balanceOf", account)
}

func (g *ActusEthereum) erc20(token common.Address) *bind.BoundContract {
	return bind.NewBoundContract(token, ERC20ABI, g.client, g.client, g.client)
}

func callOne[T any](ctx context.Context, contract *bind.BoundContract, method string, args ...interface{}) (T, error) {
	var (
		out  []interface{}
		zero T
	)
	err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
	if err != nil {
		return zero, err
	}
	if len(out) != 1 {
		return zero, fmt.Errorf("%s: expected single return value, got %d", method, len(out))
	}
	val, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected return type %T", method, out[0])
	}
	return val, nil
}

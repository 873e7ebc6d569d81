package originator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/asset"
	"github.com/Lumerin-protocol/actus-originator/internal/interfaces"
	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/Lumerin-protocol/actus-originator/internal/order"
	"github.com/Lumerin-protocol/actus-originator/internal/servicer"
	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/Lumerin-protocol/actus-originator/internal/template"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/common"
)

var ErrStage = errors.New("origination stage failed")

// Chain is the part of the ledger the originator needs on top of the domain components
type Chain interface {
	Domain(ctx context.Context) (order.Domain, error)
	EngineAddress() common.Address
}

type Config struct {
	TermsFile          string // default PAM terms when empty
	Currency           common.Address
	SettlementCurrency common.Address
	Notional           terms.Decimal
	InterestRate       terms.Decimal
	OrderTTL           time.Duration
	Admin              common.Address
	ServiceFirst       bool
}

type Result struct {
	TemplateID common.Hash
	AssetID    common.Hash
	Order      []byte
	Cycle      *servicer.Cycle
}

// Originator runs the bilateral origination of an asset: template, order, signatures,
// issuance and the servicing of its first obligation
type Originator struct {
	cfg          Config
	creator      signer.Identity
	counterparty signer.Identity
	now          func() time.Time

	chain    Chain
	registry *template.Registry
	issuer   *asset.Issuer
	servicer *servicer.Servicer
	signer   signer.Signer
	log      interfaces.ILogger
}

func NewOriginator(cfg Config, creator, counterparty signer.Identity, chain Chain, registry *template.Registry, issuer *asset.Issuer, svc *servicer.Servicer, log interfaces.ILogger) *Originator {
	return &Originator{
		cfg:          cfg,
		creator:      creator,
		counterparty: counterparty,
		now:          time.Now,
		chain:        chain,
		registry:     registry,
		issuer:       issuer,
		servicer:     svc,
		signer:       signer.NewEIP712(),
		log:          log,
	}
}

func (o *Originator) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	ext, err := o.templateTerms()
	if err != nil {
		return nil, o.stageErr("terms", err)
	}

	o.log.Infof("creating template, creator %s", o.creator)
	tpl, err := o.registry.Create(ctx, o.creator, ext)
	if err != nil {
		return nil, o.stageErr("template", err)
	}
	res.TemplateID = tpl.ID
	o.log.Infof("template created %s, %d scheduled events", tpl.ID.Hex(), len(tpl.Schedule))

	domain, err := o.chain.Domain(ctx)
	if err != nil {
		return nil, o.stageErr("domain", err)
	}

	draft, err := o.buildOrder(tpl)
	if err != nil {
		return nil, o.stageErr("order", err)
	}

	// the counterparty receives the order signed by the creator over the wire
	data, err := o.sign(draft, order.RoleCreator, o.creator, domain)
	if err != nil {
		return nil, o.stageErr("creator signature", err)
	}
	received, err := order.Deserialize(data)
	if err != nil {
		return nil, o.stageErr("order transfer", err)
	}
	data, err = o.sign(received, order.RoleCounterparty, o.counterparty, domain)
	if err != nil {
		return nil, o.stageErr("counterparty signature", err)
	}
	res.Order = data

	verified, err := order.NewVerifier(o.signer, domain).Load(data)
	if err != nil {
		return nil, o.stageErr("verification", err)
	}
	o.log.Infof("order verified, terms hash %s", verified.TermsHash().Hex())

	assetID, err := o.issuer.Issue(ctx, o.creator, verified)
	if err != nil {
		return res, o.stageErr("issuance", err)
	}
	res.AssetID = assetID

	latest, err := o.issuer.ResolveLatest(ctx, o.creator.Address)
	if err != nil {
		return res, o.stageErr("issuance", err)
	}
	if latest != assetID {
		o.log.Warnf("latest asset of %s is %s, issued %s", o.creator, latest.Hex(), assetID.Hex())
	}

	if !o.cfg.ServiceFirst {
		return res, nil
	}

	o.log.Infof("servicing first obligation of asset %s", assetID.Hex())
	cycle, err := o.servicer.Service(ctx, assetID, o.creator, o.counterparty)
	res.Cycle = cycle
	if err != nil {
		return res, o.stageErr("servicing", err)
	}
	if cycle == nil {
		o.log.Infof("asset %s has no obligations", assetID.Hex())
	}
	return res, nil
}

func (o *Originator) templateTerms() (*terms.ExtendedTerms, error) {
	var (
		raw terms.Terms
		err error
	)
	if o.cfg.TermsFile == "" {
		raw, err = terms.DefaultPAM()
	} else {
		raw, err = parseFile(o.cfg.TermsFile)
	}
	if err != nil {
		return nil, err
	}

	if o.cfg.Currency != (common.Address{}) {
		raw.Currency = o.cfg.Currency
	}
	if o.cfg.SettlementCurrency != (common.Address{}) {
		raw.SettlementCurrency = o.cfg.SettlementCurrency
	}
	return terms.DeriveExtended(raw)
}

func (o *Originator) buildOrder(tpl *template.Template) (*order.Order, error) {
	now := o.now()
	anchor := terms.Timestamp(now.Unix())
	overrides := terms.Overrides{ContractDealDate: &anchor}
	if !o.cfg.Notional.IsZero() {
		notional := o.cfg.Notional
		overrides.NotionalPrincipal = &notional
	}
	if !o.cfg.InterestRate.IsZero() {
		rate := o.cfg.InterestRate
		overrides.NominalInterestRate = &rate
	}

	custom, err := terms.DeriveCustom(overrides, tpl.Terms)
	if err != nil {
		return nil, err
	}

	var expiration terms.Timestamp
	if o.cfg.OrderTTL > 0 {
		expiration = terms.Timestamp(now.Add(o.cfg.OrderTTL).Unix())
	}

	return order.Build(order.Params{
		TemplateID:  tpl.ID,
		CustomTerms: custom,
		Ownership: order.Ownership{
			CreatorObligor:          o.creator.Address,
			CreatorBeneficiary:      o.creator.Address,
			CounterpartyObligor:     o.counterparty.Address,
			CounterpartyBeneficiary: o.counterparty.Address,
		},
		ExpirationDate: expiration,
		Engine:         o.chain.EngineAddress(),
		Admin:          o.cfg.Admin,
	})
}

// sign attaches the signature of the role and returns the serialized order
func (o *Originator) sign(ord *order.Order, role order.Role, id signer.Identity, domain order.Domain) ([]byte, error) {
	payload, err := order.SigningPayload(ord, role, domain)
	if err != nil {
		return nil, err
	}
	sig, err := o.signer.Sign(payload, id)
	if err != nil {
		return nil, err
	}
	if err := ord.AttachSignature(role, sig); err != nil {
		return nil, err
	}
	o.log.Infof("order signed by %s %s", role, id)
	return order.Serialize(ord)
}

func (o *Originator) stageErr(stage string, err error) error {
	o.log.Errorf("%s: %s", stage, err)
	return lib.WrapError(ErrStage, fmt.Errorf("%s: %w", stage, err))
}

func parseFile(path string) (terms.Terms, error) {
	f, err := os.Open(path)
	if err != nil {
		return terms.Terms{}, err
	}
	defer f.Close()
	return terms.ParseTerms(f)
}

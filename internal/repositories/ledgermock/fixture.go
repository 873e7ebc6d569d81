package ledgermock

import (
	"context"
	"math/big"
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/interfaces"
	"github.com/Lumerin-protocol/actus-originator/internal/order"
	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/Lumerin-protocol/actus-originator/internal/template"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/common"
)

// local development node accounts #0 and #1
const (
	CreatorKey      = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	CounterpartyKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

const (
	Notional     = "44200000000000000000000"
	InterestRate = "3530000000000000000"
)

// Fixture is a mock ledger with a registered PAM template and funded parties
type Fixture struct {
	Ledger       *Ledger
	Creator      signer.Identity
	Counterparty signer.Identity
	Template     *template.Template
}

func NewFixture(ctx context.Context, log interfaces.ILogger) (*Fixture, error) {
	creator, err := signer.IdentityFromPrivateKey(CreatorKey)
	if err != nil {
		return nil, err
	}
	counterparty, err := signer.IdentityFromPrivateKey(CounterpartyKey)
	if err != nil {
		return nil, err
	}

	raw, err := terms.DefaultPAM()
	if err != nil {
		return nil, err
	}
	raw.Currency = SettlementToken
	raw.SettlementCurrency = SettlementToken

	ext, err := terms.DeriveExtended(raw)
	if err != nil {
		return nil, err
	}

	ledger := NewLedger(log)
	tpl, err := template.NewRegistry(ledger, ledger, log).Create(ctx, creator, ext)
	if err != nil {
		return nil, err
	}

	funds, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	ledger.Mint(SettlementToken, creator.Address, funds)
	ledger.Mint(SettlementToken, counterparty.Address, funds)

	return &Fixture{
		Ledger:       ledger,
		Creator:      creator,
		Counterparty: counterparty,
		Template:     tpl,
	}, nil
}

// Order builds an order over the template anchored now with the notional and rate overridden
func (f *Fixture) Order(ctx context.Context) (*order.Order, error) {
	now := terms.Timestamp(time.Now().Unix())
	notional := terms.MustParseDecimal(Notional)
	rate := terms.MustParseDecimal(InterestRate)

	custom, err := terms.DeriveCustom(terms.Overrides{
		ContractDealDate:    &now,
		NotionalPrincipal:   &notional,
		NominalInterestRate: &rate,
	}, f.Template.Terms)
	if err != nil {
		return nil, err
	}

	return order.Build(order.Params{
		TemplateID:  f.Template.ID,
		CustomTerms: custom,
		Ownership: order.Ownership{
			CreatorObligor:          f.Creator.Address,
			CreatorBeneficiary:      f.Creator.Address,
			CounterpartyObligor:     f.Counterparty.Address,
			CounterpartyBeneficiary: f.Counterparty.Address,
		},
		ExpirationDate: now + 3600,
		Engine:         EngineAddress,
		Admin:          common.Address{},
	})
}

// Sign attaches the signatures of both parties
func (f *Fixture) Sign(ctx context.Context, o *order.Order) error {
	domain, err := f.Ledger.Domain(ctx)
	if err != nil {
		return err
	}
	s := signer.NewEIP712()
	for role, id := range map[order.Role]signer.Identity{order.RoleCreator: f.Creator, order.RoleCounterparty: f.Counterparty} {
		payload, err := order.SigningPayload(o, role, domain)
		if err != nil {
			return err
		}
		sig, err := s.Sign(payload, id)
		if err != nil {
			return err
		}
		if err := o.AttachSignature(role, sig); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fixture) VerifiedOrder(ctx context.Context) (*order.VerifiedOrder, error) {
	o, err := f.Order(ctx)
	if err != nil {
		return nil, err
	}
	if err := f.Sign(ctx, o); err != nil {
		return nil, err
	}
	domain, err := f.Ledger.Domain(ctx)
	if err != nil {
		return nil, err
	}
	return order.NewVerifier(signer.NewEIP712(), domain).Verify(o)
}

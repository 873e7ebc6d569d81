package order

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	creatorKey      = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	counterpartyKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

var (
	testToken  = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testEngine = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	testDomain = Domain{ChainID: big.NewInt(1337), VerifyingContract: common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0")}
)

type parties struct {
	creator      signer.Identity
	counterparty signer.Identity
}

func newParties(t *testing.T) parties {
	creator, err := signer.IdentityFromPrivateKey(creatorKey)
	require.NoError(t, err)
	counterparty, err := signer.IdentityFromPrivateKey(counterpartyKey)
	require.NoError(t, err)
	return parties{creator, counterparty}
}

func newOrder(t *testing.T, p parties) *Order {
	raw, err := terms.DefaultPAM()
	require.NoError(t, err)
	raw.Currency = testToken

	ext, err := terms.DeriveExtended(raw)
	require.NoError(t, err)

	dealDate := terms.Timestamp(1700000000)
	rate := terms.MustParseDecimal("3530000000000000000")
	notional := terms.MustParseDecimal("44200000000000000000000")
	custom, err := terms.DeriveCustom(terms.Overrides{
		ContractDealDate:    &dealDate,
		NominalInterestRate: &rate,
		NotionalPrincipal:   &notional,
	}, ext)
	require.NoError(t, err)

	o, err := Build(Params{
		TemplateID:  common.HexToHash("0x01"),
		CustomTerms: custom,
		Ownership: Ownership{
			CreatorObligor:          p.creator.Address,
			CreatorBeneficiary:      p.creator.Address,
			CounterpartyObligor:     p.counterparty.Address,
			CounterpartyBeneficiary: p.counterparty.Address,
		},
		ExpirationDate: dealDate + 3600,
		Engine:         testEngine,
	})
	require.NoError(t, err)
	return o
}

func sign(t *testing.T, o *Order, role Role, id signer.Identity) []byte {
	payload, err := SigningPayload(o, role, testDomain)
	require.NoError(t, err)
	sig, err := signer.NewEIP712().Sign(payload, id)
	require.NoError(t, err)
	return sig
}

func newSignedOrder(t *testing.T, p parties) *Order {
	o := newOrder(t, p)
	require.NoError(t, o.AttachSignature(RoleCreator, sign(t, o, RoleCreator, p.creator)))
	require.NoError(t, o.AttachSignature(RoleCounterparty, sign(t, o, RoleCounterparty, p.counterparty)))
	return o
}

func TestBuildCommitsToCustomTerms(t *testing.T) {
	o := newOrder(t, newParties(t))

	hash, err := o.CustomTerms.Hash()
	require.NoError(t, err)
	require.Equal(t, hash, o.TermsHash)
	require.NotNil(t, o.Salt)
	require.Nil(t, o.CreatorSignature)
	require.Nil(t, o.CounterpartySignature)
}

func TestBuildRejectsMissingObligor(t *testing.T) {
	p := newParties(t)
	o := newOrder(t, p)

	_, err := Build(Params{
		TemplateID:  o.TemplateID,
		CustomTerms: &o.CustomTerms,
		Ownership:   Ownership{CreatorObligor: p.creator.Address},
		Engine:      testEngine,
	})
	require.ErrorIs(t, err, ErrIncompleteOrder)

	var slotErr *SlotError
	require.ErrorAs(t, err, &slotErr)
	require.Equal(t, "ownership.counterpartyObligor", slotErr.Slot)
}

func TestSerializeRoundTrip(t *testing.T) {
	p := newParties(t)
	o := newOrder(t, p)

	data, err := Serialize(o)
	require.NoError(t, err)
	require.NotContains(t, string(data), "creatorSignature")
	require.NotContains(t, string(data), "counterpartySignature")

	loaded, err := Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, o, loaded)

	require.NoError(t, o.AttachSignature(RoleCreator, sign(t, o, RoleCreator, p.creator)))
	data, err = Serialize(o)
	require.NoError(t, err)

	loaded, err = Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, o, loaded)
	require.Nil(t, loaded.CounterpartySignature)
}

func TestDeserializeRejectsUnknownFields(t *testing.T) {
	o := newOrder(t, newParties(t))
	data, err := Serialize(o)
	require.NoError(t, err)

	data = bytes.Replace(data, []byte(`"termsHash"`), []byte(`"verified":true,"termsHash"`), 1)
	_, err = Deserialize(data)
	require.ErrorIs(t, err, terms.ErrMalformedTerms)
}

func TestAttachSignatureKeepsTermsHash(t *testing.T) {
	p := newParties(t)
	o := newOrder(t, p)
	before := o.TermsHash

	for _, role := range []Role{RoleCreator, RoleCounterparty} {
		require.NoError(t, o.AttachSignature(role, []byte{1, 2, 3}))
		require.Equal(t, before, o.TermsHash)
	}

	require.ErrorIs(t, o.AttachSignature(Role(7), []byte{1}), ErrUnknownRole)
}

func TestSigningPayloadDomainSeparation(t *testing.T) {
	o := newOrder(t, newParties(t))

	creator, err := SigningPayload(o, RoleCreator, testDomain)
	require.NoError(t, err)
	counterparty, err := SigningPayload(o, RoleCounterparty, testDomain)
	require.NoError(t, err)

	creatorHash, err := signer.PayloadHash(creator)
	require.NoError(t, err)
	counterpartyHash, err := signer.PayloadHash(counterparty)
	require.NoError(t, err)
	require.NotEqual(t, creatorHash, counterpartyHash)

	otherChain, err := SigningPayload(o, RoleCreator, Domain{ChainID: big.NewInt(1), VerifyingContract: testDomain.VerifyingContract})
	require.NoError(t, err)
	otherChainHash, err := signer.PayloadHash(otherChain)
	require.NoError(t, err)
	require.NotEqual(t, creatorHash, otherChainHash)
}

func TestVerifierLoad(t *testing.T) {
	p := newParties(t)
	o := newSignedOrder(t, p)

	data, err := Serialize(o)
	require.NoError(t, err)

	verified, err := NewVerifier(signer.NewEIP712(), testDomain).Load(data)
	require.NoError(t, err)
	require.Equal(t, o.TermsHash, verified.TermsHash())
	require.Equal(t, o.AssetID(), verified.AssetID())
	require.Equal(t, o, verified.Order())
}

func TestVerifierTamperedCustomTerms(t *testing.T) {
	p := newParties(t)
	o := newSignedOrder(t, p)
	v := NewVerifier(signer.NewEIP712(), testDomain)

	data, err := Serialize(o)
	require.NoError(t, err)

	tampered := bytes.Replace(data, []byte(`"44200000000000000000000"`), []byte(`"44300000000000000000000"`), 1)
	require.NotEqual(t, data, tampered)

	_, err = v.Load(tampered)
	require.ErrorIs(t, err, ErrSignatureMismatch)

	// the hash is updated along with the terms, the signatures no longer recover to the obligors
	forged, err := Deserialize(tampered)
	require.NoError(t, err)
	forged.TermsHash, err = forged.CustomTerms.Hash()
	require.NoError(t, err)

	_, err = v.Verify(forged)
	require.ErrorIs(t, err, ErrSignatureMismatch)

	var slotErr *SlotError
	require.ErrorAs(t, err, &slotErr)
	require.Equal(t, "creatorSignature", slotErr.Slot)

	// tampered terms that no longer validate are still reported as a forgery
	dates := o.Copy()
	dates.CustomTerms.OverwrittenTerms.MaturityDate = dates.CustomTerms.OverwrittenTerms.InitialExchangeDate - 1
	_, err = v.Verify(dates)
	require.ErrorIs(t, err, ErrSignatureMismatch)
	require.NotErrorIs(t, err, terms.ErrMalformedTerms)
}

func TestVerifierRejectsWrappedNotional(t *testing.T) {
	p := newParties(t)
	o := newSignedOrder(t, p)
	v := NewVerifier(signer.NewEIP712(), testDomain)

	forged := o.Copy()
	notional := forged.CustomTerms.OverwrittenTerms.NotionalPrincipal.Big()
	forged.CustomTerms.OverwrittenTerms.NotionalPrincipal = terms.NewDecimalFromBig(new(big.Int).Add(notional, new(big.Int).Lsh(big.NewInt(1), 256)))

	verified, err := v.Verify(forged)
	require.ErrorIs(t, err, terms.ErrMalformedTerms)
	require.Nil(t, verified)

	data, err := Serialize(forged)
	require.NoError(t, err)
	verified, err = v.Load(data)
	require.ErrorIs(t, err, terms.ErrMalformedTerms)
	require.Nil(t, verified)
}

func TestVerifierIncompleteOrder(t *testing.T) {
	p := newParties(t)
	o := newOrder(t, p)
	require.NoError(t, o.AttachSignature(RoleCreator, sign(t, o, RoleCreator, p.creator)))

	data, err := Serialize(o)
	require.NoError(t, err)

	_, err = NewVerifier(signer.NewEIP712(), testDomain).Load(data)
	require.ErrorIs(t, err, ErrIncompleteOrder)

	var slotErr *SlotError
	require.ErrorAs(t, err, &slotErr)
	require.Equal(t, "counterpartySignature", slotErr.Slot)
}

func TestVerifierRejectsSwappedRoles(t *testing.T) {
	p := newParties(t)
	o := newOrder(t, p)

	// counterparty signs the creator payload
	require.NoError(t, o.AttachSignature(RoleCreator, sign(t, o, RoleCreator, p.creator)))
	require.NoError(t, o.AttachSignature(RoleCounterparty, sign(t, o, RoleCreator, p.counterparty)))

	_, err := NewVerifier(signer.NewEIP712(), testDomain).Verify(o)
	require.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifierRejectsOtherDomain(t *testing.T) {
	o := newSignedOrder(t, newParties(t))

	other := Domain{ChainID: big.NewInt(1), VerifyingContract: testDomain.VerifyingContract}
	_, err := NewVerifier(signer.NewEIP712(), other).Verify(o)
	require.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestConcurrentSigning(t *testing.T) {
	p := newParties(t)
	o := newOrder(t, p)

	data, err := Serialize(o)
	require.NoError(t, err)

	sigs := make([][]byte, 2)
	g := errgroup.Group{}
	for i, id := range []signer.Identity{p.creator, p.counterparty} {
		role, id := Role(i), id
		g.Go(func() error {
			// each party works on its own deserialized copy
			own, err := Deserialize(data)
			if err != nil {
				return err
			}
			payload, err := SigningPayload(own, role, testDomain)
			if err != nil {
				return err
			}
			sigs[role], err = signer.NewEIP712().Sign(payload, id)
			return err
		})
	}
	require.NoError(t, g.Wait())

	// counterparty signature attached first
	require.NoError(t, o.AttachSignature(RoleCounterparty, sigs[RoleCounterparty]))
	require.NoError(t, o.AttachSignature(RoleCreator, sigs[RoleCreator]))

	_, err = NewVerifier(signer.NewEIP712(), testDomain).Verify(o)
	require.NoError(t, err)
}

func TestVerifyDoesNotAliasOrder(t *testing.T) {
	o := newSignedOrder(t, newParties(t))

	verified, err := NewVerifier(signer.NewEIP712(), testDomain).Verify(o)
	require.NoError(t, err)

	o.CreatorSignature[0] ^= 0xff
	require.NotEqual(t, o.CreatorSignature, verified.Order().CreatorSignature)
}

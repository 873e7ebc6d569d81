package order

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

type Role uint8

const (
	RoleCreator Role = iota
	RoleCounterparty
)

func (r Role) String() string {
	switch r {
	case RoleCreator:
		return "creator"
	case RoleCounterparty:
		return "counterparty"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

func (r Role) slot() string {
	return r.String() + "Signature"
}

// Ownership assigns the parties of the asset. Obligors are the expected signers of their role.
type Ownership struct {
	CreatorObligor          common.Address `json:"creatorObligor"`
	CreatorBeneficiary      common.Address `json:"creatorBeneficiary"`
	CounterpartyObligor     common.Address `json:"counterpartyObligor"`
	CounterpartyBeneficiary common.Address `json:"counterpartyBeneficiary"`
}

// Obligor returns the address expected to sign for the role
func (o Ownership) Obligor(role Role) common.Address {
	if role == RoleCounterparty {
		return o.CounterpartyObligor
	}
	return o.CreatorObligor
}

func (o Ownership) Array() [4]common.Address {
	return [4]common.Address{o.CreatorObligor, o.CreatorBeneficiary, o.CounterpartyObligor, o.CounterpartyBeneficiary}
}

func (o Ownership) Hash() common.Hash {
	arr := o.Array()
	data := make([]byte, 0, 32*len(arr))
	for _, a := range arr {
		data = append(data, common.LeftPadBytes(a.Bytes(), 32)...)
	}
	return crypto.Keccak256Hash(data)
}

// Order is a proposal to instantiate an asset from a template. Signature slots are nil until attached.
type Order struct {
	TermsHash      common.Hash
	TemplateID     common.Hash
	CustomTerms    terms.CustomTerms
	Ownership      Ownership
	ExpirationDate terms.Timestamp
	Engine         common.Address
	Admin          common.Address
	Salt           *big.Int

	CreatorSignature      []byte
	CounterpartySignature []byte
}

type Params struct {
	TemplateID     common.Hash
	CustomTerms    *terms.CustomTerms
	Ownership      Ownership
	ExpirationDate terms.Timestamp
	Engine         common.Address
	Admin          common.Address
}

// Build assembles an unsigned order and commits to the canonical hash of its custom terms
func Build(p Params) (*Order, error) {
	if p.CustomTerms == nil {
		return nil, lib.WrapError(ErrIncompleteOrder, &SlotError{"customTerms", "missing"})
	}
	if p.TemplateID == (common.Hash{}) {
		return nil, lib.WrapError(ErrIncompleteOrder, &SlotError{"templateId", "missing"})
	}
	if p.Ownership.CreatorObligor == (common.Address{}) {
		return nil, lib.WrapError(ErrIncompleteOrder, &SlotError{"ownership.creatorObligor", "zero address"})
	}
	if p.Ownership.CounterpartyObligor == (common.Address{}) {
		return nil, lib.WrapError(ErrIncompleteOrder, &SlotError{"ownership.counterpartyObligor", "zero address"})
	}
	if p.Engine == (common.Address{}) {
		return nil, lib.WrapError(ErrIncompleteOrder, &SlotError{"engine", "zero address"})
	}

	termsHash, err := p.CustomTerms.Hash()
	if err != nil {
		return nil, err
	}

	salt, err := rand.Int(rand.Reader, math.MaxBig256)
	if err != nil {
		return nil, err
	}

	return &Order{
		TermsHash:      termsHash,
		TemplateID:     p.TemplateID,
		CustomTerms:    *p.CustomTerms,
		Ownership:      p.Ownership,
		ExpirationDate: p.ExpirationDate,
		Engine:         p.Engine,
		Admin:          p.Admin,
		Salt:           salt,
	}, nil
}

// AttachSignature stores the signature in the slot of the role. Signatures are verified on load only.
func (o *Order) AttachSignature(role Role, signature []byte) error {
	var sig []byte
	if len(signature) > 0 {
		sig = make([]byte, len(signature))
		copy(sig, signature)
	}

	switch role {
	case RoleCreator:
		o.CreatorSignature = sig
	case RoleCounterparty:
		o.CounterpartySignature = sig
	default:
		return lib.WrapError(ErrUnknownRole, fmt.Errorf("%s", role))
	}
	return nil
}

func (o *Order) Signature(role Role) []byte {
	if role == RoleCounterparty {
		return o.CounterpartySignature
	}
	return o.CreatorSignature
}

// AssetID is the identifier the ledger assigns to the asset issued from the fully signed order
func (o *Order) AssetID() common.Hash {
	return crypto.Keccak256Hash(
		crypto.Keccak256(o.CreatorSignature),
		crypto.Keccak256(o.CounterpartySignature),
	)
}

func (o *Order) Copy() *Order {
	c := *o
	if o.Salt != nil {
		c.Salt = new(big.Int).Set(o.Salt)
	}
	if o.CreatorSignature != nil {
		c.CreatorSignature = append([]byte(nil), o.CreatorSignature...)
	}
	if o.CounterpartySignature != nil {
		c.CounterpartySignature = append([]byte(nil), o.CounterpartySignature...)
	}
	return &c
}

package order

import (
	"fmt"

	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/common"
)

// VerifiedOrder is an order whose both signatures were recovered from its own fields.
// It can only be obtained from Verifier.
type VerifiedOrder struct {
	order  *Order
	digest common.Hash
}

// Order returns a copy, a verified order cannot be altered
func (v *VerifiedOrder) Order() *Order {
	return v.order.Copy()
}

func (v *VerifiedOrder) TermsHash() common.Hash {
	return v.order.TermsHash
}

// Digest is the EIP-712 digest of the creator payload. It identifies the order independently
// of the signature bytes.
func (v *VerifiedOrder) Digest() common.Hash {
	return v.digest
}

func (v *VerifiedOrder) AssetID() common.Hash {
	return v.order.AssetID()
}

type Verifier struct {
	signer signer.Signer
	domain Domain
}

func NewVerifier(s signer.Signer, domain Domain) *Verifier {
	return &Verifier{signer: s, domain: domain}
}

// Load deserializes the order and verifies it
func (v *Verifier) Load(data []byte) (*VerifiedOrder, error) {
	o, err := Deserialize(data)
	if err != nil {
		return nil, err
	}
	return v.Verify(o)
}

// Verify checks the order using only its fields, the signatures and the verifying context
func (v *Verifier) Verify(o *Order) (*VerifiedOrder, error) {
	for _, role := range []Role{RoleCreator, RoleCounterparty} {
		if len(o.Signature(role)) == 0 {
			return nil, lib.WrapError(ErrIncompleteOrder, &SlotError{role.slot(), "signature is missing"})
		}
	}

	termsHash, err := o.CustomTerms.Hash()
	if err != nil {
		return nil, err
	}
	if termsHash != o.TermsHash {
		return nil, lib.WrapError(ErrSignatureMismatch, &SlotError{"termsHash", "does not match custom terms"})
	}

	var digest common.Hash
	for _, role := range []Role{RoleCreator, RoleCounterparty} {
		d, err := v.verifyRole(o, role)
		if err != nil {
			return nil, err
		}
		if role == RoleCreator {
			digest = d
		}
	}

	// terms are validated once both parties are known to have signed them
	if err := terms.Validate(&o.CustomTerms.OverwrittenTerms); err != nil {
		return nil, err
	}

	return &VerifiedOrder{order: o.Copy(), digest: digest}, nil
}

// verifyRole returns the digest the role signed
func (v *Verifier) verifyRole(o *Order, role Role) (common.Hash, error) {
	payload, err := SigningPayload(o, role, v.domain)
	if err != nil {
		return common.Hash{}, err
	}
	digest, err := signer.PayloadHash(payload)
	if err != nil {
		return common.Hash{}, err
	}

	recovered, err := v.signer.RecoverSigner(payload, o.Signature(role))
	if err != nil {
		return common.Hash{}, lib.WrapError(ErrSignatureMismatch, &SlotError{role.slot(), err.Error()})
	}

	expected := o.Ownership.Obligor(role)
	if recovered != expected {
		return common.Hash{}, lib.WrapError(ErrSignatureMismatch, &SlotError{
			role.slot(),
			fmt.Sprintf("recovered %s, expected %s", recovered.Hex(), expected.Hex()),
		})
	}
	return digest, nil
}

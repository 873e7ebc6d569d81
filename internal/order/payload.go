package order

import (
	"fmt"
	"math/big"

	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	DomainName    = "ACTUS Protocol"
	DomainVersion = "1"
)

// Domain is the verifying context of a signature: the chain and the issuing contract
type Domain struct {
	ChainID           *big.Int
	VerifyingContract common.Address
}

var orderFields = []apitypes.Type{
	{Name: "termsHash", Type: "bytes32"},
	{Name: "templateId", Type: "bytes32"},
	{Name: "ownershipHash", Type: "bytes32"},
	{Name: "expirationDate", Type: "uint256"},
	{Name: "engine", Type: "address"},
	{Name: "admin", Type: "address"},
	{Name: "salt", Type: "uint256"},
}

func primaryType(role Role) (string, error) {
	switch role {
	case RoleCreator:
		return "CreatorOrder", nil
	case RoleCounterparty:
		return "CounterpartyOrder", nil
	}
	return "", lib.WrapError(ErrUnknownRole, fmt.Errorf("%s", role))
}

// SigningPayload builds the typed data a party signs for its role. The terms hash is recomputed
// from the custom terms, the stored hash is never trusted. Creator and counterparty payloads
// have different primary types, so a signature never verifies for the other role.
func SigningPayload(o *Order, role Role, domain Domain) (*apitypes.TypedData, error) {
	typeName, err := primaryType(role)
	if err != nil {
		return nil, err
	}
	if domain.ChainID == nil {
		return nil, fmt.Errorf("chain id is not set")
	}

	termsHash, err := o.CustomTerms.Hash()
	if err != nil {
		return nil, err
	}

	salt := o.Salt
	if salt == nil {
		salt = new(big.Int)
	}

	return &apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			typeName: orderFields,
		},
		PrimaryType: typeName,
		Domain: apitypes.TypedDataDomain{
			Name:              DomainName,
			Version:           DomainVersion,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(domain.ChainID)),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"termsHash":      termsHash.Hex(),
			"templateId":     o.TemplateID.Hex(),
			"ownershipHash":  o.Ownership.Hash().Hex(),
			"expirationDate": fmt.Sprintf("%d", o.ExpirationDate),
			"engine":         o.Engine.Hex(),
			"admin":          o.Admin.Hex(),
			"salt":           salt.String(),
		},
	}, nil
}

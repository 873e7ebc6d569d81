package signer

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const SignatureLength = crypto.SignatureLength

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidPayload   = errors.New("invalid typed payload")
)

// Signer signs structured payloads and recovers their signers
type Signer interface {
	Sign(payload *apitypes.TypedData, id Identity) ([]byte, error)
	RecoverSigner(payload *apitypes.TypedData, signature []byte) (common.Address, error)
}

// EIP712 signs EIP-712 typed data with secp256k1 keys. Signatures are [R || S || V] with V in {27, 28}
// and low S, any other encoding of the same signature is rejected on recovery.
type EIP712 struct{}

func NewEIP712() *EIP712 {
	return &EIP712{}
}

func (s *EIP712) Sign(payload *apitypes.TypedData, id Identity) ([]byte, error) {
	if id.key == nil {
		return nil, ErrNoKey
	}

	hash, err := PayloadHash(payload)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(hash.Bytes(), id.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27

	return sig, nil
}

func (s *EIP712) RecoverSigner(payload *apitypes.TypedData, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, lib.WrapError(ErrInvalidSignature, fmt.Errorf("length %d, expected %d", len(signature), SignatureLength))
	}

	// one encoding per signature: V in {27, 28} and S in the lower half of the curve order
	v := signature[crypto.RecoveryIDOffset]
	if v != 27 && v != 28 {
		return common.Address{}, lib.WrapError(ErrInvalidSignature, fmt.Errorf("recovery id %d, expected 27 or 28", v))
	}
	r, sv := new(big.Int).SetBytes(signature[:32]), new(big.Int).SetBytes(signature[32:64])
	if !crypto.ValidateSignatureValues(v-27, r, sv, true) {
		return common.Address{}, lib.WrapError(ErrInvalidSignature, fmt.Errorf("non-canonical signature values"))
	}

	hash, err := PayloadHash(payload)
	if err != nil {
		return common.Address{}, err
	}

	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	sig[crypto.RecoveryIDOffset] -= 27

	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return common.Address{}, lib.WrapError(ErrInvalidSignature, err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// PayloadHash returns the EIP-712 digest keccak256("\x19\x01" || domainSeparator || hashStruct(message))
func PayloadHash(payload *apitypes.TypedData) (common.Hash, error) {
	if payload == nil {
		return common.Hash{}, ErrInvalidPayload
	}
	hash, _, err := apitypes.TypedDataAndHash(*payload)
	if err != nil {
		return common.Hash{}, lib.WrapError(ErrInvalidPayload, err)
	}
	return common.BytesToHash(hash), nil
}

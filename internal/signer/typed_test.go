package signer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/require"
)

const (
	testMnemonic = "test test test test test test test test test test test junk"
	testKey0     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

func samplePayload(primaryType string) *apitypes.TypedData {
	return &apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			primaryType: {
				{Name: "termsHash", Type: "bytes32"},
				{Name: "salt", Type: "uint256"},
			},
		},
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              "test",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(1337),
			VerifyingContract: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		},
		Message: apitypes.TypedDataMessage{
			"termsHash": common.HexToHash("0x01").Hex(),
			"salt":      "42",
		},
	}
}

func TestIdentityFromMnemonic(t *testing.T) {
	id, err := IdentityFromMnemonic(testMnemonic, 0)
	require.NoError(t, err)
	require.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", id.Address.Hex())

	fromKey, err := IdentityFromPrivateKey("0x" + testKey0)
	require.NoError(t, err)
	require.Equal(t, id.Address, fromKey.Address)
}

func TestSignRecover(t *testing.T) {
	id, err := IdentityFromPrivateKey(testKey0)
	require.NoError(t, err)

	s := NewEIP712()
	payload := samplePayload("CreatorOrder")

	sig, err := s.Sign(payload, id)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)
	require.Contains(t, []byte{27, 28}, sig[64])

	recovered, err := s.RecoverSigner(payload, sig)
	require.NoError(t, err)
	require.Equal(t, id.Address, recovered)
}

func TestRecoverDifferentPrimaryType(t *testing.T) {
	id, err := IdentityFromPrivateKey(testKey0)
	require.NoError(t, err)

	s := NewEIP712()
	sig, err := s.Sign(samplePayload("CreatorOrder"), id)
	require.NoError(t, err)

	recovered, err := s.RecoverSigner(samplePayload("CounterpartyOrder"), sig)
	if err == nil {
		require.NotEqual(t, id.Address, recovered)
	}
}

func TestRecoverInvalidLength(t *testing.T) {
	_, err := NewEIP712().RecoverSigner(samplePayload("CreatorOrder"), []byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSignWithoutKey(t *testing.T) {
	_, err := NewEIP712().Sign(samplePayload("CreatorOrder"), Identity{})
	require.ErrorIs(t, err, ErrNoKey)
}

func TestRecoverRejectsMalleableEncodings(t *testing.T) {
	id, err := IdentityFromPrivateKey(testKey0)
	require.NoError(t, err)

	s := NewEIP712()
	payload := samplePayload("CreatorOrder")
	sig, err := s.Sign(payload, id)
	require.NoError(t, err)

	// raw recovery id
	rawV := append([]byte(nil), sig...)
	rawV[64] -= 27
	_, err = s.RecoverSigner(payload, rawV)
	require.ErrorIs(t, err, ErrInvalidSignature)

	// high S with the flipped recovery id recovers the same key on plain ecrecover
	highS := append([]byte(nil), sig...)
	n := crypto.S256().Params().N
	sv := new(big.Int).Sub(n, new(big.Int).SetBytes(sig[32:64]))
	copy(highS[32:64], common.LeftPadBytes(sv.Bytes(), 32))
	highS[64] = 55 - sig[64]
	_, err = s.RecoverSigner(payload, highS)
	require.ErrorIs(t, err, ErrInvalidSignature)

	recovered, err := s.RecoverSigner(payload, sig)
	require.NoError(t, err)
	require.Equal(t, id.Address, recovered)
}

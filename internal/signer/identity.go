package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
)

var (
	ErrNoKey = errors.New("identity has no private key")
)

// Identity is an account that signs orders and submits transactions. The private key never leaves it.
type Identity struct {
	Address common.Address
	key     *ecdsa.PrivateKey
}

func NewIdentity(key *ecdsa.PrivateKey) (Identity, error) {
	addr, err := lib.PrivKeyToAddr(key)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Address: addr, key: key}, nil
}

func IdentityFromPrivateKey(privateKey string) (Identity, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return Identity{}, err
	}
	return NewIdentity(key)
}

// IdentityFromMnemonic derives the account m/44'/60'/0'/0/{accountIndex}
func IdentityFromMnemonic(mnemonic string, accountIndex int) (Identity, error) {
	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return Identity{}, err
	}

	path, err := hdwallet.ParseDerivationPath(fmt.Sprintf("m/44'/60'/0'/0/%d", accountIndex))
	if err != nil {
		return Identity{}, err
	}

	account, err := wallet.Derive(path, false)
	if err != nil {
		return Identity{}, err
	}

	key, err := wallet.PrivateKey(account)
	if err != nil {
		return Identity{}, err
	}

	return NewIdentity(key)
}

// NewTransactor creates transaction options signed by this identity
func (i Identity) NewTransactor(chainID *big.Int) (*bind.TransactOpts, error) {
	if i.key == nil {
		return nil, ErrNoKey
	}
	return bind.NewKeyedTransactorWithChainID(i.key, chainID)
}

func (i Identity) String() string {
	return lib.AddrShort(i.Address.Hex())
}

package terms

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/Lumerin-protocol/actus-originator/internal/lib"
)

// Precision is the number of decimals of fixed point amounts and rates
const Precision = 18

// One is 1.0 in fixed point representation
var One = NewDecimalFromBig(new(big.Int).Exp(big.NewInt(10), big.NewInt(Precision), nil))

// bounds of int256, decimals are encoded on chain and in the terms hash as int256
var (
	maxInt256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	minInt256 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// Decimal is a signed fixed point value with 18 decimals, serialized as a base-10 string.
// Zero value is 0.
type Decimal struct {
	i *big.Int
}

func NewDecimal(x int64) Decimal {
	return NewDecimalFromBig(big.NewInt(x))
}

func NewDecimalFromBig(b *big.Int) Decimal {
	if b == nil || b.Sign() == 0 {
		return Decimal{}
	}
	return Decimal{i: new(big.Int).Set(b)}
}

// ParseDecimal parses a base-10 integer, values outside of int256 are malformed
func ParseDecimal(s string) (Decimal, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Decimal{}, lib.WrapError(ErrMalformedTerms, fmt.Errorf("invalid decimal %q", s))
	}
	d := NewDecimalFromBig(b)
	if !d.InRange() {
		return Decimal{}, lib.WrapError(ErrMalformedTerms, fmt.Errorf("decimal %s overflows int256", s))
	}
	return d, nil
}

func MustParseDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Big returns a copy of the underlying integer
func (d Decimal) Big() *big.Int {
	if d.i == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(d.i)
}

// InRange reports whether the value fits int256
func (d Decimal) InRange() bool {
	if d.i == nil {
		return true
	}
	return d.i.Cmp(minInt256) >= 0 && d.i.Cmp(maxInt256) <= 0
}

func (d Decimal) Sign() int {
	if d.i == nil {
		return 0
	}
	return d.i.Sign()
}

func (d Decimal) IsZero() bool {
	return d.Sign() == 0
}

func (d Decimal) Equal(other Decimal) bool {
	return d.Big().Cmp(other.Big()) == 0
}

func (d Decimal) String() string {
	return d.Big().String()
}

func (d Decimal) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Decimal) UnmarshalText(text []byte) error {
	parsed, err := ParseDecimal(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalJSON accepts both quoted and bare numbers
func (d *Decimal) UnmarshalJSON(data []byte) error {
	return d.UnmarshalText(bytes.Trim(data, `"`))
}

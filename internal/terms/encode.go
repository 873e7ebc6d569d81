package terms

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	uint8Ty, _   = abi.NewType("uint8", "", nil)
	uint256Ty, _ = abi.NewType("uint256", "", nil)
	int256Ty, _  = abi.NewType("int256", "", nil)
	addressTy, _ = abi.NewType("address", "", nil)
	boolTy, _    = abi.NewType("bool", "", nil)
)

// Encode returns abi.encode of all the terms in schema order, cycles and periods flattened.
// Fixed field order and fixed width encoding make it canonical.
func (t Terms) Encode() ([]byte, error) {
	args, vals, err := appendABI(reflect.ValueOf(t), "", nil, nil)
	if err != nil {
		return nil, err
	}
	return args.Pack(vals...)
}

func (t Terms) Hash() (common.Hash, error) {
	data, err := t.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(data), nil
}

func (c CustomTerms) Encode() ([]byte, error) {
	args := abi.Arguments{{Type: uint256Ty}, {Type: uint256Ty}}
	vals := []interface{}{
		new(big.Int).SetUint64(uint64(c.AnchorDate)),
		new(big.Int).SetUint64(c.OverwrittenAttributesMap),
	}
	args, vals, err := appendABI(reflect.ValueOf(c.OverwrittenTerms), "", args, vals)
	if err != nil {
		return nil, err
	}
	return args.Pack(vals...)
}

// Hash is the canonical terms hash of an order
func (c CustomTerms) Hash() (common.Hash, error) {
	data, err := c.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(data), nil
}

// DecodeTerms is the inverse of Terms.Encode
func DecodeTerms(data []byte) (Terms, error) {
	args, _, err := appendABI(reflect.ValueOf(Terms{}), "", nil, nil)
	if err != nil {
		return Terms{}, err
	}
	vals, err := args.Unpack(data)
	if err != nil {
		return Terms{}, err
	}

	var t Terms
	rest, err := assignABI(reflect.ValueOf(&t).Elem(), vals)
	if err != nil {
		return Terms{}, err
	}
	if len(rest) != 0 {
		return Terms{}, fmt.Errorf("%d unexpected trailing values", len(rest))
	}
	return t, nil
}

// appendABI flattens v into abi arguments. Out of range decimals are rejected, the abi packer
// would silently reduce them mod 2^256.
func appendABI(v reflect.Value, field string, args abi.Arguments, vals []interface{}) (abi.Arguments, []interface{}, error) {
	switch v.Type() {
	case timestampType:
		return append(args, abi.Argument{Type: uint256Ty}), append(vals, new(big.Int).SetUint64(v.Uint())), nil
	case decimalType:
		d := v.Interface().(Decimal)
		if !d.InRange() {
			return nil, nil, malformed(field, "%s overflows int256", d)
		}
		return append(args, abi.Argument{Type: int256Ty}), append(vals, d.Big()), nil
	case addressType:
		return append(args, abi.Argument{Type: addressTy}), append(vals, v.Interface().(common.Address)), nil
	}

	switch v.Kind() {
	case reflect.Uint8:
		return append(args, abi.Argument{Type: uint8Ty}), append(vals, uint8(v.Uint())), nil
	case reflect.Uint64:
		return append(args, abi.Argument{Type: uint256Ty}), append(vals, new(big.Int).SetUint64(v.Uint())), nil
	case reflect.Bool:
		return append(args, abi.Argument{Type: boolTy}), append(vals, v.Bool()), nil
	case reflect.Struct:
		var err error
		for i := 0; i < v.NumField(); i++ {
			name := jsonName(v.Type().Field(i))
			if name == "" {
				name = v.Type().Field(i).Name
			}
			if field != "" {
				name = field + "." + name
			}
			args, vals, err = appendABI(v.Field(i), name, args, vals)
			if err != nil {
				return nil, nil, err
			}
		}
		return args, vals, nil
	}

	panic(fmt.Sprintf("unsupported terms field type %s", v.Type()))
}

func assignABI(v reflect.Value, vals []interface{}) ([]interface{}, error) {
	if v.Kind() == reflect.Struct && v.Type() != decimalType {
		var err error
		for i := 0; i < v.NumField(); i++ {
			vals, err = assignABI(v.Field(i), vals)
			if err != nil {
				return nil, err
			}
		}
		return vals, nil
	}

	if len(vals) == 0 {
		return nil, fmt.Errorf("missing value for %s", v.Type())
	}
	val := vals[0]

	switch {
	case v.Type() == decimalType:
		b, ok := val.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("expected int256, got %T", val)
		}
		v.Set(reflect.ValueOf(NewDecimalFromBig(b)))
	case v.Type() == addressType:
		addr, ok := val.(common.Address)
		if !ok {
			return nil, fmt.Errorf("expected address, got %T", val)
		}
		v.Set(reflect.ValueOf(addr))
	case v.Kind() == reflect.Uint64:
		b, ok := val.(*big.Int)
		if !ok || !b.IsUint64() {
			return nil, fmt.Errorf("expected uint64 range uint256, got %v", val)
		}
		v.SetUint(b.Uint64())
	case v.Kind() == reflect.Uint8:
		u, ok := val.(uint8)
		if !ok {
			return nil, fmt.Errorf("expected uint8, got %T", val)
		}
		v.SetUint(uint64(u))
	case v.Kind() == reflect.Bool:
		b, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", val)
		}
		v.SetBool(b)
	default:
		return nil, fmt.Errorf("unsupported terms field type %s", v.Type())
	}

	return vals[1:], nil
}

package terms

import (
	"bytes"
	"encoding/json"
	"math/big"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var testToken = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func samplePAM(t *testing.T) Terms {
	raw, err := DefaultPAM()
	require.NoError(t, err)
	raw.Currency = testToken
	raw.SettlementCurrency = testToken
	return raw
}

func sampleExtended(t *testing.T) *ExtendedTerms {
	ext, err := DeriveExtended(samplePAM(t))
	require.NoError(t, err)
	return ext
}

func ptr[T any](v T) *T {
	return &v
}

func requireFieldError(t *testing.T, err error, field string) {
	require.ErrorIs(t, err, ErrMalformedTerms)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, field, fe.Field)
}

func TestOverridesMatchSchema(t *testing.T) {
	require.Len(t, overrideIndex, termsType.NumField())
	require.Len(t, FieldNames(), termsType.NumField())
}

func TestDeriveExtendedOffsets(t *testing.T) {
	raw := samplePAM(t)
	ext := sampleExtended(t)

	require.Zero(t, ext.ContractDealDate)
	require.Zero(t, ext.StatusDate)
	require.Equal(t, raw.InitialExchangeDate-raw.ContractDealDate, ext.InitialExchangeDate)
	require.Equal(t, raw.MaturityDate-raw.ContractDealDate, ext.MaturityDate)
	require.Zero(t, ext.PurchaseDate, "unset dates stay unset")

	require.Equal(t, raw, ext.Resolve(raw.ContractDealDate), "resolving at the original anchor restores the terms")
}

func TestDeriveExtendedFillsDefaults(t *testing.T) {
	raw := samplePAM(t)
	raw.StatusDate = 0
	raw.SettlementCurrency = common.Address{}
	raw.RateMultiplier = Decimal{}
	raw.CycleAnchorDateOfInterestPayment = 0

	ext, err := DeriveExtended(raw)
	require.NoError(t, err)

	resolved := ext.Resolve(raw.ContractDealDate)
	require.Equal(t, raw.ContractDealDate, resolved.StatusDate)
	require.Equal(t, raw.Currency, resolved.SettlementCurrency)
	require.True(t, resolved.RateMultiplier.Equal(One))
	require.Equal(t, raw.InitialExchangeDate, resolved.CycleAnchorDateOfInterestPayment)
}

func TestDeriveExtendedMalformed(t *testing.T) {
	raw := samplePAM(t)
	raw.Currency = common.Address{}
	_, err := DeriveExtended(raw)
	requireFieldError(t, err, "currency")

	raw = samplePAM(t)
	raw.MaturityDate = raw.InitialExchangeDate
	_, err = DeriveExtended(raw)
	requireFieldError(t, err, "maturityDate")

	raw = samplePAM(t)
	raw.NotionalPrincipal = NewDecimal(-1)
	_, err = DeriveExtended(raw)
	requireFieldError(t, err, "notionalPrincipal")

	raw = samplePAM(t)
	raw.CycleOfInterestPayment = Cycle{N: 0, P: PeriodMonth, IsSet: true}
	_, err = DeriveExtended(raw)
	requireFieldError(t, err, "cycleOfInterestPayment.n")
}

func TestDeriveCustomOverrideWinsOthersInherited(t *testing.T) {
	ext := sampleExtended(t)
	anchor := Timestamp(1700000000)

	principal := MustParseDecimal("44200000000000000000000")
	rate := MustParseDecimal("3530000000000000000")
	custom, err := DeriveCustom(Overrides{
		ContractDealDate:    ptr(anchor),
		NotionalPrincipal:   ptr(principal),
		NominalInterestRate: ptr(rate),
	}, ext)
	require.NoError(t, err)

	expected := ext.Resolve(anchor)
	expected.NotionalPrincipal = principal
	expected.NominalInterestRate = rate

	require.Equal(t, anchor, custom.AnchorDate)
	require.Equal(t, expected, custom.OverwrittenTerms)
	require.True(t, custom.IsOverwritten("notionalPrincipal"))
	require.True(t, custom.IsOverwritten("nominalInterestRate"))
	require.True(t, custom.IsOverwritten("contractDealDate"))
	require.False(t, custom.IsOverwritten("currency"))
}

// Random subsets of amount and address overrides: overridden fields take the override,
// all the others equal the template value
func TestDeriveCustomRandomOverrides(t *testing.T) {
	ext := sampleExtended(t)
	anchor := Timestamp(1700000000)
	rnd := rand.New(rand.NewSource(7))

	for iter := 0; iter < 50; iter++ {
		overrides := Overrides{ContractDealDate: ptr(anchor)}
		ov := reflect.ValueOf(&overrides).Elem()
		overridden := map[int]bool{}

		for i := 0; i < ov.NumField(); i++ {
			f := ov.Field(i)
			if rnd.Intn(3) != 0 {
				continue
			}
			switch f.Type().Elem() {
			case decimalType:
				d := NewDecimalFromBig(new(big.Int).Rand(rnd, big.NewInt(1e18)))
				f.Set(reflect.ValueOf(&d))
			case addressType:
				addr := common.BigToAddress(big.NewInt(rnd.Int63n(1<<40) + 1))
				f.Set(reflect.ValueOf(&addr))
			default:
				continue
			}
			overridden[overrideIndex[i]] = true
		}

		custom, err := DeriveCustom(overrides, ext)
		require.NoError(t, err)

		base := reflect.ValueOf(ext.Resolve(anchor))
		merged := reflect.ValueOf(custom.OverwrittenTerms)
		for i := 0; i < termsType.NumField(); i++ {
			if overridden[i] {
				continue
			}
			require.Equal(t, base.Field(i).Interface(), merged.Field(i).Interface(), "field %s", termsType.Field(i).Name)
		}
		for i := 0; i < ov.NumField(); i++ {
			if ov.Field(i).IsNil() {
				continue
			}
			require.Equal(t, ov.Field(i).Elem().Interface(), merged.Field(overrideIndex[i]).Interface())
		}
	}
}

func TestDeriveCustomRejectsZeroAddress(t *testing.T) {
	ext := sampleExtended(t)
	_, err := DeriveCustom(Overrides{
		ContractDealDate: ptr(Timestamp(1700000000)),
		Currency:         ptr(common.Address{}),
	}, ext)
	requireFieldError(t, err, "currency")
}

func TestDeriveCustomRejectsTemplateWithoutCurrency(t *testing.T) {
	ext := sampleExtended(t)
	ext.SettlementCurrency = common.Address{}

	_, err := DeriveCustom(Overrides{ContractDealDate: ptr(Timestamp(1700000000))}, ext)
	requireFieldError(t, err, "settlementCurrency")

	custom, err := DeriveCustom(Overrides{
		ContractDealDate:   ptr(Timestamp(1700000000)),
		SettlementCurrency: ptr(testToken),
	}, ext)
	require.NoError(t, err)
	require.Equal(t, testToken, custom.OverwrittenTerms.SettlementCurrency)
}

func TestDeriveCustomRequiresAnchor(t *testing.T) {
	_, err := DeriveCustom(Overrides{}, sampleExtended(t))
	requireFieldError(t, err, "contractDealDate")
}

func TestHashCanonical(t *testing.T) {
	a := samplePAM(t)

	// same logical terms decoded from differently ordered json
	data, err := json.Marshal(a)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	var sb strings.Builder
	sb.WriteString("{")
	names := FieldNames()
	for i := len(names) - 1; i >= 0; i-- {
		sb.WriteString(`"` + names[i] + `":` + string(m[names[i]]))
		if i > 0 {
			sb.WriteString(",")
		}
	}
	sb.WriteString("}")
	b, err := ParseTerms(strings.NewReader(sb.String()))
	require.NoError(t, err)

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	require.Equal(t, ha, hb)

	b.NominalInterestRate = NewDecimal(1)
	hc, err := b.Hash()
	require.NoError(t, err)
	require.NotEqual(t, ha, hc)
}

func TestDecodeTerms(t *testing.T) {
	a := samplePAM(t)
	a.NotionalPrincipal = NewDecimal(-5)

	data, err := a.Encode()
	require.NoError(t, err)
	b, err := DecodeTerms(data)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestParseTermsRejectsUnknownField(t *testing.T) {
	_, err := ParseTerms(bytes.NewReader([]byte(`{"notionalPrincipal": "1", "foo": 1}`)))
	require.ErrorIs(t, err, ErrMalformedTerms)

	_, err = ParseOverrides(bytes.NewReader([]byte(`{"engine": "0x00"}`)))
	require.ErrorIs(t, err, ErrMalformedTerms)

	o, err := ParseOverrides(bytes.NewReader([]byte(`{"nominalInterestRate": "3530000000000000000"}`)))
	require.NoError(t, err)
	require.Equal(t, "3530000000000000000", o.NominalInterestRate.String())
	require.Nil(t, o.NotionalPrincipal)
}

func TestDecimalRejectsInt256Overflow(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))

	_, err := ParseDecimal(max.String())
	require.NoError(t, err)
	_, err = ParseDecimal(min.String())
	require.NoError(t, err)

	_, err = ParseDecimal(new(big.Int).Add(max, big.NewInt(1)).String())
	require.ErrorIs(t, err, ErrMalformedTerms)
	_, err = ParseDecimal(new(big.Int).Sub(min, big.NewInt(1)).String())
	require.ErrorIs(t, err, ErrMalformedTerms)

	var d Decimal
	err = json.Unmarshal([]byte(`"`+new(big.Int).Lsh(big.NewInt(1), 256).String()+`"`), &d)
	require.ErrorIs(t, err, ErrMalformedTerms)
}

func TestHashRejectsWrappedDecimal(t *testing.T) {
	ext := sampleExtended(t)
	custom, err := DeriveCustom(Overrides{ContractDealDate: ptr(Timestamp(1700000000))}, ext)
	require.NoError(t, err)

	// x and x + 2^256 pack to the same int256 word
	wrapped := new(big.Int).Add(custom.OverwrittenTerms.NotionalPrincipal.Big(), new(big.Int).Lsh(big.NewInt(1), 256))
	custom.OverwrittenTerms.NotionalPrincipal = NewDecimalFromBig(wrapped)

	_, err = custom.Hash()
	requireFieldError(t, err, "notionalPrincipal")

	_, err = custom.OverwrittenTerms.Hash()
	requireFieldError(t, err, "notionalPrincipal")
}

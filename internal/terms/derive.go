package terms

import (
	"reflect"

	"github.com/ethereum/go-ethereum/common"
)

// DeriveExtended fills the schema fields a template needs and converts the dates to offsets
// from the contract deal date
func DeriveExtended(raw Terms) (*ExtendedTerms, error) {
	t := raw
	fillDefaults(&t)

	if err := Validate(&t); err != nil {
		return nil, err
	}
	if t.NotionalPrincipal.Sign() <= 0 {
		return nil, malformed("notionalPrincipal", "must be positive")
	}

	anchor := uint64(t.ContractDealDate)
	v := reflect.ValueOf(&t).Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Type() != timestampType {
			continue
		}
		switch {
		case anchorFields[termsType.Field(i).Name]:
			f.SetUint(0)
		case f.Uint() != 0:
			f.SetUint(f.Uint() - anchor)
		}
	}

	return &ExtendedTerms{Terms: t}, nil
}

// Resolve re-anchors the template terms at the given date
func (e *ExtendedTerms) Resolve(anchor Timestamp) Terms {
	t := e.Terms
	v := reflect.ValueOf(&t).Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Type() != timestampType {
			continue
		}
		switch {
		case anchorFields[termsType.Field(i).Name]:
			f.SetUint(uint64(anchor))
		case f.Uint() != 0:
			f.SetUint(uint64(anchor) + f.Uint())
		}
	}
	return t
}

// DeriveCustom layers the overrides on top of the template terms anchored at the overridden
// contract deal date. An override wins, every other field is inherited from the template.
// Address overrides must not be the zero address, and the merged currencies must be set.
func DeriveCustom(overrides Overrides, template *ExtendedTerms) (*CustomTerms, error) {
	if template == nil {
		return nil, malformed("terms", "template terms are missing")
	}
	if overrides.ContractDealDate == nil || *overrides.ContractDealDate == 0 {
		return nil, malformed("contractDealDate", "anchor date is required")
	}

	ov := reflect.ValueOf(&overrides).Elem()
	for i := 0; i < ov.NumField(); i++ {
		f := ov.Field(i)
		if f.IsNil() || f.Type().Elem() != addressType {
			continue
		}
		if f.Elem().Interface().(common.Address) == (common.Address{}) {
			return nil, malformed(jsonName(overridesType.Field(i)), "override would zero out the address")
		}
	}

	anchor := *overrides.ContractDealDate
	merged := template.Resolve(anchor)
	mv := reflect.ValueOf(&merged).Elem()

	var bitmap uint64
	for i := 0; i < ov.NumField(); i++ {
		f := ov.Field(i)
		if f.IsNil() {
			continue
		}
		idx := overrideIndex[i]
		mv.Field(idx).Set(f.Elem())
		bitmap |= 1 << uint(idx)
	}

	if merged.Currency == (common.Address{}) {
		return nil, malformed("currency", "is not set by the template nor overridden")
	}
	if merged.SettlementCurrency == (common.Address{}) {
		return nil, malformed("settlementCurrency", "is not set by the template nor overridden")
	}
	if err := Validate(&merged); err != nil {
		return nil, err
	}

	return &CustomTerms{
		AnchorDate:               anchor,
		OverwrittenAttributesMap: bitmap,
		OverwrittenTerms:         merged,
	}, nil
}

// IsOverwritten reports whether the field with the given json name was overridden
func (c *CustomTerms) IsOverwritten(name string) bool {
	for i, n := range FieldNames() {
		if n == name {
			return c.OverwrittenAttributesMap&(1<<uint(i)) != 0
		}
	}
	return false
}

func fillDefaults(t *Terms) {
	if t.StatusDate == 0 {
		t.StatusDate = t.ContractDealDate
	}
	if t.SettlementCurrency == (common.Address{}) {
		t.SettlementCurrency = t.Currency
	}
	if t.RateMultiplier.IsZero() {
		t.RateMultiplier = One
	}

	// cycles without anchor start at the initial exchange
	if t.CycleOfInterestPayment.IsSet && t.CycleAnchorDateOfInterestPayment == 0 {
		t.CycleAnchorDateOfInterestPayment = t.InitialExchangeDate
	}
	if t.CycleOfRateReset.IsSet && t.CycleAnchorDateOfRateReset == 0 {
		t.CycleAnchorDateOfRateReset = t.InitialExchangeDate
	}
	if t.CycleOfScalingIndex.IsSet && t.CycleAnchorDateOfScalingIndex == 0 {
		t.CycleAnchorDateOfScalingIndex = t.InitialExchangeDate
	}
	if t.CycleOfFee.IsSet && t.CycleAnchorDateOfFee == 0 {
		t.CycleAnchorDateOfFee = t.InitialExchangeDate
	}
}

// Resolve returns the absolute order terms
func (c *CustomTerms) Resolve() Terms {
	return c.OverwrittenTerms
}

package terms

import (
	"github.com/ethereum/go-ethereum/common"
)

// Timestamp is a unix time in seconds. In extended terms it holds an offset from the anchor date.
type Timestamp uint64

type ContractType uint8

const (
	ContractTypePAM ContractType = iota
	ContractTypeANN
	ContractTypeNAM
	ContractTypeLAM
)

type Calendar uint8

const (
	CalendarNoCalendar Calendar = iota
	CalendarMondayToFriday
)

type ContractRole uint8

const (
	ContractRoleRPA ContractRole = iota // real position asset, creator lends
	ContractRoleRPL                     // real position liability, creator borrows
)

type DayCountConvention uint8

const (
	DayCountAA DayCountConvention = iota
	DayCountA360
	DayCountA365
	DayCount30E360ISDA
	DayCount30E360
)

type BusinessDayConvention uint8

const (
	BusinessDayNOS BusinessDayConvention = iota
	BusinessDaySCF
	BusinessDaySCMF
	BusinessDayCSF
	BusinessDayCSMF
	BusinessDaySCP
	BusinessDaySCMP
	BusinessDayCSP
	BusinessDayCSMP
)

type PeriodUnit uint8

const (
	PeriodDay PeriodUnit = iota
	PeriodWeek
	PeriodMonth
	PeriodQuarter
	PeriodHalfYear
	PeriodYear
)

// Cycle describes a recurring schedule, e.g. {N: 1, P: PeriodMonth} is monthly
type Cycle struct {
	N     uint64     `json:"n"     validate:"required_if=IsSet true"`
	P     PeriodUnit `json:"p"     validate:"lte=5"`
	S     uint8      `json:"s"     validate:"lte=1"` // stub: 0 long, 1 short
	IsSet bool       `json:"isSet"`
}

// Period is a duration expressed in calendar units, e.g. grace period
type Period struct {
	N     uint64     `json:"n"     validate:"required_if=IsSet true"`
	P     PeriodUnit `json:"p"     validate:"lte=5"`
	IsSet bool       `json:"isSet"`
}

// Terms is the flat term set of a principal at maturity contract. Dates are absolute unix seconds.
// Field order is part of the canonical encoding and of the overwritten attributes bitmap.
type Terms struct {
	ContractType           ContractType          `json:"contractType"           validate:"lte=3"`
	Calendar               Calendar              `json:"calendar"               validate:"lte=1"`
	ContractRole           ContractRole          `json:"contractRole"           validate:"lte=1"`
	DayCountConvention     DayCountConvention    `json:"dayCountConvention"     validate:"lte=4"`
	BusinessDayConvention  BusinessDayConvention `json:"businessDayConvention"  validate:"lte=8"`
	EndOfMonthConvention   uint8                 `json:"endOfMonthConvention"   validate:"lte=1"`
	ScalingEffect          uint8                 `json:"scalingEffect"          validate:"lte=7"`
	PenaltyType            uint8                 `json:"penaltyType"            validate:"lte=3"`
	FeeBasis               uint8                 `json:"feeBasis"               validate:"lte=1"`
	CreditEventTypeCovered uint8                 `json:"creditEventTypeCovered" validate:"lte=2"`

	Currency           common.Address `json:"currency"           validate:"required"`
	SettlementCurrency common.Address `json:"settlementCurrency"`

	ContractDealDate                 Timestamp `json:"contractDealDate"                 validate:"required"`
	StatusDate                       Timestamp `json:"statusDate"                       validate:"omitempty,eqfield=ContractDealDate"`
	InitialExchangeDate              Timestamp `json:"initialExchangeDate"              validate:"required,gtfield=ContractDealDate"`
	MaturityDate                     Timestamp `json:"maturityDate"                     validate:"required,gtfield=InitialExchangeDate"`
	PurchaseDate                     Timestamp `json:"purchaseDate"                     validate:"omitempty,gtfield=ContractDealDate"`
	CapitalizationEndDate            Timestamp `json:"capitalizationEndDate"            validate:"omitempty,gtfield=ContractDealDate"`
	CycleAnchorDateOfInterestPayment Timestamp `json:"cycleAnchorDateOfInterestPayment" validate:"omitempty,gtfield=ContractDealDate"`
	CycleAnchorDateOfRateReset       Timestamp `json:"cycleAnchorDateOfRateReset"       validate:"omitempty,gtfield=ContractDealDate"`
	CycleAnchorDateOfScalingIndex    Timestamp `json:"cycleAnchorDateOfScalingIndex"    validate:"omitempty,gtfield=ContractDealDate"`
	CycleAnchorDateOfFee             Timestamp `json:"cycleAnchorDateOfFee"             validate:"omitempty,gtfield=ContractDealDate"`

	NotionalPrincipal    Decimal `json:"notionalPrincipal"`
	NominalInterestRate  Decimal `json:"nominalInterestRate"`
	AccruedInterest      Decimal `json:"accruedInterest"`
	RateMultiplier       Decimal `json:"rateMultiplier"`
	RateSpread           Decimal `json:"rateSpread"`
	PremiumDiscountAtIED Decimal `json:"premiumDiscountAtIED"`
	PriceAtPurchaseDate  Decimal `json:"priceAtPurchaseDate"`
	FeeRate              Decimal `json:"feeRate"`
	FeeAccrued           Decimal `json:"feeAccrued"`
	DelinquencyRate      Decimal `json:"delinquencyRate"`
	LifeCap              Decimal `json:"lifeCap"`
	LifeFloor            Decimal `json:"lifeFloor"`
	PeriodCap            Decimal `json:"periodCap"`
	PeriodFloor          Decimal `json:"periodFloor"`

	GracePeriod       Period `json:"gracePeriod"`
	DelinquencyPeriod Period `json:"delinquencyPeriod"`

	CycleOfInterestPayment Cycle `json:"cycleOfInterestPayment"`
	CycleOfRateReset       Cycle `json:"cycleOfRateReset"`
	CycleOfScalingIndex    Cycle `json:"cycleOfScalingIndex"`
	CycleOfFee             Cycle `json:"cycleOfFee"`
}

// ExtendedTerms is the template level term set. Every date except the anchor dates
// (contract deal date and status date) is an offset in seconds from the anchor, 0 means unset.
// Anchor dates are always 0, they are supplied by the order.
type ExtendedTerms struct {
	Terms
}

// CustomTerms is the order level term set: the template terms re-anchored at AnchorDate
// with the overrides applied. Bit i of OverwrittenAttributesMap is set when the i-th
// field of Terms was overridden.
type CustomTerms struct {
	AnchorDate               Timestamp `json:"anchorDate"`
	OverwrittenAttributesMap uint64    `json:"overwrittenAttributesMap"`
	OverwrittenTerms         Terms     `json:"overwrittenTerms"`
}

// Overrides holds optional values layered on top of template terms, nil means inherit
type Overrides struct {
	ContractType           *ContractType          `json:"contractType,omitempty"`
	Calendar               *Calendar              `json:"calendar,omitempty"`
	ContractRole           *ContractRole          `json:"contractRole,omitempty"`
	DayCountConvention     *DayCountConvention    `json:"dayCountConvention,omitempty"`
	BusinessDayConvention  *BusinessDayConvention `json:"businessDayConvention,omitempty"`
	EndOfMonthConvention   *uint8                 `json:"endOfMonthConvention,omitempty"`
	ScalingEffect          *uint8                 `json:"scalingEffect,omitempty"`
	PenaltyType            *uint8                 `json:"penaltyType,omitempty"`
	FeeBasis               *uint8                 `json:"feeBasis,omitempty"`
	CreditEventTypeCovered *uint8                 `json:"creditEventTypeCovered,omitempty"`

	Currency           *common.Address `json:"currency,omitempty"`
	SettlementCurrency *common.Address `json:"settlementCurrency,omitempty"`

	ContractDealDate                 *Timestamp `json:"contractDealDate,omitempty"`
	StatusDate                       *Timestamp `json:"statusDate,omitempty"`
	InitialExchangeDate              *Timestamp `json:"initialExchangeDate,omitempty"`
	MaturityDate                     *Timestamp `json:"maturityDate,omitempty"`
	PurchaseDate                     *Timestamp `json:"purchaseDate,omitempty"`
	CapitalizationEndDate            *Timestamp `json:"capitalizationEndDate,omitempty"`
	CycleAnchorDateOfInterestPayment *Timestamp `json:"cycleAnchorDateOfInterestPayment,omitempty"`
	CycleAnchorDateOfRateReset       *Timestamp `json:"cycleAnchorDateOfRateReset,omitempty"`
	CycleAnchorDateOfScalingIndex    *Timestamp `json:"cycleAnchorDateOfScalingIndex,omitempty"`
	CycleAnchorDateOfFee             *Timestamp `json:"cycleAnchorDateOfFee,omitempty"`

	NotionalPrincipal    *Decimal `json:"notionalPrincipal,omitempty"`
	NominalInterestRate  *Decimal `json:"nominalInterestRate,omitempty"`
	AccruedInterest      *Decimal `json:"accruedInterest,omitempty"`
	RateMultiplier       *Decimal `json:"rateMultiplier,omitempty"`
	RateSpread           *Decimal `json:"rateSpread,omitempty"`
	PremiumDiscountAtIED *Decimal `json:"premiumDiscountAtIED,omitempty"`
	PriceAtPurchaseDate  *Decimal `json:"priceAtPurchaseDate,omitempty"`
	FeeRate              *Decimal `json:"feeRate,omitempty"`
	FeeAccrued           *Decimal `json:"feeAccrued,omitempty"`
	DelinquencyRate      *Decimal `json:"delinquencyRate,omitempty"`
	LifeCap              *Decimal `json:"lifeCap,omitempty"`
	LifeFloor            *Decimal `json:"lifeFloor,omitempty"`
	PeriodCap            *Decimal `json:"periodCap,omitempty"`
	PeriodFloor          *Decimal `json:"periodFloor,omitempty"`

	GracePeriod       *Period `json:"gracePeriod,omitempty"`
	DelinquencyPeriod *Period `json:"delinquencyPeriod,omitempty"`

	CycleOfInterestPayment *Cycle `json:"cycleOfInterestPayment,omitempty"`
	CycleOfRateReset       *Cycle `json:"cycleOfRateReset,omitempty"`
	CycleOfScalingIndex    *Cycle `json:"cycleOfScalingIndex,omitempty"`
	CycleOfFee             *Cycle `json:"cycleOfFee,omitempty"`
}

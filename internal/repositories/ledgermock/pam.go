package ledgermock

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/engine"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"golang.org/x/exp/slices"
)

const maxCycleEvents = 1000

// PAMEngine is an in-process schedule oracle for principal at maturity contracts.
// It knows initial exchange, interest payment cycles and maturity, nothing else.
type PAMEngine struct{}

func NewPAMEngine() *PAMEngine {
	return &PAMEngine{}
}

func (e *PAMEngine) ComputeSchedule(ctx context.Context, t terms.Terms) ([]engine.ScheduleEvent, error) {
	if t.ContractType != terms.ContractTypePAM {
		return nil, fmt.Errorf("unsupported contract type %d", t.ContractType)
	}
	if t.MaturityDate == 0 {
		return nil, fmt.Errorf("maturity date is not set")
	}

	var schedule []engine.ScheduleEvent
	if t.InitialExchangeDate != 0 {
		schedule = append(schedule, engine.ScheduleEvent{Type: engine.EventIED, ScheduleTime: t.InitialExchangeDate})
	}

	if t.CycleOfInterestPayment.IsSet {
		anchor := t.CycleAnchorDateOfInterestPayment
		if anchor == 0 {
			anchor = t.InitialExchangeDate
		}
		for i := 0; ; i++ {
			if i == maxCycleEvents {
				return nil, fmt.Errorf("interest payment cycle produces more than %d events", maxCycleEvents)
			}
			at := addCycle(anchor, t.CycleOfInterestPayment, i)
			if at >= t.MaturityDate {
				break
			}
			schedule = append(schedule, engine.ScheduleEvent{Type: engine.EventIP, ScheduleTime: at})
		}
		schedule = append(schedule, engine.ScheduleEvent{Type: engine.EventIP, ScheduleTime: t.MaturityDate})
	}

	schedule = append(schedule, engine.ScheduleEvent{Type: engine.EventMD, ScheduleTime: t.MaturityDate})

	slices.SortStableFunc(schedule, func(a, b engine.ScheduleEvent) bool {
		if a.ScheduleTime != b.ScheduleTime {
			return a.ScheduleTime < b.ScheduleTime
		}
		return a.Type < b.Type
	})
	return schedule, nil
}

func addCycle(anchor terms.Timestamp, c terms.Cycle, times int) terms.Timestamp {
	n := int(c.N) * times
	at := time.Unix(int64(anchor), 0).UTC()
	switch c.P {
	case terms.PeriodDay:
		at = at.AddDate(0, 0, n)
	case terms.PeriodWeek:
		at = at.AddDate(0, 0, 7*n)
	case terms.PeriodMonth:
		at = at.AddDate(0, n, 0)
	case terms.PeriodQuarter:
		at = at.AddDate(0, 3*n, 0)
	case terms.PeriodHalfYear:
		at = at.AddDate(0, 6*n, 0)
	case terms.PeriodYear:
		at = at.AddDate(n, 0, 0)
	}
	return terms.Timestamp(at.Unix())
}

// payoff is the amount due at the event, prev is the time of the previous interest accrual
func payoff(t terms.Terms, ev engine.ScheduleEvent, prev terms.Timestamp) *big.Int {
	notional := t.NotionalPrincipal.Big()
	switch ev.Type {
	case engine.EventIED, engine.EventMD:
		return notional
	case engine.EventIP:
		if ev.ScheduleTime <= prev {
			return new(big.Int)
		}
		basis := int64(365 * 24 * 3600)
		if t.DayCountConvention == terms.DayCountA360 || t.DayCountConvention == terms.DayCount30E360 || t.DayCountConvention == terms.DayCount30E360ISDA {
			basis = 360 * 24 * 3600
		}
		amount := new(big.Int).Mul(notional, t.NominalInterestRate.Big())
		amount.Mul(amount, big.NewInt(int64(ev.ScheduleTime-prev)))
		amount.Quo(amount, terms.One.Big())
		return amount.Quo(amount, big.NewInt(basis))
	}
	return new(big.Int)
}

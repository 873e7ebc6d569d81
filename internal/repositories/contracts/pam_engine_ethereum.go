package contracts

import (
	"context"
	"math/big"

	"github.com/Lumerin-protocol/actus-originator/internal/engine"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/exp/slices"
)

// PAMEngineEthereum asks the on-chain PAM engine for schedules
type PAMEngineEthereum struct {
	engine *bind.BoundContract
}

func NewPAMEngineEthereum(addr common.Address, client EthereumClient) *PAMEngineEthereum {
	return &PAMEngineEthereum{
		engine: bind.NewBoundContract(addr, PAMEngineABI, client, client, client),
	}
}

var cyclicEvents = []engine.EventType{engine.EventIP, engine.EventIPCI, engine.EventPR, engine.EventRR, engine.EventFP, engine.EventSC}

// ComputeSchedule merges the non cyclic segment with the cyclic segments over the whole contract life
func (e *PAMEngineEthereum) ComputeSchedule(ctx context.Context, t terms.Terms) ([]engine.ScheduleEvent, error) {
	encoded, err := t.Encode()
	if err != nil {
		return nil, err
	}
	start := new(big.Int).SetUint64(uint64(t.ContractDealDate))
	end := new(big.Int).SetUint64(uint64(t.MaturityDate))

	words, err := callOne[[][32]byte](ctx, e.engine, "computeNonCyclicScheduleSegment", encoded, start, end)
	if err != nil {
		return nil, err
	}

	for _, ev := range cyclicEvents {
		cyclic, err := callOne[[][32]byte](ctx, e.engine, "computeCyclicScheduleSegment", encoded, start, end, uint8(ev))
		if err != nil {
			return nil, err
		}
		words = append(words, cyclic...)
	}

	// the engine pads segments with empty words
	nonEmpty := words[:0]
	for _, w := range words {
		if w != ([32]byte{}) {
			nonEmpty = append(nonEmpty, w)
		}
	}

	schedule := engine.DecodeSchedule(nonEmpty)
	slices.SortStableFunc(schedule, func(a, b engine.ScheduleEvent) bool {
		return a.ScheduleTime < b.ScheduleTime
	})
	return schedule, nil
}

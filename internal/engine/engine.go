package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/common"
)

// Engine computes contract schedules from terms. It is an oracle, the schedule math lives on its side.
type Engine interface {
	ComputeSchedule(ctx context.Context, t terms.Terms) ([]ScheduleEvent, error)
}

type EventType uint8

const (
	EventNE EventType = iota
	EventIED
	EventFP
	EventPR
	EventPD
	EventPRF
	EventPY
	EventPP
	EventIP
	EventIPCI
	EventCE
	EventRRF
	EventRR
	EventDV
	EventPRD
	EventMR
	EventTD
	EventSC
	EventIPCB
	EventMD
	EventXD
	EventSTD
	EventAD
)

var eventNames = []string{
	"NE", "IED", "FP", "PR", "PD", "PRF", "PY", "PP", "IP", "IPCI", "CE", "RRF",
	"RR", "DV", "PRD", "MR", "TD", "SC", "IPCB", "MD", "XD", "STD", "AD",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return fmt.Sprintf("EventType(%d)", uint8(t))
}

// ScheduleEvent is a scheduled contract event. On chain it is packed into a single word:
// event type in the most significant byte, schedule time in the low bytes.
type ScheduleEvent struct {
	Type         EventType
	ScheduleTime terms.Timestamp
}

func (e ScheduleEvent) Encode() common.Hash {
	var word common.Hash
	word[0] = byte(e.Type)
	new(big.Int).SetUint64(uint64(e.ScheduleTime)).FillBytes(word[24:])
	return word
}

func DecodeEvent(word common.Hash) ScheduleEvent {
	return ScheduleEvent{
		Type:         EventType(word[0]),
		ScheduleTime: terms.Timestamp(new(big.Int).SetBytes(word[24:]).Uint64()),
	}
}

// Shift moves the event by the anchor date, used to turn a template schedule into an asset schedule
func (e ScheduleEvent) Shift(anchor terms.Timestamp) ScheduleEvent {
	return ScheduleEvent{Type: e.Type, ScheduleTime: e.ScheduleTime + anchor}
}

func (e ScheduleEvent) String() string {
	return fmt.Sprintf("%s@%d", e.Type, e.ScheduleTime)
}

func EncodeSchedule(events []ScheduleEvent) [][32]byte {
	words := make([][32]byte, len(events))
	for i, e := range events {
		words[i] = e.Encode()
	}
	return words
}

func DecodeSchedule(words [][32]byte) []ScheduleEvent {
	events := make([]ScheduleEvent, len(words))
	for i, w := range words {
		events[i] = DecodeEvent(w)
	}
	return events
}

// Obligation is the next scheduled payment of an asset. Payer has to allow the asset actor
// to move Amount of Token before the asset can progress.
type Obligation struct {
	Event  ScheduleEvent
	Amount *big.Int
	Token  common.Address
	Payer  common.Address
	Payee  common.Address
}

// Same reports whether both obligations refer to the same scheduled event
func (o *Obligation) Same(other *Obligation) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.Event == other.Event
}

func (o *Obligation) String() string {
	return fmt.Sprintf("%s amount %s token %s payer %s", o.Event, o.Amount, o.Token.Hex(), o.Payer.Hex())
}

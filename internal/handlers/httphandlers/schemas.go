package httphandlers

import (
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/terms"
)

type ConfigResponse struct {
	Version string
	Config  interface{}
}

type VerifyResponse struct {
	TermsHash  string
	AssetID    string
	TemplateID string
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type TemplateResponse struct {
	ID       string
	Terms    terms.Terms
	Schedule []ScheduleItem
}

type ScheduleItem struct {
	Type         string
	ScheduleTime uint64
	Word         string
}

type ObligationResponse struct {
	AssetID      string
	Event        string
	ScheduleTime uint64
	DueAt        string
	Amount       string
	Token        string
	Payer        string
	Payee        string
}

type CyclesResponse struct {
	Settled uint64
	Failed  uint64
	Cycles  []Cycle
}

type Cycle struct {
	ID          string
	AssetID     string
	Actor       string
	State       string
	Event       string
	Amount      string
	Payer       string
	AllowanceTx string `json:",omitempty"`
	ProgressTx  string `json:",omitempty"`
	Error       string `json:",omitempty"`
	StartedAt   time.Time
	UpdatedAt   time.Time
}

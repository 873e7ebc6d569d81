package httphandlers

import (
	"net/http"

	"github.com/Lumerin-protocol/actus-originator/internal/servicer"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slices"
)

func (h *HTTPHandler) GetCycles(ctx *gin.Context) {
	settled, failed := h.cycles.Stats()
	res := CyclesResponse{
		Settled: settled,
		Failed:  failed,
		Cycles:  []Cycle{},
	}

	for _, c := range h.cycles.Cycles() {
		res.Cycles = append(res.Cycles, mapCycle(c))
	}

	slices.SortStableFunc(res.Cycles, func(a Cycle, b Cycle) bool {
		return a.StartedAt.Before(b.StartedAt)
	})

	ctx.JSON(http.StatusOK, res)
}

func mapCycle(c servicer.Cycle) Cycle {
	item := Cycle{
		ID:        c.ID.String(),
		AssetID:   c.AssetID.Hex(),
		Actor:     c.Actor.Hex(),
		State:     c.State.String(),
		StartedAt: c.StartedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Obligation != nil {
		item.Event = c.Obligation.Event.String()
		item.Amount = c.Obligation.Amount.String()
		item.Payer = c.Obligation.Payer.Hex()
	}
	if c.Allowance != nil {
		item.AllowanceTx = c.Allowance.TxHash.Hex()
	}
	if c.Progress != nil {
		item.ProgressTx = c.Progress.TxHash.Hex()
	}
	if c.Err != nil {
		item.Error = c.Err.Error()
	}
	return item
}

package httphandlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/repositories/contracts"
	"github.com/gin-gonic/gin"
)

func (h *HTTPHandler) GetNextPayment(ctx *gin.Context) {
	assetID, ok := hashParam(ctx)
	if !ok {
		return
	}

	ob, err := h.obligations.NextObligation(ctx, assetID)
	if errors.Is(err, contracts.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, ErrorResponse{Error: "asset not found", Kind: "NotFound"})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if ob == nil {
		ctx.Status(http.StatusNoContent)
		return
	}

	ctx.JSON(http.StatusOK, ObligationResponse{
		AssetID:      assetID.Hex(),
		Event:        ob.Event.Type.String(),
		ScheduleTime: uint64(ob.Event.ScheduleTime),
		DueAt:        time.Unix(int64(ob.Event.ScheduleTime), 0).UTC().Format(time.RFC3339),
		Amount:       ob.Amount.String(),
		Token:        ob.Token.Hex(),
		Payer:        ob.Payer.Hex(),
		Payee:        ob.Payee.Hex(),
	})
}

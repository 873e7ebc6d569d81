package httphandlers

import (
	"errors"
	"net/http"

	"github.com/Lumerin-protocol/actus-originator/internal/template"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
)

func (h *HTTPHandler) GetTemplate(ctx *gin.Context) {
	templateID, ok := hashParam(ctx)
	if !ok {
		return
	}

	tpl, err := h.templates.Load(ctx, templateID)
	if errors.Is(err, template.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, ErrorResponse{Error: "template not found", Kind: "NotFound"})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	res := TemplateResponse{
		ID:       tpl.ID.Hex(),
		Terms:    tpl.Terms.Terms,
		Schedule: make([]ScheduleItem, len(tpl.Schedule)),
	}
	for i, ev := range tpl.Schedule {
		res.Schedule[i] = ScheduleItem{
			Type:         ev.Type.String(),
			ScheduleTime: uint64(ev.ScheduleTime),
			Word:         ev.Encode().Hex(),
		}
	}
	ctx.JSON(http.StatusOK, res)
}

// hashParam parses the 0x prefixed ID path param, writes 400 and returns false if it is not a hash
func hashParam(ctx *gin.Context) (common.Hash, bool) {
	ID := ctx.Param("ID")
	b, err := hexutil.Decode(ID)
	if err != nil || len(b) != common.HashLength {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "id must be a 32 byte hex string"})
		return common.Hash{}, false
	}
	return common.BytesToHash(b), true
}

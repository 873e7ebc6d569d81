package httphandlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/Lumerin-protocol/actus-originator/internal/order"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/gin-gonic/gin"
)

const maxOrderSize = 1 << 20

func (h *HTTPHandler) VerifyOrder(ctx *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxOrderSize))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	verified, err := h.verifier.Load(data)
	if err != nil {
		status, kind := orderErrorKind(err)
		h.log.Debugf("order rejected: %s", err)
		ctx.JSON(status, ErrorResponse{Error: err.Error(), Kind: kind})
		return
	}

	ctx.JSON(http.StatusOK, VerifyResponse{
		TermsHash:  verified.TermsHash().Hex(),
		AssetID:    verified.AssetID().Hex(),
		TemplateID: verified.Order().TemplateID.Hex(),
	})
}

func orderErrorKind(err error) (int, string) {
	switch {
	case errors.Is(err, order.ErrIncompleteOrder):
		return http.StatusUnprocessableEntity, "IncompleteOrder"
	case errors.Is(err, order.ErrSignatureMismatch):
		return http.StatusUnprocessableEntity, "SignatureMismatch"
	case errors.Is(err, terms.ErrMalformedTerms):
		return http.StatusBadRequest, "MalformedTerms"
	}
	return http.StatusBadRequest, ""
}

package httphandlers

import (
	"github.com/Lumerin-protocol/actus-originator/internal/config"
	"github.com/gin-gonic/gin"
)

func (h *HTTPHandler) GetConfig(ctx *gin.Context) {
	if h.config == nil {
		ctx.JSON(404, gin.H{"error": "config is not available"})
		return
	}
	ctx.JSON(200, ConfigResponse{
		Version: config.BuildVersion,
		Config:  h.config.GetSanitized(),
	})
}

package httphandlers

import (
	"context"
	"net/http/pprof"

	"github.com/Lumerin-protocol/actus-originator/internal/config"
	"github.com/Lumerin-protocol/actus-originator/internal/engine"
	"github.com/Lumerin-protocol/actus-originator/internal/interfaces"
	"github.com/Lumerin-protocol/actus-originator/internal/order"
	"github.com/Lumerin-protocol/actus-originator/internal/servicer"
	"github.com/Lumerin-protocol/actus-originator/internal/template"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

type OrderVerifier interface {
	Load(data []byte) (*order.VerifiedOrder, error)
}

type TemplateLoader interface {
	Load(ctx context.Context, templateID common.Hash) (*template.Template, error)
}

type ObligationReader interface {
	NextObligation(ctx context.Context, assetID common.Hash) (*engine.Obligation, error)
}

type CycleLister interface {
	Cycles() []servicer.Cycle
	Stats() (settled uint64, failed uint64)
}

type HTTPHandler struct {
	verifier    OrderVerifier
	templates   TemplateLoader
	obligations ObligationReader
	cycles      CycleLister
	config      *config.Config
	log         interfaces.ILogger
}

func NewHTTPHandler(verifier OrderVerifier, templates TemplateLoader, obligations ObligationReader, cycles CycleLister, cfg *config.Config, log interfaces.ILogger) *gin.Engine {
	handl := &HTTPHandler{
		verifier:    verifier,
		templates:   templates,
		obligations: obligations,
		cycles:      cycles,
		config:      cfg,
		log:         log,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthcheck", handl.HealthCheck)
	r.GET("/config", handl.GetConfig)
	r.GET("/templates/:ID", handl.GetTemplate)
	r.GET("/assets/:ID/next-payment", handl.GetNextPayment)
	r.GET("/cycles", handl.GetCycles)

	r.POST("/orders/verify", handl.VerifyOrder)

	r.Any("/debug/pprof/*action", gin.WrapF(pprof.Index))

	err := r.SetTrustedProxies(nil)
	if err != nil {
		panic(err)
	}

	return r
}

func (h *HTTPHandler) HealthCheck(ctx *gin.Context) {
	ctx.JSON(200, gin.H{
		"status":  "healthy",
		"version": config.BuildVersion,
	})
}

package controller

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/OpenTollGate/tollgate-captive-portal-site/middleware"
)

// NewRouter wires the portal API routes. CORS is wide open: the captive
// page is served from the gateway while this API listens on its own port.
func NewRouter(sessions *SessionController) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), cors.Default())

	r.POST("/sessions", sessions.CreateSession)
	r.GET("/sessions/:id", sessions.GetSession)
	r.POST("/sessions/:id/offer", sessions.SelectOffer)
	r.POST("/sessions/:id/token", sessions.PreviewToken)
	r.POST("/sessions/:id/purchase", sessions.Purchase)
	r.POST("/sessions/:id/invoice", sessions.RequestInvoice)
	r.POST("/sessions/:id/mint", sessions.MintTokens)
	r.DELETE("/sessions/:id", sessions.CloseSession)

	return r
}

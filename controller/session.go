package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OpenTollGate/tollgate-captive-portal-site/logic"
	"github.com/OpenTollGate/tollgate-captive-portal-site/models"
)

// SessionController handles the local portal API consumed by the rendering
// layer.
type SessionController struct {
	sessions *logic.SessionLogic
}

func NewSessionController(sessions *logic.SessionLogic) *SessionController {
	return &SessionController{sessions: sessions}
}

// CreateSession handles POST /sessions
func (c *SessionController) CreateSession(ctx *gin.Context) {
	s := c.sessions.CreateSession(ctx.Request.Context())
	ctx.JSON(http.StatusOK, s)
}

// GetSession handles GET /sessions/:id
func (c *SessionController) GetSession(ctx *gin.Context) {
	s, err := c.sessions.GetSession(ctx.Param("id"))
	if err != nil {
		renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, s)
}

// SelectOffer handles POST /sessions/:id/offer
func (c *SessionController) SelectOffer(ctx *gin.Context) {
	type Request struct {
		MintURL string `json:"mint_url" binding:"required"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := c.sessions.SelectOffer(ctx.Param("id"), req.MintURL)
	if err != nil {
		renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, s)
}

// PreviewToken handles POST /sessions/:id/token. Hard validation failures
// come back as errors; the soft insufficient-funds state rides inside the
// preview.
func (c *SessionController) PreviewToken(ctx *gin.Context) {
	type Request struct {
		Token string `json:"token"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	preview, err := c.sessions.PreviewToken(ctx.Param("id"), req.Token)
	if err != nil {
		renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, preview)
}

// Purchase handles POST /sessions/:id/purchase
func (c *SessionController) Purchase(ctx *gin.Context) {
	type Request struct {
		Token string `json:"token" binding:"required"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := c.sessions.Purchase(ctx.Request.Context(), ctx.Param("id"), req.Token)
	if err != nil {
		renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, s)
}

// RequestInvoice handles POST /sessions/:id/invoice
func (c *SessionController) RequestInvoice(ctx *gin.Context) {
	type Request struct {
		Amount uint64 `json:"amount" binding:"required"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invoice, err := c.sessions.RequestInvoice(ctx.Request.Context(), ctx.Param("id"), req.Amount)
	if err != nil {
		renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"invoice": invoice})
}

// MintTokens handles POST /sessions/:id/mint. The invoice to pay shows up
// on the session while the call waits for the minted tokens.
func (c *SessionController) MintTokens(ctx *gin.Context) {
	type Request struct {
		Amount uint64 `json:"amount" binding:"required"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokens, err := c.sessions.MintTokens(ctx.Request.Context(), ctx.Param("id"), req.Amount)
	if err != nil {
		renderError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// CloseSession handles DELETE /sessions/:id
func (c *SessionController) CloseSession(ctx *gin.Context) {
	c.sessions.CloseSession(ctx.Param("id"))
	ctx.Status(http.StatusNoContent)
}

// renderError maps portal error codes onto HTTP statuses and returns the
// typed error as the body.
func renderError(ctx *gin.Context, err error) {
	pe, ok := models.AsPortalError(err)
	if !ok {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusUnprocessableEntity
	switch pe.Code {
	case models.CodeSessionNotFound:
		status = http.StatusNotFound
	case models.CodeSubmissionInProgress:
		status = http.StatusConflict
	case models.CodePaymentRejected:
		status = http.StatusPaymentRequired
	case models.CodeGatewayUnreachable, models.CodeServerError,
		models.CodeInvoiceRequestFailed, models.CodeMintingFailed:
		status = http.StatusBadGateway
	}
	ctx.JSON(status, gin.H{"error": pe})
}

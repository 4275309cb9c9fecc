package pkg

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/nbd-wtf/go-nostr"
	"github.com/shopspring/decimal"
)

// KindPricingAnnouncement is the event kind the gateway publishes its
// pricing schedule under.
const KindPricingAnnouncement = 10021

// GatewaySim implements the gateway HTTP contract in-process. It backs the
// -simulate development mode and the integration tests; the Lightning side
// stays a canned stub.
type GatewaySim struct {
	sk       string
	Pubkey   string
	Metric   string
	StepSize string
	Offers   [][]string // price_per_step tag bodies: asset, price, unit, mint, minSteps
	Device   string     // whoami line, e.g. mac=AA:BB:CC:DD:EE:FF
	Invoice  string

	// FailFetches makes the next N announcement fetches return 503, for
	// exercising the portal's retry polling.
	FailFetches int32
	// RejectPayments makes every receipt come back 402, as if the token
	// were already spent.
	RejectPayments bool

	minPrice decimal.Decimal
}

// NewGatewaySim builds a simulator announcing a single milliseconds
// schedule with the given offers. Offers are the price_per_step tag tails.
func NewGatewaySim(metric, stepSize string, offers [][]string) *GatewaySim {
	sk := nostr.GeneratePrivateKey()
	pk, _ := nostr.GetPublicKey(sk)

	minPrice := decimal.Zero
	for _, offer := range offers {
		if len(offer) < 2 {
			continue
		}
		p, err := decimal.NewFromString(offer[1])
		if err != nil {
			continue
		}
		if minPrice.IsZero() || p.LessThan(minPrice) {
			minPrice = p
		}
	}

	return &GatewaySim{
		sk:       sk,
		Pubkey:   pk,
		Metric:   metric,
		StepSize: stepSize,
		Offers:   offers,
		Device:   "mac=AA:BB:CC:DD:EE:FF",
		Invoice:  "lnbc2100n1simulated",
		minPrice: minPrice,
	}
}

// Announcement signs and returns the current pricing announcement event.
func (g *GatewaySim) Announcement() (*nostr.Event, error) {
	tags := nostr.Tags{
		{"metric", g.Metric},
		{"step_size", g.StepSize},
	}
	for _, offer := range g.Offers {
		tags = append(tags, append(nostr.Tag{"price_per_step"}, offer...))
	}

	ev := nostr.Event{
		Kind:      KindPricingAnnouncement,
		CreatedAt: nostr.Now(),
		Content:   "",
		Tags:      tags,
	}
	if err := ev.Sign(g.sk); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Router returns the gin router implementing the gateway contract.
func (g *GatewaySim) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(ctx *gin.Context) {
		if atomic.LoadInt32(&g.FailFetches) > 0 {
			atomic.AddInt32(&g.FailFetches, -1)
			ctx.String(http.StatusServiceUnavailable, "not ready")
			return
		}
		ev, err := g.Announcement()
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, ev)
	})

	r.GET("/whoami", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, g.Device)
	})

	r.POST("/", g.handleReceipt)

	r.POST("/ln-invoice", func(ctx *gin.Context) {
		var req struct {
			Amount uint64 `json:"amount" binding:"required"`
			Device string `json:"device"`
		}
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx.String(http.StatusOK, g.Invoice)
	})

	return r
}

// handleReceipt verifies a payment receipt the way a real gateway would:
// signature must check out and the embedded token must decode to at least
// the cheapest announced price.
func (g *GatewaySim) handleReceipt(ctx *gin.Context) {
	var ev nostr.Event
	if err := ctx.ShouldBindJSON(&ev); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if g.RejectPayments {
		ctx.JSON(http.StatusPaymentRequired, gin.H{"error": "token already spent"})
		return
	}

	if ev.Kind != KindPaymentReceipt {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unexpected kind %d", ev.Kind)})
		return
	}
	if ok, err := ev.CheckSignature(); err != nil || !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "bad signature"})
		return
	}

	paymentTag := ev.Tags.GetFirst([]string{"payment"})
	if paymentTag == nil || len(*paymentTag) < 2 {
		ctx.JSON(http.StatusPaymentRequired, gin.H{"error": "no payment tag"})
		return
	}

	decoded, err := DecodeToken((*paymentTag)[1])
	if err != nil {
		ctx.JSON(http.StatusPaymentRequired, gin.H{"error": "token undecodable"})
		return
	}
	amount := SumProofs(ExtractProofs(decoded))
	if decimal.NewFromInt(int64(amount)).LessThan(g.minPrice) {
		ctx.JSON(http.StatusPaymentRequired, gin.H{"error": "token value below price"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "granted"})
}

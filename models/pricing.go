package models

import (
	"github.com/shopspring/decimal"
)

// Metric is the unit of access being sold by the gateway.
type Metric string

const (
	MetricMilliseconds Metric = "milliseconds"
	MetricBytes        Metric = "bytes"
)

// ValidMetric reports whether s is a recognized metric string.
func ValidMetric(s string) bool {
	return s == string(MetricMilliseconds) || s == string(MetricBytes)
}

// PurchaseLimits bounds how many steps a single transaction may buy.
// Max of zero means unbounded.
type PurchaseLimits struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// AccessOffer is one purchasable option derived from a price_per_step tag.
// Price and MintURL are mandatory; MintURL is the unique key of the offer.
type AccessOffer struct {
	AssetType string          `json:"asset_type"`
	Price     decimal.Decimal `json:"price"`
	Unit      string          `json:"unit"`
	MintURL   string          `json:"mint_url"`
	MinSteps  int64           `json:"min_steps"`
}

// EffectiveRate is the per-step price used for ranking: price / max(minSteps, 1).
func (o AccessOffer) EffectiveRate() decimal.Decimal {
	steps := o.MinSteps
	if steps < 1 {
		steps = 1
	}
	return o.Price.Div(decimal.NewFromInt(steps))
}

// PricingSchedule is the typed view of a pricing announcement's tags,
// rebuilt on every announcement fetch and never persisted.
type PricingSchedule struct {
	Metric   Metric          `json:"metric"`
	StepSize decimal.Decimal `json:"step_size"`
	Limits   PurchaseLimits  `json:"purchase_limits"`
	Offers   []AccessOffer   `json:"offers"`
}

package logic

import (
	"github.com/shopspring/decimal"

	"github.com/OpenTollGate/tollgate-captive-portal-site/i18n"
	"github.com/OpenTollGate/tollgate-captive-portal-site/models"
)

var (
	msPerSecond = decimal.NewFromInt(1000)
	msPerMinute = decimal.NewFromInt(60000)
	msPerHour   = decimal.NewFromInt(3600000)
	kibPerMB    = decimal.NewFromInt(1024)
	kibPerGB    = decimal.NewFromInt(1048576)
)

// Allocator converts payments into human-readable access grants. Unit
// labels come from the injected resolver, never from hardcoded strings.
type Allocator struct {
	resolve i18n.Resolver
}

func NewAllocator(resolve i18n.Resolver) *Allocator {
	return &Allocator{resolve: resolve}
}

// Calculate computes the access a payment of paid (in the offer's unit)
// buys: stepSize * (paid / price) * max(minSteps, 1) raw units, then
// formatted into the largest readable unit. A zero payment or missing
// offer yields nil; callers suppress the display.
func (a *Allocator) Calculate(paid decimal.Decimal, offer *models.AccessOffer, schedule *models.PricingSchedule) *models.Allocation {
	if offer == nil || schedule == nil || !paid.IsPositive() || !offer.Price.IsPositive() {
		return nil
	}

	steps := offer.MinSteps
	if steps < 1 {
		steps = 1
	}
	raw := schedule.StepSize.Mul(paid.Div(offer.Price)).Mul(decimal.NewFromInt(steps))

	switch schedule.Metric {
	case models.MetricMilliseconds:
		return a.formatDuration(raw)
	case models.MetricBytes:
		return a.formatDataSize(raw)
	default:
		return nil
	}
}

// formatDuration renders raw milliseconds as seconds, minutes or hours:
// below a minute whole seconds, below an hour minutes with one decimal,
// otherwise hours with two decimals.
func (a *Allocator) formatDuration(ms decimal.Decimal) *models.Allocation {
	switch {
	case ms.LessThan(msPerMinute):
		return a.allocation(ms.Div(msPerSecond).Round(0), "second")
	case ms.LessThan(msPerHour):
		return a.allocation(ms.Div(msPerMinute).Round(1), "minute")
	default:
		return a.allocation(ms.Div(msPerHour).Round(2), "hour")
	}
}

// formatDataSize renders raw KiB as KiB, MB or GB with 0, 1 and 2 decimals
// respectively.
func (a *Allocator) formatDataSize(kib decimal.Decimal) *models.Allocation {
	switch {
	case kib.LessThan(kibPerMB):
		return &models.Allocation{Value: kib.Round(0).String(), Unit: a.resolve("KiB")}
	case kib.LessThan(kibPerGB):
		return &models.Allocation{Value: kib.Div(kibPerMB).Round(1).String(), Unit: a.resolve("MB")}
	default:
		return &models.Allocation{Value: kib.Div(kibPerGB).Round(2).String(), Unit: a.resolve("GB")}
	}
}

// allocation resolves the singular or plural label for a time unit.
// Decimal's String trims trailing zeros, so whole values render as
// integers.
func (a *Allocator) allocation(value decimal.Decimal, unitKey string) *models.Allocation {
	key := unitKey + "_plural"
	if value.Equal(decimal.NewFromInt(1)) {
		key = unitKey
	}
	return &models.Allocation{Value: value.String(), Unit: a.resolve(key)}
}

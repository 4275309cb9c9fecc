package logic

import (
	"sort"

	"github.com/nbd-wtf/go-nostr"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/OpenTollGate/tollgate-captive-portal-site/models"
)

// Announcement tag names. Tags are the sole source of pricing truth.
const (
	tagMetric         = "metric"
	tagStepSize       = "step_size"
	tagPurchaseLimits = "step_purchase_limits"
	tagPricePerStep   = "price_per_step"
)

var pricingLog = log.WithField("component", "pricing")

// ParseSchedule decodes a pricing announcement's tags into a typed
// schedule. A missing or unrecognized metric or a non-numeric step size is
// a hard error; malformed price_per_step entries are dropped, not errored,
// because partial pricing data is still sellable.
func ParseSchedule(evt *nostr.Event, resolve func(string) string) (*models.PricingSchedule, error) {
	if evt == nil {
		return nil, models.NewError(resolve, models.CodeMalformedAnnouncement)
	}

	schedule := &models.PricingSchedule{
		Limits: models.PurchaseLimits{Min: 1, Max: 0},
	}

	var metricSeen, stepSeen bool
	for _, tag := range evt.Tags {
		if len(tag) < 2 {
			continue
		}
		switch tag[0] {
		case tagMetric:
			if !metricSeen {
				schedule.Metric = models.Metric(tag[1])
				metricSeen = true
			}
		case tagStepSize:
			if stepSeen {
				continue
			}
			size, err := decimal.NewFromString(tag[1])
			if err != nil || !size.IsPositive() {
				continue
			}
			schedule.StepSize = size
			stepSeen = true
		case tagPurchaseLimits:
			if len(tag) < 3 {
				continue
			}
			min, errMin := cast.ToInt64E(tag[1])
			max, errMax := cast.ToInt64E(tag[2])
			if errMin != nil || errMax != nil || min < 0 || max < 0 {
				continue
			}
			schedule.Limits = models.PurchaseLimits{Min: min, Max: max}
		case tagPricePerStep:
			if offer, ok := parseOffer(tag); ok {
				schedule.Offers = appendOffer(schedule.Offers, offer)
			}
		}
	}

	if !metricSeen || !stepSeen || !models.ValidMetric(string(schedule.Metric)) {
		return nil, models.NewError(resolve, models.CodeMalformedAnnouncement)
	}

	schedule.Offers = RankOffers(schedule.Offers)
	return schedule, nil
}

// parseOffer decodes one positional price_per_step tag:
// [tag, assetType, price, unit, mintUrl, minSteps]. Entries with an
// unsupported asset, a non-positive price or an empty mint URL are
// rejected; unit defaults to sat and minSteps to zero.
func parseOffer(tag nostr.Tag) (models.AccessOffer, bool) {
	if len(tag) < 5 {
		return models.AccessOffer{}, false
	}

	offer := models.AccessOffer{
		AssetType: tag[1],
		Unit:      "sat",
		MintURL:   tag[4],
	}
	if offer.AssetType != "cashu" || offer.MintURL == "" {
		pricingLog.Debugf("dropping offer with asset %q mint %q", offer.AssetType, offer.MintURL)
		return models.AccessOffer{}, false
	}

	price, err := decimal.NewFromString(tag[2])
	if err != nil || !price.IsPositive() {
		pricingLog.Debugf("dropping offer from %s with price %q", offer.MintURL, tag[2])
		return models.AccessOffer{}, false
	}
	offer.Price = price

	if tag[3] != "" {
		offer.Unit = tag[3]
	}
	if len(tag) >= 6 {
		if steps, err := cast.ToInt64E(tag[5]); err == nil && steps >= 0 {
			offer.MinSteps = steps
		}
	}

	return offer, true
}

// appendOffer enforces the set invariants: the mint URL is unique (first
// occurrence wins) and the first accepted offer pins the unit, so ranking
// never compares prices across currencies.
func appendOffer(offers []models.AccessOffer, offer models.AccessOffer) []models.AccessOffer {
	if len(offers) > 0 && offers[0].Unit != offer.Unit {
		pricingLog.Warnf("dropping offer from %s: unit %q does not match announced unit %q",
			offer.MintURL, offer.Unit, offers[0].Unit)
		return offers
	}
	for _, existing := range offers {
		if existing.MintURL == offer.MintURL {
			return offers
		}
	}
	return append(offers, offer)
}

// RankOffers orders offers by effective per-step price, cheapest first.
// The sort is stable, so equally priced offers keep their announcement
// order.
func RankOffers(offers []models.AccessOffer) []models.AccessOffer {
	ranked := make([]models.AccessOffer, len(offers))
	copy(ranked, offers)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].EffectiveRate().LessThan(ranked[j].EffectiveRate())
	})
	return ranked
}

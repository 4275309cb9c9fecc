package logic

import (
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/OpenTollGate/tollgate-captive-portal-site/i18n"
	"github.com/OpenTollGate/tollgate-captive-portal-site/models"
	"github.com/OpenTollGate/tollgate-captive-portal-site/pkg"
)

// TokenValidator checks Cashu tokens offered as payment.
type TokenValidator struct {
	resolve i18n.Resolver
	log     *log.Entry
}

func NewTokenValidator(resolve i18n.Resolver) *TokenValidator {
	return &TokenValidator{
		resolve: resolve,
		log:     log.WithField("component", "token_validator"),
	}
}

// Validate runs the token through the validation ladder: present, cashu
// prefix, decodable, carries proofs. A decodable token worth less than the
// offer's price is a soft failure: the value is returned alongside the
// insufficient-funds error so callers can still display it.
func (v *TokenValidator) Validate(raw string, offer *models.AccessOffer) (*models.TokenValue, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, models.NewError(v.resolve, models.CodeTokenEmpty)
	}

	if !strings.HasPrefix(raw, pkg.TokenPrefix) {
		return nil, models.NewError(v.resolve, models.CodeTokenBadPrefix)
	}

	decoded, err := pkg.DecodeToken(raw)
	if err != nil {
		v.log.Debugf("token decode failed: %v", err)
		return nil, models.NewError(v.resolve, models.CodeTokenDecodeFailed)
	}

	proofs := pkg.ExtractProofs(decoded)
	if len(proofs) == 0 {
		// A token with no extractable proofs is worthless, which is an
		// error rather than a zero-value success.
		return nil, models.NewError(v.resolve, models.CodeTokenNoValue)
	}

	// TODO: reject tokens whose unit does not match the offer unit once
	// mints report the unit consistently.
	value := &models.TokenValue{
		Amount:     pkg.SumProofs(proofs),
		ProofCount: len(proofs),
		Unit:       "sat",
	}

	if offer != nil && decimal.NewFromInt(int64(value.Amount)).LessThan(offer.Price) {
		return value, models.NewError(v.resolve, models.CodeInsufficientFunds)
	}

	return value, nil
}

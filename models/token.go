package models

// TokenValue is the redeemable value extracted from a decoded Cashu token.
// Amount is only meaningful when ProofCount is greater than zero.
type TokenValue struct {
	Amount     uint64 `json:"amount"`
	ProofCount int    `json:"proof_count"`
	Unit       string `json:"unit"`
}

// TokenPreview is the result of validating a token against the selected
// offer before purchase. Warning carries the soft insufficient-funds state:
// the token is decodable and its value is still exposed for display.
type TokenPreview struct {
	Value      *TokenValue  `json:"value,omitempty"`
	Allocation *Allocation  `json:"allocation,omitempty"`
	Warning    *PortalError `json:"warning,omitempty"`
}

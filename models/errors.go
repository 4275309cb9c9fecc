package models

// Code identifies a portal error condition. Codes are stable wire values;
// the label and message are localized at creation time.
type Code string

const (
	CodeGatewayUnreachable    Code = "gateway_unreachable"
	CodeMalformedAnnouncement Code = "announcement_missing_fields"
	CodeNoOffersAvailable     Code = "no_offers_available"
	CodeTokenEmpty            Code = "token_empty"
	CodeTokenBadPrefix        Code = "token_bad_prefix"
	CodeTokenDecodeFailed     Code = "token_decode_failed"
	CodeTokenNoValue          Code = "token_no_value"
	CodeInsufficientFunds     Code = "token_insufficient_funds"
	CodePaymentRejected       Code = "payment_rejected"
	CodeServerError           Code = "server_error"
	CodeSubmissionInProgress  Code = "submission_in_progress"
	CodeSessionNotFound       Code = "session_not_found"
	CodeInvoiceRequestFailed  Code = "invoice_request_failed"
	CodeMintingFailed         Code = "minting_failed"
)

// PortalError is the single tagged error shape used across the portal.
// Components return it as a plain error; only controllers render it.
type PortalError struct {
	Code    Code   `json:"code"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

func (e *PortalError) Error() string {
	return string(e.Code) + ": " + e.Label
}

// NewError builds a PortalError, resolving its label and message through
// the supplied label resolver.
func NewError(resolve func(string) string, code Code) *PortalError {
	return &PortalError{
		Code:    code,
		Label:   resolve(string(code) + "_label"),
		Message: resolve(string(code) + "_message"),
	}
}

// AsPortalError extracts a *PortalError from err, if it carries one.
func AsPortalError(err error) (*PortalError, bool) {
	if err == nil {
		return nil, false
	}
	pe, ok := err.(*PortalError)
	return pe, ok
}

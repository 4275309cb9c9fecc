package i18n

// Resolver maps a label key to a localized string. Components receive a
// Resolver instead of reaching into a global language state, so tests can
// inject a fake catalog.
type Resolver func(key string) string

// English returns a Resolver backed by the built-in English catalog.
// Unknown keys resolve to the key itself.
func English() Resolver {
	return func(key string) string {
		if v, ok := english[key]; ok {
			return v
		}
		return key
	}
}

var english = map[string]string{
	// units
	"second":        "second",
	"second_plural": "seconds",
	"minute":        "minute",
	"minute_plural": "minutes",
	"hour":          "hour",
	"hour_plural":   "hours",
	"KiB":           "KiB",
	"MB":            "MB",
	"GB":            "GB",
	"sat":           "sat",
	"sat_plural":    "sats",

	// gateway
	"gateway_unreachable_label":           "Could not reach the gateway",
	"gateway_unreachable_message":         "The gateway could not be contacted. Contact the network administrator or try again later.",
	"announcement_missing_fields_label":   "Invalid pricing announcement",
	"announcement_missing_fields_message": "The gateway published a pricing announcement this portal cannot understand.",
	"no_offers_available_label":           "No payment options available",
	"no_offers_available_message":         "The gateway did not announce any usable payment options.",

	// token validation
	"token_empty_label":                "No token provided",
	"token_empty_message":              "Paste or scan a Cashu token to continue.",
	"token_bad_prefix_label":           "Not a Cashu token",
	"token_bad_prefix_message":         "Cashu tokens start with \"cashu\". Check the pasted value.",
	"token_decode_failed_label":        "Token could not be decoded",
	"token_decode_failed_message":      "The token looks like a Cashu token but could not be decoded.",
	"token_no_value_label":             "Token carries no value",
	"token_no_value_message":           "The token decoded but contains no redeemable proofs.",
	"token_insufficient_funds_label":   "Token value too low",
	"token_insufficient_funds_message": "The token is worth less than the selected option's price.",

	// submission
	"payment_rejected_label":         "Payment rejected",
	"payment_rejected_message":       "The gateway did not accept the token. It may already be spent or from an unsupported mint.",
	"server_error_label":             "Gateway error",
	"server_error_message":           "The gateway failed to process the payment. Try again.",
	"submission_in_progress_label":   "Payment already in progress",
	"submission_in_progress_message": "A payment for this session is already being processed.",
	"invoice_request_failed_label":   "Invoice request failed",
	"invoice_request_failed_message": "The gateway could not produce a Lightning invoice. Try again.",
	"minting_failed_label":           "Minting failed",
	"minting_failed_message":         "Tokens could not be minted through the gateway's mint proxy. Try again.",

	// sessions
	"session_not_found_label":   "Session not found",
	"session_not_found_message": "The portal session expired or was closed. Reload the page.",

	// success
	"access_granted_title":    "Access granted",
	"access_granted_subtitle": "You purchased %s of access.",
}

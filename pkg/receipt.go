package pkg

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"

	"github.com/OpenTollGate/tollgate-captive-portal-site/models"
)

// KindPaymentReceipt is the event kind the gateway expects for payments.
const KindPaymentReceipt = 21000

// BuildReceipt assembles and signs a payment receipt event. A fresh
// keypair is generated on every call and discarded afterwards, so receipts
// from the same device are unlinkable.
func BuildReceipt(gatewayPubkey string, device models.DeviceInfo, token string) (*nostr.Event, error) {
	sk := nostr.GeneratePrivateKey()
	if sk == "" {
		return nil, fmt.Errorf("could not generate signing key")
	}

	ev := nostr.Event{
		Kind:      KindPaymentReceipt,
		CreatedAt: nostr.Now(),
		Content:   "",
		Tags: nostr.Tags{
			{"p", gatewayPubkey},
			{"device-identifier", device.Type, device.Value},
			{"payment", token},
		},
	}

	// Sign fills in pubkey, id and signature over the canonical
	// serialization, matching what the gateway verifies.
	if err := ev.Sign(sk); err != nil {
		return nil, fmt.Errorf("sign receipt: %w", err)
	}

	return &ev, nil
}

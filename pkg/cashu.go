package pkg

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cast"
)

// TokenPrefix starts every Cashu token serialization.
const TokenPrefix = "cashu"

// Proof is a single redeemable Cashu proof. Only the amount matters to the
// portal; the remaining fields are carried through untouched.
type Proof struct {
	Amount uint64 `json:"amount"`
	ID     string `json:"id,omitempty"`
	Secret string `json:"secret,omitempty"`
	C      string `json:"C,omitempty"`
}

// tokenV4 is the CBOR wire shape of a cashuB token (NUT-00 short keys).
type tokenV4 struct {
	Mint    string         `cbor:"m"`
	Unit    string         `cbor:"u"`
	Memo    string         `cbor:"d,omitempty"`
	Entries []tokenV4Entry `cbor:"t"`
}

type tokenV4Entry struct {
	KeysetID []byte         `cbor:"i"`
	Proofs   []tokenV4Proof `cbor:"p"`
}

type tokenV4Proof struct {
	Amount    uint64 `cbor:"a"`
	Secret    string `cbor:"s"`
	Signature []byte `cbor:"c"`
}

// DecodeToken decodes a serialized Cashu token into its generic container
// form. Both the base64 JSON (cashuA) and base64 CBOR (cashuB) framings are
// supported; the CBOR form is normalized into the same container shape so
// proof extraction treats every generation of token alike.
func DecodeToken(raw string) (map[string]interface{}, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, TokenPrefix) || len(raw) < len(TokenPrefix)+2 {
		return nil, fmt.Errorf("not a cashu token")
	}

	version := raw[len(TokenPrefix)]
	payload, err := decodeBase64(raw[len(TokenPrefix)+1:])
	if err != nil {
		return nil, fmt.Errorf("token payload is not base64: %w", err)
	}

	switch version {
	case 'B':
		var t tokenV4
		if err := cbor.Unmarshal(payload, &t); err != nil {
			return nil, fmt.Errorf("cbor token decode: %w", err)
		}
		return t.container(), nil
	default:
		// cashuA, plus any older serialization that carried plain JSON.
		var container map[string]interface{}
		if err := json.Unmarshal(payload, &container); err != nil {
			return nil, fmt.Errorf("json token decode: %w", err)
		}
		return container, nil
	}
}

// container maps the V4 structure onto the V3-era {token:[{proofs:[...]}]}
// shape used by the extractor.
func (t tokenV4) container() map[string]interface{} {
	entries := make([]interface{}, 0, len(t.Entries))
	for _, e := range t.Entries {
		proofs := make([]interface{}, 0, len(e.Proofs))
		for _, p := range e.Proofs {
			proofs = append(proofs, map[string]interface{}{
				"amount": p.Amount,
				"secret": p.Secret,
			})
		}
		entries = append(entries, map[string]interface{}{"proofs": proofs})
	}
	return map[string]interface{}{
		"token": entries,
		"unit":  t.Unit,
		"mint":  t.Mint,
	}
}

// ExtractProofs pulls every proof out of a decoded token container,
// tolerating the container shapes seen in the wild:
//
//	{token: [{proofs: [...]}]}
//	{token: {proofs: [...]}}
//	{proofs: [...]}
//	{tokens: [{proofs: [...]}]}
//
// Shapes are tried in order and matches accumulate. Malformed entries are
// skipped; extraction never fails, it just finds fewer proofs.
func ExtractProofs(decoded map[string]interface{}) []Proof {
	if decoded == nil {
		return nil
	}

	var proofs []Proof

	switch token := decoded["token"].(type) {
	case []interface{}:
		for _, entry := range token {
			proofs = append(proofs, proofsFromEntry(entry)...)
		}
	case map[string]interface{}:
		proofs = append(proofs, proofsFromEntry(token)...)
	}

	if list, ok := decoded["proofs"].([]interface{}); ok {
		proofs = append(proofs, proofList(list)...)
	}

	if tokens, ok := decoded["tokens"].([]interface{}); ok {
		for _, entry := range tokens {
			proofs = append(proofs, proofsFromEntry(entry)...)
		}
	}

	return proofs
}

// SumProofs adds up the amounts of the given proofs.
func SumProofs(proofs []Proof) uint64 {
	var total uint64
	for _, p := range proofs {
		total += p.Amount
	}
	return total
}

func proofsFromEntry(entry interface{}) []Proof {
	m, ok := entry.(map[string]interface{})
	if !ok {
		return nil
	}
	list, ok := m["proofs"].([]interface{})
	if !ok {
		return nil
	}
	return proofList(list)
}

func proofList(list []interface{}) []Proof {
	var proofs []Proof
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		amount, err := cast.ToUint64E(m["amount"])
		if err != nil {
			continue
		}
		proofs = append(proofs, Proof{
			Amount: amount,
			ID:     cast.ToString(m["id"]),
			Secret: cast.ToString(m["secret"]),
			C:      cast.ToString(m["C"]),
		})
	}
	return proofs
}

// decodeBase64 accepts the padded and unpadded URL-safe and standard
// alphabets; wallets are not consistent about which one they emit.
func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	}
	var err error
	for _, enc := range encodings {
		var out []byte
		if out, err = enc.DecodeString(s); err == nil {
			return out, nil
		}
	}
	return nil, err
}

package logic

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTollGate/tollgate-captive-portal-site/models"
)

func encodeV3(t *testing.T, container map[string]interface{}) string {
	t.Helper()
	b, err := json.Marshal(container)
	require.NoError(t, err)
	return "cashuA" + base64.RawURLEncoding.EncodeToString(b)
}

func proofList(amounts ...uint64) []interface{} {
	proofs := make([]interface{}, 0, len(amounts))
	for _, a := range amounts {
		proofs = append(proofs, map[string]interface{}{"amount": a, "secret": "s", "C": "c"})
	}
	return proofs
}

func TestValidateTokenErrorLadder(t *testing.T) {
	v := NewTokenValidator(fakeResolver)
	o := offer(210, 1, "https://mint-a.example")

	tests := []struct {
		name  string
		token string
		code  models.Code
	}{
		{"empty", "", models.CodeTokenEmpty},
		{"whitespace only", "   ", models.CodeTokenEmpty},
		{"bad prefix", "not-a-cashu-token", models.CodeTokenBadPrefix},
		{"undecodable", "cashuA%%%%", models.CodeTokenDecodeFailed},
		{"no proofs", encodeV3(t, map[string]interface{}{"token": []interface{}{}}), models.CodeTokenNoValue},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			value, err := v.Validate(tc.token, &o)
			assert.Nil(t, value)
			require.Error(t, err)
			pe, ok := models.AsPortalError(err)
			require.True(t, ok)
			assert.Equal(t, tc.code, pe.Code)
		})
	}
}

func TestValidateTokenSumsProofs(t *testing.T) {
	v := NewTokenValidator(fakeResolver)
	o := offer(210, 1, "https://mint-a.example")

	token := encodeV3(t, map[string]interface{}{
		"token": []interface{}{
			map[string]interface{}{"proofs": proofList(128, 64, 32)},
		},
	})

	value, err := v.Validate(token, &o)
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, uint64(224), value.Amount)
	assert.Equal(t, 3, value.ProofCount)
	assert.Equal(t, "sat", value.Unit)
}

func TestValidateTokenInsufficientFundsIsSoft(t *testing.T) {
	v := NewTokenValidator(fakeResolver)
	o := offer(210, 1, "https://mint-a.example")

	token := encodeV3(t, map[string]interface{}{
		"token": []interface{}{
			map[string]interface{}{"proofs": proofList(100)},
		},
	})

	value, err := v.Validate(token, &o)
	require.Error(t, err)
	pe, ok := models.AsPortalError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeInsufficientFunds, pe.Code)
	// The decoded value is still exposed for display.
	require.NotNil(t, value)
	assert.Equal(t, uint64(100), value.Amount)
}

func TestValidateTokenIdempotent(t *testing.T) {
	v := NewTokenValidator(fakeResolver)
	o := offer(210, 1, "https://mint-a.example")

	token := encodeV3(t, map[string]interface{}{
		"token": []interface{}{
			map[string]interface{}{"proofs": proofList(256)},
		},
	})

	first, err1 := v.Validate(token, &o)
	second, err2 := v.Validate(token, &o)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestValidateTokenContainerShapes(t *testing.T) {
	v := NewTokenValidator(fakeResolver)
	o := offer(210, 1, "https://mint-a.example")

	// All four historical container shapes report the same amount.
	shapes := map[string]map[string]interface{}{
		"token array": {
			"token": []interface{}{map[string]interface{}{"proofs": proofList(200, 56)}},
		},
		"token object": {
			"token": map[string]interface{}{"proofs": proofList(200, 56)},
		},
		"bare proofs": {
			"proofs": proofList(200, 56),
		},
		"tokens array": {
			"tokens": []interface{}{map[string]interface{}{"proofs": proofList(200, 56)}},
		},
	}

	for name, container := range shapes {
		t.Run(name, func(t *testing.T) {
			value, err := v.Validate(encodeV3(t, container), &o)
			require.NoError(t, err)
			require.NotNil(t, value)
			assert.Equal(t, uint64(256), value.Amount)
			assert.Equal(t, 2, value.ProofCount)
		})
	}
}

func TestValidateTokenWithoutOfferSkipsFundsCheck(t *testing.T) {
	v := NewTokenValidator(fakeResolver)

	token := encodeV3(t, map[string]interface{}{
		"proofs": proofList(1),
	})

	value, err := v.Validate(token, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), value.Amount)
}

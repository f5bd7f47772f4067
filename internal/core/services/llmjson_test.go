package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

func TestDecodeStrict_PlainObject(t *testing.T) {
	var r normalizeReply
	err := decodeStrict(`{"normalized_term": "Pump", "confidence": 0.9}`, &r)

	require.NoError(t, err)
	require.NotNil(t, r.NormalizedTerm)
	assert.Equal(t, "Pump", *r.NormalizedTerm)
	assert.InDelta(t, 0.9, *r.Confidence, 1e-9)
}

func TestDecodeStrict_FencedObject(t *testing.T) {
	var r normalizeReply
	err := decodeStrict("```json\n{\"normalized_term\": \"Tank\", \"confidence\": 1}\n```", &r)

	require.NoError(t, err)
	assert.Equal(t, "Tank", *r.NormalizedTerm)
}

func TestDecodeStrict_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"prose", `Sure! The answer is Pump.`},
		{"prose around object", `Here: {"normalized_term": "Pump"}`},
		{"unknown key", `{"normalized_term": "Pump", "extra": 1}`},
		{"wrong type", `{"normalized_term": 5}`},
		{"unterminated fence", "```json\n{\"normalized_term\": \"Pump\"}"},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r normalizeReply
			err := decodeStrict(tt.reply, &r)
			assert.ErrorIs(t, err, domain.ErrMalformedOutput)
		})
	}
}

func TestCleanSlot(t *testing.T) {
	assert.Nil(t, cleanSlot(nil))
	assert.Nil(t, cleanSlot(strPtr("")))
	assert.Nil(t, cleanSlot(strPtr(" null ")))
	assert.Nil(t, cleanSlot(strPtr("Unknown")))
	assert.Nil(t, cleanSlot(strPtr("없음")))

	got := cleanSlot(strPtr("  No.1 PE "))
	require.NotNil(t, got)
	assert.Equal(t, "No.1 PE", *got)
}

func TestClamp01(t *testing.T) {
	assert.InDelta(t, 0.0, clamp01(-0.5), 1e-9)
	assert.InDelta(t, 0.4, clamp01(0.4), 1e-9)
	assert.InDelta(t, 1.0, clamp01(7), 1e-9)
}

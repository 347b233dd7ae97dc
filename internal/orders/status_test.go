package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusSubmitted, StatusSyncing, true},
		{StatusSubmitted, StatusSent, false},
		{StatusSyncing, StatusSent, true},
		{StatusSyncing, StatusNeedsReview, true},
		{StatusSyncing, StatusSyncing, false},
		{StatusSent, StatusSyncing, false},
		{StatusNeedsReview, StatusSyncing, true},
		{Status("UNKNOWN"), StatusSyncing, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestDraftFields_IsZero(t *testing.T) {
	assert.True(t, DraftFields{}.IsZero())
	assert.True(t, DraftFields{PreferredColors: []string{}}.IsZero())
	assert.False(t, DraftFields{Agreement: true}.IsZero())
	assert.False(t, DraftFields{PreferredColors: []string{"pink"}}.IsZero())
}

func TestVariant_Valid(t *testing.T) {
	assert.True(t, VariantStandard.Valid())
	assert.True(t, VariantCustom.Valid())
	assert.False(t, Variant("deluxe").Valid())
}

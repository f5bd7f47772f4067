package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoricalRecord_Field(t *testing.T) {
	r := &HistoricalRecord{Location: "RFCC", EquipmentType: "Pump", StatusCode: "누설", Priority: "우선작업"}

	assert.Equal(t, "RFCC", r.Field(CategoryLocation))
	assert.Equal(t, "Pump", r.Field(CategoryEquipmentType))
	assert.Equal(t, "누설", r.Field(CategoryStatusCode))
	assert.Equal(t, "우선작업", r.Field(CategoryPriority))
	assert.Empty(t, r.Field(Category("colour")))
}

func TestRecommendation_Percent(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{1.0, 100},
		{0.9, 90},
		{0.654, 65},
		{0.656, 66},
		{0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Recommendation{Score: tt.score}.Percent())
	}
}

func TestRecommendationBatch_Outcome(t *testing.T) {
	assert.ErrorIs(t, RecommendationBatch{}.Outcome(), ErrNoCandidates)
	assert.ErrorIs(t, RecommendationBatch{TotalCandidates: 40, NeedsIdentifier: true}.Outcome(), ErrTooManyCandidates)
	assert.NoError(t, RecommendationBatch{TotalCandidates: 2, Recommendations: make([]Recommendation, 2)}.Outcome())
}

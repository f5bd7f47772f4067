package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_MissingCritical(t *testing.T) {
	s := &Session{AccumulatedSlots: map[Category]SlotValue{
		CategoryEquipmentType: {Value: "Pump", Confidence: 1},
		CategoryPriority:      {Value: "긴급작업", Confidence: 1},
	}}

	assert.Equal(t, []Category{CategoryLocation, CategoryStatusCode}, s.MissingCritical())
	assert.True(t, s.HasSlots())

	s.AccumulatedSlots[CategoryLocation] = SlotValue{Value: "RFCC"}
	s.AccumulatedSlots[CategoryStatusCode] = SlotValue{Value: "누설"}
	assert.Empty(t, s.MissingCritical())
}

func TestSession_Clone_IsDeep(t *testing.T) {
	s := &Session{
		ID:               "s-1",
		AccumulatedSlots: map[Category]SlotValue{CategoryLocation: {Value: "RFCC"}},
		History:          []Message{{Role: RoleUser, Content: "RFCC"}},
	}

	c := s.Clone()
	c.AccumulatedSlots[CategoryLocation] = SlotValue{Value: "No.1 PE"}
	c.History[0].Content = "changed"

	assert.Equal(t, "RFCC", s.AccumulatedSlots[CategoryLocation].Value)
	assert.Equal(t, "RFCC", s.History[0].Content)
	assert.Equal(t, "s-1", c.ID)
}

func TestSession_IdleSince(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := &Session{LastActivityAt: now.Add(-30 * time.Minute)}

	assert.True(t, s.IdleSince(now, 30*time.Minute))
	assert.False(t, s.IdleSince(now, 31*time.Minute))
}

func TestSessionState_IsValid(t *testing.T) {
	assert.True(t, StateCollectingInfo.IsValid())
	assert.True(t, StateRecommending.IsValid())
	assert.True(t, StateFinalizing.IsValid())
	assert.False(t, SessionState("done").IsValid())
}

package domain

import "time"

// SessionState is the coarse conversation state.
type SessionState string

// Session states.
const (
	// StateCollectingInfo means critical slots are still missing.
	StateCollectingInfo SessionState = "collecting_info"

	// StateRecommending means a usable recommendation set exists.
	StateRecommending SessionState = "recommending"

	// StateFinalizing means the user selected a recommendation.
	StateFinalizing SessionState = "finalizing"
)

// IsValid returns true if the state is recognised.
func (s SessionState) IsValid() bool {
	switch s {
	case StateCollectingInfo, StateRecommending, StateFinalizing:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s SessionState) String() string {
	return string(s)
}

// Message roles kept in session history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session tracks one ongoing multi-turn conversation.
// Sessions are owned by the SessionService; callers receive copies.
type Session struct {
	ID               string                 `json:"id"`
	State            SessionState           `json:"state"`
	AccumulatedSlots map[Category]SlotValue `json:"accumulated_slots"`
	TurnCount        int                    `json:"turn_count"`
	History          []Message              `json:"history,omitempty"`

	// SelectedItemID is the record chosen when the session is finalised.
	SelectedItemID string `json:"selected_item_id,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// HasSlots returns true if at least one slot has been accumulated.
func (s *Session) HasSlots() bool {
	return len(s.AccumulatedSlots) > 0
}

// Slot returns the accumulated value for a category.
func (s *Session) Slot(c Category) (SlotValue, bool) {
	v, ok := s.AccumulatedSlots[c]
	return v, ok
}

// MissingCritical returns the critical categories not yet accumulated.
func (s *Session) MissingCritical() []Category {
	var missing []Category
	for _, c := range CriticalCategories {
		if _, ok := s.AccumulatedSlots[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// SlotValues returns the accumulated slots as a category to value map.
func (s *Session) SlotValues() map[Category]string {
	out := make(map[Category]string, len(s.AccumulatedSlots))
	for c, v := range s.AccumulatedSlots {
		out[c] = v.Value
	}
	return out
}

// IdleSince reports whether the session has been inactive for at least maxIdle.
func (s *Session) IdleSince(now time.Time, maxIdle time.Duration) bool {
	return now.Sub(s.LastActivityAt) >= maxIdle
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.AccumulatedSlots = make(map[Category]SlotValue, len(s.AccumulatedSlots))
	for k, v := range s.AccumulatedSlots {
		c.AccumulatedSlots[k] = v
	}
	if s.History != nil {
		c.History = append([]Message(nil), s.History...)
	}
	return &c
}

// SessionStats summarises the live sessions.
type SessionStats struct {
	Total        int                  `json:"total"`
	ByState      map[SessionState]int `json:"by_state"`
	AverageTurns float64              `json:"average_turns"`
}

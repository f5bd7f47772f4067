package domain

// Composition is the user-facing rendering of a turn.
type Composition struct {
	Message        string
	MissingFields  []Category
	NeedsMoreInput bool
	State          SessionState
}

// TurnResult is the payload returned for one handled turn.
// Any transport must carry at least Message, SessionID,
// Recommendations and MissingFields.
type TurnResult struct {
	Message         string           `json:"message"`
	SessionID       string           `json:"session_id"`
	State           SessionState     `json:"state"`
	Recommendations []Recommendation `json:"recommendations"`
	MissingFields   []Category       `json:"missing_fields"`
	NeedsMoreInput  bool             `json:"needs_more_input"`
	MoreAvailable   bool             `json:"more_available,omitempty"`
	NeedsIdentifier bool             `json:"needs_identifier,omitempty"`
	Parsed          ParsedInput      `json:"parsed"`

	// Record is set when an identifier lookup found a match.
	Record *HistoricalRecord `json:"record,omitempty"`
}

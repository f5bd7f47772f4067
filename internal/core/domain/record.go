package domain

import "time"

// HistoricalRecord is a past work order loaded as reference data.
// Records are read-only to the core.
type HistoricalRecord struct {
	ItemID        string `json:"item_id" yaml:"item_id"`
	Process       string `json:"process" yaml:"process"`
	CostCenter    string `json:"cost_center,omitempty" yaml:"cost_center"`
	Location      string `json:"location" yaml:"location"`
	EquipmentType string `json:"equipment_type" yaml:"equipment_type"`
	StatusCode    string `json:"status_code" yaml:"status_code"`
	Priority      string `json:"priority" yaml:"priority"`
	WorkTitle     string `json:"work_title" yaml:"work_title"`
	WorkDetails   string `json:"work_details" yaml:"work_details"`
}

// Field returns the record value for a slot category.
func (r *HistoricalRecord) Field(c Category) string {
	switch c {
	case CategoryLocation:
		return r.Location
	case CategoryEquipmentType:
		return r.EquipmentType
	case CategoryStatusCode:
		return r.StatusCode
	case CategoryPriority:
		return r.Priority
	default:
		return ""
	}
}

// Recommendation is a scored reference to a historical record.
type Recommendation struct {
	// ItemID refers back to the HistoricalRecord.
	ItemID string `json:"item_id"`

	// Record is a display copy of the referenced record.
	Record HistoricalRecord `json:"record"`

	// Score is the weighted similarity in [0,1].
	Score float64 `json:"score"`
}

// Percent returns the score as a whole percentage.
func (r Recommendation) Percent() int {
	return int(r.Score*100 + 0.5)
}

// RecommendationBatch is the response-shaped output of a recommendation query.
type RecommendationBatch struct {
	// Recommendations is the list to show, sorted by descending score.
	Recommendations []Recommendation `json:"recommendations"`

	// TotalCandidates is the number of records above the noise floor.
	TotalCandidates int `json:"total_candidates"`

	// MoreAvailable is set when only the top of a mid-sized set is shown.
	MoreAvailable bool `json:"more_available"`

	// NeedsIdentifier is set when the set is too large to rank usefully.
	NeedsIdentifier bool `json:"needs_identifier"`
}

// Empty returns true if nothing qualified.
func (b RecommendationBatch) Empty() bool {
	return b.TotalCandidates == 0
}

// Outcome returns ErrNoCandidates or ErrTooManyCandidates when the batch
// shows nothing for that reason, and nil otherwise.
func (b RecommendationBatch) Outcome() error {
	switch {
	case b.Empty():
		return ErrNoCandidates
	case b.NeedsIdentifier:
		return ErrTooManyCandidates
	default:
		return nil
	}
}

// WorkOrder is a finalised work request created from a selected recommendation.
type WorkOrder struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	ItemID        string    `json:"item_id"`
	Location      string    `json:"location"`
	EquipmentType string    `json:"equipment_type"`
	StatusCode    string    `json:"status_code"`
	Priority      string    `json:"priority"`
	WorkTitle     string    `json:"work_title"`
	WorkDetails   string    `json:"work_details"`
	CreatedAt     time.Time `json:"created_at"`
}

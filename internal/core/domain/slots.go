package domain

// Category identifies one of the four extractable slots.
type Category string

// Slot categories.
const (
	CategoryLocation      Category = "location"
	CategoryEquipmentType Category = "equipment_type"
	CategoryStatusCode    Category = "status_code"
	CategoryPriority      Category = "priority"
)

// AllCategories lists every slot category in display order.
var AllCategories = []Category{
	CategoryLocation,
	CategoryEquipmentType,
	CategoryStatusCode,
	CategoryPriority,
}

// CriticalCategories are the slots that must be present before
// a request is considered complete. Priority is optional.
var CriticalCategories = []Category{
	CategoryLocation,
	CategoryEquipmentType,
	CategoryStatusCode,
}

// IsValid returns true if the category is recognised.
func (c Category) IsValid() bool {
	switch c {
	case CategoryLocation, CategoryEquipmentType, CategoryStatusCode, CategoryPriority:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// Label returns the user-facing Korean label for the category.
func (c Category) Label() string {
	switch c {
	case CategoryLocation:
		return "위치"
	case CategoryEquipmentType:
		return "설비유형"
	case CategoryStatusCode:
		return "현상코드"
	case CategoryPriority:
		return "우선순위"
	default:
		return unknownDescription
	}
}

// Scenario classifies the intent of a single turn.
type Scenario string

// Turn scenarios.
const (
	// ScenarioFreeText is a natural-language description of a problem.
	ScenarioFreeText Scenario = "free_text"

	// ScenarioIdentifierLookup is a direct reference to a historical record.
	ScenarioIdentifierLookup Scenario = "identifier_lookup"

	// ScenarioContextContinuation is a short follow-up to an ongoing conversation.
	ScenarioContextContinuation Scenario = "context_continuation"
)

// String returns the string representation.
func (s Scenario) String() string {
	return string(s)
}

// Term is a standard vocabulary entry. Aliases are alternative spellings
// (often the Korean name) that normalise to Value.
type Term struct {
	Value   string
	Aliases []string
}

// NormalizedSlot is a raw phrase mapped onto the standard vocabulary.
// Normalized is a vocabulary member when Matched is true, otherwise it
// equals Original unchanged.
type NormalizedSlot struct {
	Original   string  `json:"original"`
	Normalized string  `json:"normalized"`
	Confidence float64 `json:"confidence"`
	Matched    bool    `json:"matched"`
}

// SlotValue is an accumulated slot value held by a session.
type SlotValue struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// ParsedInput is the result of parsing one user turn.
// It is created fresh every turn and never mutated afterwards.
type ParsedInput struct {
	Scenario      Scenario `json:"scenario"`
	Location      *string  `json:"location"`
	EquipmentType *string  `json:"equipment_type"`
	StatusCode    *string  `json:"status_code"`
	Priority      *string  `json:"priority"`

	// Identifier is set only for ScenarioIdentifierLookup.
	Identifier string `json:"identifier,omitempty"`

	// Confidence is the mean confidence over the slots present.
	Confidence float64 `json:"confidence"`

	// Slots holds normalisation detail for slots extracted this turn.
	Slots map[Category]NormalizedSlot `json:"slots,omitempty"`

	// ExtractionFailed is set when the model could not be parsed after retry.
	ExtractionFailed bool `json:"extraction_failed,omitempty"`
}

// Get returns the slot value for a category, or nil.
func (p *ParsedInput) Get(c Category) *string {
	switch c {
	case CategoryLocation:
		return p.Location
	case CategoryEquipmentType:
		return p.EquipmentType
	case CategoryStatusCode:
		return p.StatusCode
	case CategoryPriority:
		return p.Priority
	default:
		return nil
	}
}

// Set assigns the slot value for a category.
func (p *ParsedInput) Set(c Category, v *string) {
	switch c {
	case CategoryLocation:
		p.Location = v
	case CategoryEquipmentType:
		p.EquipmentType = v
	case CategoryStatusCode:
		p.StatusCode = v
	case CategoryPriority:
		p.Priority = v
	}
}

// Values returns the present slots as a category to value map.
func (p *ParsedInput) Values() map[Category]string {
	out := make(map[Category]string, len(AllCategories))
	for _, c := range AllCategories {
		if v := p.Get(c); v != nil && *v != "" {
			out[c] = *v
		}
	}
	return out
}

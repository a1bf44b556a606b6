package model

// PriorityTier ranks KPI definitions by reporting importance.
type PriorityTier string

const (
	TierA PriorityTier = "A" // high priority
	TierB PriorityTier = "B"
	TierC PriorityTier = "C"
)

// UnitCategory groups the unit vocabularies a KPI value may be expressed in.
type UnitCategory string

const (
	UnitEmissions   UnitCategory = "emissions"
	UnitEnergy      UnitCategory = "energy"
	UnitWater       UnitCategory = "water"
	UnitPercentage  UnitCategory = "percentage"
	UnitCurrency    UnitCategory = "currency"
	UnitPeople      UnitCategory = "people"
	UnitIncidents   UnitCategory = "incidents"
	UnitTemperature UnitCategory = "temperature"
	UnitTime        UnitCategory = "time"
)

// ValueRange bounds plausible values for a KPI.
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v falls inside the range, inclusive.
func (r ValueRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// KPIDefinition is one entry of the KPI definitions table, enriched with
// matcher metadata derived at registry load time.
type KPIDefinition struct {
	NameEN       string       `json:"name_en"`
	NameFR       string       `json:"name_fr"`
	Topic        string       `json:"topic"`
	TopicFR      string       `json:"topic_fr"`
	Priority     PriorityTier `json:"priority"`
	TopicScore   float64      `json:"topic_score"`
	SourceTag    string       `json:"source_tag"`
	AppliesToAll bool         `json:"applies_to_all"`

	// Derived at load time.
	Keywords      map[string]struct{} `json:"-"`
	ExpectedUnits map[string]struct{} `json:"-"`
	Categories    []UnitCategory      `json:"-"`
	Range         *ValueRange         `json:"-"`

	// Canonical embedding, computed once per run and cached.
	Embedding []float32 `json:"-"`
}

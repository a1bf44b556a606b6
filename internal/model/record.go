package model

import (
	"fmt"
	"time"
)

// Method identifies which extraction strategy produced a candidate.
type Method string

const (
	MethodCode     Method = "code"
	MethodSemantic Method = "semantic"
	MethodKeyword  Method = "keyword"
	MethodOCR      Method = "ocr"
)

// ValidationStatus is the aggregator's verdict on a record.
type ValidationStatus string

const (
	StatusValidated     ValidationStatus = "validated"
	StatusLowConfidence ValidationStatus = "low_confidence"
	StatusConflict      ValidationStatus = "conflict"
	StatusRejected      ValidationStatus = "rejected"
)

// ExtractionCandidate is one strategy's claim that a document unit
// instantiates a KPI. Transient; pooled and consumed within a single
// aggregation pass.
type ExtractionCandidate struct {
	Definition *KPIDefinition
	Unit       *DocumentUnit
	Company    string
	Year       int
	Value      *float64 // nil when no numeric value was recovered
	ValueUnit  string   // "unknown" when no recognizable unit was found
	Confidence float64  // always in [0,1]
	Method     Method
	Context    string // surrounding text snippet
}

// ExtractionRecord is the persisted form of a candidate after validation.
type ExtractionRecord struct {
	ID               string           `json:"id"`
	MetricName       string           `json:"metric_name"`
	Value            *float64         `json:"value"`
	Unit             string           `json:"unit"`
	Year             int              `json:"year"`
	PageNumber       int              `json:"page_number"`
	Company          string           `json:"company"`
	Confidence       float64          `json:"confidence"`
	SourceSection    string           `json:"source_section"`
	ExtractionMethod Method           `json:"extraction_method"`
	Context          string           `json:"context"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	Timestamp        time.Time        `json:"timestamp"`
}

// RecordKey is the master dataset dedup key.
type RecordKey struct {
	Company    string
	Year       int
	MetricName string
	Method     Method
}

// Key returns the record's dedup key.
func (r ExtractionRecord) Key() RecordKey {
	return RecordKey{
		Company:    r.Company,
		Year:       r.Year,
		MetricName: r.MetricName,
		Method:     r.ExtractionMethod,
	}
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%s/%d/%s/%s", k.Company, k.Year, k.MetricName, k.Method)
}

package model

import "time"

// FailureKind classifies why a document could not be processed.
type FailureKind string

const (
	FailureUnsupportedFormat FailureKind = "unsupported_format"
	FailureParse             FailureKind = "parse_failure"
	FailureOCR               FailureKind = "ocr_failure"
	FailureTimeout           FailureKind = "timeout"
)

// DocumentFailure records one abandoned document in a run.
type DocumentFailure struct {
	Path    string      `json:"path"`
	Company string      `json:"company"`
	Year    int         `json:"year"`
	Kind    FailureKind `json:"kind"`
	Error   string      `json:"error"`
}

// RunSummary is the per-batch outcome surfaced to the caller. Individual
// document failures never abort the batch; they are counted here.
type RunSummary struct {
	Started    time.Time                 `json:"started"`
	Duration   time.Duration             `json:"duration"`
	Documents  int                       `json:"documents"`
	Processed  int                       `json:"processed"`
	Failed     int                       `json:"failed"`
	Records    int                       `json:"records"`
	ByStatus   map[ValidationStatus]int  `json:"by_status"`
	Failures   []DocumentFailure         `json:"failures,omitempty"`
	ByFailure  map[FailureKind]int       `json:"by_failure,omitempty"`
	OutputPath string                    `json:"output_path,omitempty"`
}

// CountRecord tallies one record into the summary.
func (s *RunSummary) CountRecord(r ExtractionRecord) {
	if s.ByStatus == nil {
		s.ByStatus = make(map[ValidationStatus]int)
	}
	s.Records++
	s.ByStatus[r.ValidationStatus]++
}

// CountFailure tallies one document failure into the summary.
func (s *RunSummary) CountFailure(f DocumentFailure) {
	if s.ByFailure == nil {
		s.ByFailure = make(map[FailureKind]int)
	}
	s.Failed++
	s.ByFailure[f.Kind]++
	s.Failures = append(s.Failures, f)
}

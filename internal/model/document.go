package model

// UnitOrigin distinguishes native text from OCR-recovered text.
type UnitOrigin string

const (
	OriginNative UnitOrigin = "native"
	OriginOCR    UnitOrigin = "ocr"
)

// BoundingBox is a layout rectangle in page coordinates. Optional; the
// pdftotext path does not produce one.
type BoundingBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// DocumentUnit is an atomic span of normalized text with layout metadata.
// Units are immutable after creation and discarded once a document's
// candidates have been produced.
type DocumentUnit struct {
	Text          string       `json:"text"`
	PageNumber    int          `json:"page_number"`
	BBox          *BoundingBox `json:"bbox,omitempty"`
	SectionLabel  string       `json:"section_label,omitempty"`
	Origin        UnitOrigin   `json:"origin"`
	OCRConfidence float64      `json:"ocr_confidence,omitempty"` // only for Origin == ocr
}

// Document is the normalized form of one input file.
type Document struct {
	Path  string         `json:"path"`
	Pages int            `json:"pages"`
	Units []DocumentUnit `json:"units"`
}

package normalize

import "github.com/rotisserie/eris"

// Failure taxonomy for document normalization. Callers classify with
// errors.Is; none of these abort a batch.
var (
	// ErrUnsupportedFormat marks a file type the normalizer does not handle.
	ErrUnsupportedFormat = eris.New("normalize: unsupported format")

	// ErrParseFailure marks a structural extraction failure. PDFs are
	// retried through the OCR path before the document is abandoned.
	ErrParseFailure = eris.New("normalize: parse failure")

	// ErrOCRFailure marks an unavailable OCR engine or OCR output with no
	// usable text.
	ErrOCRFailure = eris.New("normalize: ocr failure")
)

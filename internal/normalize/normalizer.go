// Package normalize converts raw input documents into ordered sequences of
// layout-tagged DocumentUnits. PDF and HTML parsing plus the OCR engine are
// external collaborators; this package owns only their output contract.
package normalize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esg-extract/internal/config"
	"github.com/sells-group/esg-extract/internal/model"
)

// Normalizer turns one file into a model.Document. Each worker owns its own
// instance; instances share no mutable state.
type Normalizer struct {
	ocrCfg     config.OCRConfig
	minDensity int
	engine     OCREngine // nil when OCR is unavailable
}

// New creates a Normalizer. engine may be nil; OCR-dependent paths then
// degrade gracefully per the failure policy.
func New(ocrCfg config.OCRConfig, minDensity int, engine OCREngine) *Normalizer {
	if minDensity <= 0 {
		minDensity = 120
	}
	return &Normalizer{ocrCfg: ocrCfg, minDensity: minDensity, engine: engine}
}

// Normalize converts the file at path into a Document. Returns
// ErrUnsupportedFormat for unrecognized file types and ErrParseFailure when
// structural extraction fails and the OCR retry also fails.
func (n *Normalizer) Normalize(ctx context.Context, path string) (*model.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return n.normalizePDF(ctx, path)
	case ".html", ".htm":
		units, err := parseHTML(path)
		if err != nil {
			return nil, err
		}
		for i := range units {
			if units[i].SectionLabel == "" {
				units[i].SectionLabel = identifySection(units[i].Text)
			}
		}
		return &model.Document{Path: path, Pages: 1, Units: units}, nil
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "%s", path)
	}
}

func (n *Normalizer) normalizePDF(ctx context.Context, path string) (*model.Document, error) {
	log := zap.L().With(zap.String("document", path))

	pages, err := extractNativeText(ctx, n.ocrCfg.PdfToTextPath, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		// Structural extraction failed: retry the whole document through
		// the OCR path before abandoning it.
		log.Warn("normalize: native extraction failed, retrying via ocr", zap.Error(err))
		doc, ocrErr := n.ocrWholeDocument(ctx, path)
		if ocrErr != nil {
			return nil, eris.Wrapf(ErrParseFailure, "%s: native and ocr paths failed: %v", path, ocrErr)
		}
		return doc, nil
	}

	doc := &model.Document{Path: path, Pages: len(pages)}
	for i, pageText := range pages {
		pageNum := i + 1
		if len(strings.TrimSpace(pageText)) >= n.minDensity {
			for _, block := range splitBlocks(pageText) {
				doc.Units = append(doc.Units, model.DocumentUnit{
					Text:         block,
					PageNumber:   pageNum,
					SectionLabel: identifySection(block),
					Origin:       model.OriginNative,
				})
			}
			continue
		}

		// Sparse native text: likely a scanned or image-only page.
		units, ocrErr := n.ocrPage(ctx, path, pageNum)
		if ocrErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("normalize: ocr fallback unavailable for page",
				zap.Int("page", pageNum),
				zap.Error(ocrErr),
			)
			continue
		}
		doc.Units = append(doc.Units, units...)
	}

	return doc, nil
}

// ocrPage renders one page and runs the OCR engine on it.
func (n *Normalizer) ocrPage(ctx context.Context, path string, page int) ([]model.DocumentUnit, error) {
	if n.engine == nil {
		return nil, eris.Wrap(ErrOCRFailure, "engine unavailable")
	}

	dir, err := os.MkdirTemp("", "esg-ocr-*")
	if err != nil {
		return nil, eris.Wrap(err, "normalize: temp dir")
	}
	defer os.RemoveAll(dir)

	img, err := renderPage(ctx, n.ocrCfg.PdfToPPMPath, path, page, dir)
	if err != nil {
		return nil, err
	}

	result, err := n.engine.Recognize(ctx, img)
	if err != nil {
		return nil, err
	}
	return n.ocrUnits(result, page), nil
}

// ocrWholeDocument is the ParseFailure retry path: rasterize every page and
// recognize each one.
func (n *Normalizer) ocrWholeDocument(ctx context.Context, path string) (*model.Document, error) {
	if n.engine == nil {
		return nil, eris.Wrap(ErrOCRFailure, "engine unavailable")
	}

	dir, err := os.MkdirTemp("", "esg-ocr-*")
	if err != nil {
		return nil, eris.Wrap(err, "normalize: temp dir")
	}
	defer os.RemoveAll(dir)

	images, err := renderAllPages(ctx, n.ocrCfg.PdfToPPMPath, path, dir)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{Path: path, Pages: len(images)}
	for i, img := range images {
		result, err := n.engine.Recognize(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, ErrOCRFailure) {
				continue // blank or unusable page
			}
			return nil, err
		}
		doc.Units = append(doc.Units, n.ocrUnits(result, i+1)...)
	}

	if len(doc.Units) == 0 {
		return nil, eris.Wrapf(ErrOCRFailure, "no usable text in %s", path)
	}
	return doc, nil
}

// ocrUnits splits recognized page text into blocks tagged with the
// engine-reported confidence.
func (n *Normalizer) ocrUnits(result *OCRResult, page int) []model.DocumentUnit {
	var units []model.DocumentUnit
	for _, block := range splitBlocks(result.Text) {
		units = append(units, model.DocumentUnit{
			Text:          block,
			PageNumber:    page,
			SectionLabel:  identifySection(block),
			Origin:        model.OriginOCR,
			OCRConfidence: result.Confidence,
		})
	}
	return units
}

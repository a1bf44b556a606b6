package normalize

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/esg-extract/internal/config"
)

// OCRResult is the engine's output for one image.
type OCRResult struct {
	Text       string
	Confidence float64 // engine-reported, in [0,1]
}

// OCREngine recognizes text in a rendered page image. Implementations are
// external collaborators; the core only depends on this contract.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) (*OCRResult, error)
}

// Tesseract shells out to the tesseract CLI, reading per-word confidences
// from its TSV output.
type Tesseract struct {
	binPath string
	timeout time.Duration
}

// NewTesseract creates a Tesseract engine. Returns an ErrOCRFailure when
// the binary cannot be found so callers can degrade gracefully.
func NewTesseract(cfg config.OCRConfig) (*Tesseract, error) {
	bin := cfg.TesseractPath
	if bin == "" {
		bin = "tesseract"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, eris.Wrapf(ErrOCRFailure, "tesseract not found at %q", bin)
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Tesseract{binPath: bin, timeout: timeout}, nil
}

// Recognize runs tesseract in TSV mode and averages word confidences.
func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (*OCRResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.binPath, imagePath, "stdout", "tsv")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrapf(ctx.Err(), "ocr: tesseract timed out on %s", imagePath)
		}
		return nil, eris.Wrapf(ErrOCRFailure, "tesseract failed for %s: %s", imagePath, stderr.String())
	}

	text, conf := parseTSV(stdout.String())
	if strings.TrimSpace(text) == "" {
		return nil, eris.Wrapf(ErrOCRFailure, "no usable text in %s", imagePath)
	}
	return &OCRResult{Text: text, Confidence: conf}, nil
}

// parseTSV extracts recognized words and the mean word confidence from
// tesseract's TSV output. Columns: level ... conf text.
func parseTSV(tsv string) (string, float64) {
	var sb strings.Builder
	var confSum float64
	var confN int
	var lastLine string

	for i, line := range strings.Split(tsv, "\n") {
		if i == 0 {
			continue // header
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(fields[11])
		if word == "" {
			continue
		}

		// New text line in the page starts a new output line.
		lineKey := fields[1] + ":" + fields[2] + ":" + fields[4]
		if lastLine != "" && lineKey != lastLine {
			sb.WriteByte('\n')
		} else if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		lastLine = lineKey

		sb.WriteString(word)
		confSum += conf
		confN++
	}

	if confN == 0 {
		return "", 0
	}
	return sb.String(), confSum / float64(confN) / 100.0
}

// PooledEngine bounds OCR concurrency across all document workers so that
// slow OCR-heavy documents cannot starve text-native ones.
type PooledEngine struct {
	inner OCREngine
	sem   *semaphore.Weighted
}

// NewPooledEngine wraps an engine with a concurrency bound.
func NewPooledEngine(inner OCREngine, concurrency int) *PooledEngine {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &PooledEngine{inner: inner, sem: semaphore.NewWeighted(int64(concurrency))}
}

// Recognize acquires an OCR slot, then delegates.
func (p *PooledEngine) Recognize(ctx context.Context, imagePath string) (*OCRResult, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, eris.Wrap(err, "ocr: acquire slot")
	}
	defer p.sem.Release(1)
	return p.inner.Recognize(ctx, imagePath)
}

package normalize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// extractNativeText runs pdftotext -layout and splits the output into
// per-page text (pages are form-feed separated).
func extractNativeText(ctx context.Context, binPath, pdfPath string) ([]string, error) {
	if binPath == "" {
		binPath = "pdftotext"
	}
	cmd := exec.CommandContext(ctx, binPath, "-layout", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, eris.Wrapf(ErrParseFailure, "pdftotext failed for %s: %s", pdfPath, stderr.String())
	}

	return strings.Split(strings.TrimSuffix(stdout.String(), "\f"), "\f"), nil
}

// renderPage rasterizes one PDF page to a PNG for OCR.
func renderPage(ctx context.Context, binPath, pdfPath string, page int, dir string) (string, error) {
	if binPath == "" {
		binPath = "pdftoppm"
	}
	prefix := filepath.Join(dir, fmt.Sprintf("page-%03d", page))
	cmd := exec.CommandContext(ctx, binPath,
		"-png", "-r", "150", "-singlefile",
		"-f", strconv.Itoa(page), "-l", strconv.Itoa(page),
		pdfPath, prefix,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", eris.Wrapf(ErrOCRFailure, "pdftoppm failed for %s page %d: %s", pdfPath, page, stderr.String())
	}

	img := prefix + ".png"
	if _, err := os.Stat(img); err != nil {
		return "", eris.Wrapf(ErrOCRFailure, "rendered image missing for %s page %d", pdfPath, page)
	}
	return img, nil
}

// renderAllPages rasterizes every page, used by the whole-document OCR
// retry after a ParseFailure. Returns rendered files in page order.
func renderAllPages(ctx context.Context, binPath, pdfPath, dir string) ([]string, error) {
	if binPath == "" {
		binPath = "pdftoppm"
	}
	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, binPath, "-png", "-r", "150", pdfPath, prefix)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, eris.Wrapf(ErrOCRFailure, "pdftoppm failed for %s: %s", pdfPath, stderr.String())
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(images) == 0 {
		return nil, eris.Wrapf(ErrOCRFailure, "no pages rendered for %s", pdfPath)
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(images)
	return images, nil
}

// splitBlocks cuts page text into paragraph-sized blocks on blank lines.
func splitBlocks(pageText string) []string {
	var blocks []string
	for _, block := range strings.Split(pageText, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

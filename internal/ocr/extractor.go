// Package ocr extracts text from uploaded lab-report documents. PDFs with a
// text layer are read directly via MuPDF; raster content goes through an
// injected Engine, which is the boundary to whatever OCR backend is deployed.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// ErrUnreadable is returned when no usable text can be pulled from a document.
var ErrUnreadable = errors.New("document is unreadable")

// Engine recognizes text in a rasterized page image (PNG bytes).
type Engine interface {
	Recognize(ctx context.Context, pagePNG []byte) (string, error)
}

// Extractor pulls text from an uploaded file.
type Extractor interface {
	Extract(ctx context.Context, filePath, mimeType string) (string, error)
}

// FitzExtractor implements Extractor using go-fitz, falling back to the OCR
// engine for images and for PDFs without a text layer. engine may be nil, in
// which case raster-only documents fail as unreadable.
type FitzExtractor struct {
	engine Engine
}

func NewFitzExtractor(engine Engine) *FitzExtractor {
	return &FitzExtractor{engine: engine}
}

func (e *FitzExtractor) Extract(ctx context.Context, filePath, mimeType string) (string, error) {
	if _, err := os.Stat(filePath); err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}

	doc, err := fitz.New(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: the file may be corrupted or password-protected", ErrUnreadable)
	}
	defer doc.Close()

	var text string
	if mimeType == "application/pdf" {
		text, err = e.pdfText(ctx, doc)
	} else {
		text, err = e.rasterText(ctx, doc)
	}
	if err != nil {
		return "", err
	}

	if IsGarbageText(text) {
		return "", fmt.Errorf("%w: the document appears to be blurred or unreadable, please upload a clearer copy", ErrUnreadable)
	}
	return text, nil
}

// pdfText reads the embedded text layer page by page; pages without one are
// rasterized through the engine.
func (e *FitzExtractor) pdfText(ctx context.Context, doc *fitz.Document) (string, error) {
	var pages []string
	for page := 0; page < doc.NumPage(); page++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		pageText, err := doc.Text(page)
		if err == nil && strings.TrimSpace(pageText) != "" {
			pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", page+1, strings.TrimSpace(pageText)))
			continue
		}

		ocrText, err := e.recognizePage(ctx, doc, page)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(ocrText) != "" {
			pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", page+1, strings.TrimSpace(ocrText)))
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func (e *FitzExtractor) rasterText(ctx context.Context, doc *fitz.Document) (string, error) {
	return e.recognizePage(ctx, doc, 0)
}

func (e *FitzExtractor) recognizePage(ctx context.Context, doc *fitz.Document, page int) (string, error) {
	if e.engine == nil {
		return "", fmt.Errorf("%w: document has no readable text layer", ErrUnreadable)
	}

	img, err := doc.Image(page)
	if err != nil {
		return "", fmt.Errorf("%w: failed to rasterize page %d", ErrUnreadable, page+1)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode page %d: %w", page+1, err)
	}

	return e.engine.Recognize(ctx, buf.Bytes())
}

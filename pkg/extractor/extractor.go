// Package extractor turns local PDF or image files into per-page text,
// falling back to OCR for scanned pages with no usable text layer.
package extractor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bmeric/docquery/internal/models"
)

type ExtractorConfig struct {
	DPI             float64 // raster resolution for OCR rendering
	SparseTextLimit int     // below this many characters a page is "sparse"
}

// OCREngine recognizes text from raster input. A nil engine disables the
// OCR paths; direct text-layer extraction still works.
type OCREngine interface {
	ImageText(png []byte) (string, error)
	FileText(path string) (string, error)
}

// document abstracts an opened PDF: page text, a blank-page probe, and
// page rendering for OCR.
type document interface {
	pageCount() int
	pageText(pageNo int) (string, error)
	pageHasContent(pageNo int) bool
	renderPage(pageNo int, dpi float64) ([]byte, error)
	close() error
}

type Extractor struct {
	config ExtractorConfig
	ocr    OCREngine
	open   func(path string) (document, error)
}

func NewWithConfig(config ExtractorConfig, ocr OCREngine) *Extractor {
	if config.DPI == 0 {
		// Balances recognition accuracy against processing time.
		config.DPI = 150
	}
	if config.SparseTextLimit == 0 {
		config.SparseTextLimit = 20
	}

	return &Extractor{
		config: config,
		ocr:    ocr,
		open:   openPDF,
	}
}

// Extract returns ordered (page number, text) pairs, 1-based, one per page.
// Inputs that cannot be parsed as a PDF go through whole-image OCR instead;
// when that also fails the error carries both failure messages.
func (e *Extractor) Extract(ctx context.Context, path string) ([]models.Page, error) {
	pages, pdfErr := e.extractPDF(ctx, path)
	if pdfErr == nil {
		return pages, nil
	}

	page, imgErr := e.extractImage(path)
	if imgErr != nil {
		return nil, fmt.Errorf("%w: %v; %v", models.ErrExtraction, pdfErr, imgErr)
	}
	return []models.Page{page}, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) ([]models.Page, error) {
	doc, err := e.open(path)
	if err != nil {
		return nil, err
	}
	defer doc.close()

	count := doc.pageCount()
	pages := make([]models.Page, 0, count)

	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := doc.pageText(i)
		if err != nil {
			text = ""
		}

		// OCR only pages that are nearly empty of extracted text yet carry
		// embedded images or vector drawings. Genuinely blank pages are not
		// worth the OCR time; scanned pages are. The threshold counts
		// characters, not bytes.
		if e.ocr != nil && utf8.RuneCountInString(strings.TrimSpace(text)) < e.config.SparseTextLimit && doc.pageHasContent(i) {
			if img, rerr := doc.renderPage(i, e.config.DPI); rerr == nil {
				if recognized, oerr := e.ocr.ImageText(img); oerr == nil {
					// Appended to any sparse text rather than replacing it.
					text = strings.TrimSpace(text + "\n" + recognized)
				}
			}
			// Render and OCR failures are non-fatal: the page keeps whatever
			// text was already extracted.
		}

		pages = append(pages, models.Page{PageNo: i, Text: text})
	}

	return pages, nil
}

// extractImage is the non-PDF fallback: OCR the whole file as one image and
// synthesize a single page.
func (e *Extractor) extractImage(path string) (models.Page, error) {
	if e.ocr == nil {
		return models.Page{}, fmt.Errorf("OCR not available")
	}

	text, err := e.ocr.FileText(path)
	if err != nil {
		return models.Page{}, err
	}
	return models.Page{PageNo: 1, Text: text}, nil
}

package extractor

import (
	"bytes"
	"fmt"
	"image/png"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/bmeric/docquery/internal/models"
)

// pdfFile reads the text layer and page structure through ledongthuc/pdf and
// rasterizes pages through MuPDF. The rasterizer is optional: when it fails
// to open the file, text-layer extraction still proceeds and only the OCR
// render path is lost.
type pdfFile struct {
	file   *os.File
	reader *pdf.Reader
	raster *fitz.Document
}

func openPDF(path string) (document, error) {
	f, r, err := safeOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnsupportedFormat, err)
	}

	raster, err := fitz.New(path)
	if err != nil {
		raster = nil
	}

	return &pdfFile{file: f, reader: r, raster: raster}, nil
}

// safeOpen converts parser panics on malformed files into errors.
func safeOpen(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if f != nil {
				f.Close()
			}
			f, r = nil, nil
			err = fmt.Errorf("pdf parse failure: %v", rec)
		}
	}()
	return pdf.Open(path)
}

func (d *pdfFile) pageCount() int {
	return d.reader.NumPage()
}

func (d *pdfFile) pageText(pageNo int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("page %d text: %v", pageNo, rec)
		}
	}()

	p := d.reader.Page(pageNo)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// pageHasContent reports embedded image XObjects or vector drawings on the
// page. It is the non-blank judgment guarding the OCR fallback.
func (d *pdfFile) pageHasContent(pageNo int) (has bool) {
	defer func() {
		if rec := recover(); rec != nil {
			has = false
		}
	}()

	p := d.reader.Page(pageNo)
	if p.V.IsNull() {
		return false
	}

	xobj := p.V.Key("Resources").Key("XObject")
	if xobj.Kind() == pdf.Dict {
		for _, name := range xobj.Keys() {
			if xobj.Key(name).Key("Subtype").Name() == "Image" {
				return true
			}
		}
	}

	return len(p.Content().Rect) > 0
}

func (d *pdfFile) renderPage(pageNo int, dpi float64) ([]byte, error) {
	if d.raster == nil {
		return nil, fmt.Errorf("page %d: rasterizer unavailable", pageNo)
	}

	img, err := d.raster.ImageDPI(pageNo-1, dpi)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *pdfFile) close() error {
	if d.raster != nil {
		d.raster.Close()
	}
	return d.file.Close()
}

package extractor

import "github.com/otiai10/gosseract/v2"

// Tesseract backs OCREngine with the local tesseract install. Clients are
// created per call; gosseract clients are not safe for reuse across pages.
type Tesseract struct{}

func NewTesseract() Tesseract { return Tesseract{} }

func (Tesseract) ImageText(png []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	// Single uniform block suits rasterized document pages.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", err
	}
	return client.Text()
}

func (Tesseract) FileText(path string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImage(path); err != nil {
		return "", err
	}
	return client.Text()
}

// Available reports whether a usable tesseract install with at least one
// language pack is present.
func Available() bool {
	langs, err := gosseract.GetAvailableLanguages()
	return err == nil && len(langs) > 0
}

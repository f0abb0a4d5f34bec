package pdfrender

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ErrInvalidPDF marks renderer output that cannot be read as a PDF.
var ErrInvalidPDF = errors.New("invalid pdf")

// Validate checks that data parses as a PDF with at least one page.
func Validate(data []byte) (err error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return fmt.Errorf("%w: missing header", ErrInvalidPDF)
	}
	// The parser panics on some malformed trailers.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidPDF, rec)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if r.NumPage() < 1 {
		return fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}
	return nil
}

package document

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFLoader extracts plain text from a PDF, one segment per page with the
// 0-based page number in metadata.
type PDFLoader struct{}

// Load implements Loader.
func (*PDFLoader) Load(_ context.Context, path string) ([]Segment, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var segments []Segment
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single malformed page should not sink the whole document.
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		segments = append(segments, Segment{
			Content: text,
			Source:  path,
			Metadata: map[string]any{
				MetaPage: i - 1,
			},
		})
	}

	return segments, nil
}

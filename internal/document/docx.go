package document

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DocxLoader extracts the body text of a Word document: paragraphs and
// tables in document order, joined by newlines, as a single segment.
type DocxLoader struct{}

// Load implements Loader.
func (*DocxLoader) Load(_ context.Context, path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening docx %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat docx %s: %w", path, err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parsing docx %s: %w", path, err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			sb.WriteString(v.String())
			sb.WriteString("\n")
		case *docx.Table:
			sb.WriteString(v.String())
			sb.WriteString("\n")
		}
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		return nil, nil
	}

	return []Segment{{
		Content:  content,
		Source:   path,
		Metadata: map[string]any{},
	}}, nil
}

package document

import (
	"context"
	"fmt"
	"os"
)

// TextLoader loads plain-text and markdown files as a single segment.
type TextLoader struct{}

// Load implements Loader.
func (*TextLoader) Load(_ context.Context, path string) ([]Segment, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(content) == 0 {
		return nil, nil
	}

	return []Segment{{
		Content:  string(content),
		Source:   path,
		Metadata: map[string]any{},
	}}, nil
}

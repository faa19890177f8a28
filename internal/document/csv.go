package document

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVLoader emits one segment per record, each formatted as
// "header: value" lines so column meaning survives embedding. The first
// record is treated as the header row.
type CSVLoader struct{}

// Load implements Loader.
func (*CSVLoader) Load(_ context.Context, path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening csv %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading csv header of %s: %w", path, err)
	}

	var segments []Segment
	for row := 0; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv record %d of %s: %w", row, path, err)
		}

		var sb strings.Builder
		for i, field := range record {
			if i < len(header) {
				sb.WriteString(header[i])
				sb.WriteString(": ")
			}
			sb.WriteString(field)
			sb.WriteString("\n")
		}

		segments = append(segments, Segment{
			Content: strings.TrimSpace(sb.String()),
			Source:  path,
			Metadata: map[string]any{
				MetaRow: row,
			},
		})
	}

	return segments, nil
}

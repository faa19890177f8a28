package document

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelLoader extracts an XLSX workbook, one segment per sheet. Rows are
// joined with tabs and newlines so cell adjacency survives into the text.
type ExcelLoader struct{}

// Load implements Loader.
func (*ExcelLoader) Load(_ context.Context, path string) ([]Segment, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening xlsx %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var segments []Segment
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q of %s: %w", sheet, path, err)
		}

		var sb strings.Builder
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}

		content := strings.TrimSpace(sb.String())
		if content == "" {
			continue
		}

		segments = append(segments, Segment{
			Content: content,
			Source:  path,
			Metadata: map[string]any{
				MetaSheet: sheet,
			},
		})
	}

	return segments, nil
}

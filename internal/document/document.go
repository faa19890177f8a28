// Package document turns files on disk into text segments with location
// metadata. Each supported format has its own Loader; a Registry dispatches
// by file extension so new formats plug in without touching callers.
//
// Loaders are deliberately forgiving: a file that disappears between the
// filesystem event and the read (a race with a fast delete) yields an empty
// result, not an error. A file the loader cannot parse is an error the
// caller logs and skips.
package document

import (
	"context"
	"path/filepath"
	"strings"
)

// Metadata keys attached to segments by loaders.
const (
	// MetaPage is the 0-based page number of a PDF segment.
	MetaPage = "page"

	// MetaSheet is the sheet name of a spreadsheet segment.
	MetaSheet = "sheet"

	// MetaRow is the 0-based record number of a tabular segment.
	MetaRow = "row"
)

// Segment is one extracted piece of a document: the raw text plus the source
// path and whatever location metadata the format provides (a page number for
// PDFs, a sheet name for spreadsheets, a row number for tabular files).
type Segment struct {
	Content  string
	Source   string
	Metadata map[string]any
}

// Loader parses a single file into ordered segments.
type Loader interface {
	Load(ctx context.Context, path string) ([]Segment, error)
}

// Registry maps lowercase file extensions to loaders.
type Registry struct {
	loaders map[string]Loader
}

// NewRegistry creates a registry with the default loaders for every
// supported format: .pdf, .docx, .xlsx, .csv, .txt and .md.
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]Loader)}
	r.Register(".pdf", &PDFLoader{})
	r.Register(".docx", &DocxLoader{})
	r.Register(".xlsx", &ExcelLoader{})
	r.Register(".csv", &CSVLoader{})

	text := &TextLoader{}
	r.Register(".txt", text)
	r.Register(".md", text)
	return r
}

// Register installs a loader for an extension, replacing any existing one.
func (r *Registry) Register(ext string, l Loader) {
	r.loaders[strings.ToLower(ext)] = l
}

// Supported reports whether the path's extension has a registered loader.
// Office lock files (base name starting with "~$") are never supported.
func (r *Registry) Supported(path string) bool {
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return false
	}
	_, ok := r.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the registered extensions in unspecified order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	return exts
}

// Load dispatches to the loader registered for the path's extension.
// Unsupported extensions yield an empty result.
func (r *Registry) Load(ctx context.Context, path string) ([]Segment, error) {
	if !r.Supported(path) {
		return nil, nil
	}
	l := r.loaders[strings.ToLower(filepath.Ext(path))]
	return l.Load(ctx, path)
}

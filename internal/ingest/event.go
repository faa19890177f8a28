// Package ingest keeps the vector store and manifest synchronized with the
// document root: a filesystem watcher feeds change events into an unbounded
// queue drained by a single sequential worker, and a startup reconciliation
// pass brings a stale index up to date before the live pipeline starts.
package ingest

// Op is the kind of change observed on a document.
type Op int

const (
	// OpAdd is a newly created file.
	OpAdd Op = iota

	// OpUpdate is a modification to an already-known file.
	OpUpdate

	// OpDelete is a removed file.
	OpDelete
)

// String implements fmt.Stringer.
func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is one observed document change. A rename decomposes into
// Delete(old path) + Add(new path).
type Event struct {
	Op   Op
	Path string
}

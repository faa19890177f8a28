// Package rag answers questions against the vector store with a
// self-correcting retrieval loop: retrieve candidate chunks, grade each for
// relevance, rewrite the question and retry when nothing survives, and
// finally generate an answer grounded in the surviving chunks.
package rag

// State is a node of the query state machine.
type State int

const (
	// StateRetrieve fetches candidate chunks for the current question.
	StateRetrieve State = iota

	// StateGrade filters retrieved chunks by relevance to the question.
	StateGrade

	// StateTransform rewrites the question for better retrieval.
	StateTransform

	// StateGenerate produces the final answer from the surviving chunks.
	StateGenerate

	// StateDone is the terminal state.
	StateDone
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateRetrieve:
		return "retrieve"
	case StateGrade:
		return "grade"
	case StateTransform:
		return "transform"
	case StateGenerate:
		return "generate"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// maxSteps is a hard ceiling on total state transitions per query. The
// rewrite counter bounds the loop on its own; exceeding this ceiling means
// the machine itself is broken and the query fails loudly.
const maxSteps = 25

// next is the pure transition function. relevant is the number of chunks
// that survived grading; rewrites is how many times the question has been
// rewritten so far.
func next(s State, relevant, rewrites, maxRewrites int) State {
	switch s {
	case StateRetrieve:
		return StateGrade
	case StateGrade:
		// After maxRewrites failed attempts, generate anyway with whatever
		// context there is (possibly none) instead of looping forever.
		if relevant == 0 && rewrites < maxRewrites {
			return StateTransform
		}
		return StateGenerate
	case StateTransform:
		return StateRetrieve
	case StateGenerate:
		return StateDone
	default:
		return StateDone
	}
}

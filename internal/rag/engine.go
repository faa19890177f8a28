package rag

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lorekeep/lorekeep/internal/chunk"
	"github.com/lorekeep/lorekeep/internal/document"
	"github.com/lorekeep/lorekeep/internal/vectorstore"
)

// Retriever is the read side of the vector store.
type Retriever interface {
	Search(ctx context.Context, query string, opts ...vectorstore.SearchOption) ([]vectorstore.Result, error)
}

// Citation points at a chunk used to generate an answer.
type Citation struct {
	File     string `json:"file"`
	Location string `json:"location"`
	Snippet  string `json:"snippet"`
}

// Answer is the terminal output of one query.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Config tunes the retrieval loop.
type Config struct {
	TopK        int     // chunks returned per retrieval (default 2)
	FetchK      int     // similarity candidates before MMR (default 20)
	Lambda      float64 // MMR trade-off, 0 pure diversity to 1 pure relevance; out of range falls back to 0.5
	MaxRewrites int     // rewrite-loop ceiling (default 3)
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = 2
	}
	if c.FetchK <= 0 {
		c.FetchK = 20
	}
	// Zero is a valid lambda, so only out-of-range values are replaced.
	if c.Lambda < 0 || c.Lambda > 1 {
		c.Lambda = 0.5
	}
	if c.MaxRewrites <= 0 {
		c.MaxRewrites = 3
	}
	return c
}

// Engine runs the retrieve -> grade -> (transform) -> generate state
// machine. Each query gets its own state; an Engine may serve any number of
// concurrent queries.
type Engine struct {
	retriever Retriever
	models    Models
	cfg       Config
	logger    *slog.Logger
}

// New creates an Engine.
func New(retriever Retriever, models Models, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		retriever: retriever,
		models:    models,
		cfg:       cfg.withDefaults(),
		logger:    logger.With("component", "rag"),
	}
}

// QueryOption configures a single query.
type QueryOption func(*queryOptions)

type queryOptions struct {
	stream func(string) error
}

// WithStream delivers answer tokens to fn as they are generated. A non-nil
// error from fn aborts the stream.
func WithStream(fn func(string) error) QueryOption {
	return func(o *queryOptions) {
		o.stream = fn
	}
}

// queryState is the per-query mutable state threaded through transitions.
type queryState struct {
	question string
	answer   string
	chunks   []vectorstore.Result
	rewrites int
	steps    int
}

// Query runs the state machine to completion and returns the answer with
// citations for every chunk used during generation.
func (e *Engine) Query(ctx context.Context, question string, opts ...QueryOption) (*Answer, error) {
	var qopts queryOptions
	for _, opt := range opts {
		opt(&qopts)
	}

	logger := e.logger.With("query_id", uuid.NewString())
	logger.Info("query started", "question", question)

	st := &queryState{question: question}
	state := StateRetrieve

	for state != StateDone {
		st.steps++
		if st.steps > maxSteps {
			return nil, fmt.Errorf("query exceeded %d state transitions; aborting", maxSteps)
		}

		var err error
		switch state {
		case StateRetrieve:
			err = e.retrieve(ctx, st, logger)
		case StateGrade:
			err = e.grade(ctx, st, logger)
		case StateTransform:
			err = e.transform(ctx, st, logger)
		case StateGenerate:
			err = e.generate(ctx, st, logger, qopts.stream)
		}
		if err != nil {
			return nil, err
		}

		state = next(state, len(st.chunks), st.rewrites, e.cfg.MaxRewrites)
	}

	return &Answer{
		Text:      st.answer,
		Citations: citations(st.chunks),
	}, nil
}

func (e *Engine) retrieve(ctx context.Context, st *queryState, logger *slog.Logger) error {
	results, err := e.retriever.Search(ctx, st.question,
		vectorstore.WithTopK(e.cfg.TopK),
		vectorstore.WithFetchK(e.cfg.FetchK),
		vectorstore.WithLambda(e.cfg.Lambda),
	)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	logger.Debug("retrieved", "count", len(results))
	st.chunks = results
	return nil
}

// grade classifies every retrieved chunk independently and keeps the
// relevant ones in their original rank order. The judgments are
// order-independent, so they run concurrently.
func (e *Engine) grade(ctx context.Context, st *queryState, logger *slog.Logger) error {
	if len(st.chunks) == 0 {
		return nil
	}

	relevant := make([]bool, len(st.chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range st.chunks {
		g.Go(func() error {
			ok, err := e.models.Grade(gctx, st.question, c.Content)
			if err != nil {
				return err
			}
			relevant[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("grading failed: %w", err)
	}

	kept := st.chunks[:0]
	for i, c := range st.chunks {
		if relevant[i] {
			kept = append(kept, c)
		}
	}
	logger.Debug("graded", "relevant", len(kept), "total", len(relevant))
	st.chunks = kept
	return nil
}

func (e *Engine) transform(ctx context.Context, st *queryState, logger *slog.Logger) error {
	rewritten, err := e.models.Rewrite(ctx, st.question)
	if err != nil {
		return fmt.Errorf("query rewrite failed: %w", err)
	}

	logger.Debug("rewrote question", "question", rewritten, "attempt", st.rewrites+1)
	st.question = rewritten
	st.rewrites++
	return nil
}

func (e *Engine) generate(ctx context.Context, st *queryState, logger *slog.Logger, stream func(string) error) error {
	contextText := formatContext(st.chunks)

	answer, err := e.models.Generate(ctx, st.question, contextText, stream)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	logger.Info("query answered", "context_chunks", len(st.chunks))
	st.answer = answer
	return nil
}

// formatContext renders each chunk as a source-tagged block so the model
// can cite locations, joined by a separator.
func formatContext(chunks []vectorstore.Result) string {
	if len(chunks) == 0 {
		return ""
	}

	out := ""
	for i, c := range chunks {
		if i > 0 {
			out += contextSeparator
		}
		out += fmt.Sprintf("[Source: %s | Location: %s]\n%s",
			sourceName(c.Meta), location(c.Meta), c.Content)
	}
	return out
}

func sourceName(meta map[string]string) string {
	if src, ok := meta[chunk.MetaSource]; ok {
		return filepath.Base(src)
	}
	return "Unknown"
}

// location renders a chunk's position: a 1-based page for paged documents,
// otherwise the character offset within the segment.
func location(meta map[string]string) string {
	if page, ok := meta[document.MetaPage]; ok {
		if n, err := strconv.Atoi(page); err == nil {
			return fmt.Sprintf("Page %d", n+1)
		}
	}
	if start, ok := meta[chunk.MetaStartIndex]; ok {
		return fmt.Sprintf("Char Index %s", start)
	}
	return "Unknown Location"
}

// snippetLen bounds the citation preview.
const snippetLen = 50

func citations(chunks []vectorstore.Result) []Citation {
	cits := make([]Citation, 0, len(chunks))
	for _, c := range chunks {
		snippet := c.Content
		if runes := []rune(snippet); len(runes) > snippetLen {
			snippet = string(runes[:snippetLen]) + "..."
		}
		cits = append(cits, Citation{
			File:     sourceName(c.Meta),
			Location: location(c.Meta),
			Snippet:  snippet,
		})
	}
	return cits
}

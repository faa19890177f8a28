package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/log"
	"github.com/lorekeep/lorekeep/internal/vectorstore"
)

// fakeRetriever returns a fixed result set per query string.
type fakeRetriever struct {
	byQuery map[string][]vectorstore.Result
	err     error
	queries []string
}

func (r *fakeRetriever) Search(_ context.Context, query string, _ ...vectorstore.SearchOption) ([]vectorstore.Result, error) {
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	return r.byQuery[query], nil
}

// fakeModels grades by substring match against the question, rewrites by
// table lookup, and echoes the context it was handed.
type fakeModels struct {
	relevant    func(question, doc string) bool
	rewrites    map[string]string
	answer      string
	gradeErr    error
	lastContext string
	generated   int
}

func (m *fakeModels) Grade(_ context.Context, question, doc string) (bool, error) {
	if m.gradeErr != nil {
		return false, m.gradeErr
	}
	return m.relevant(question, doc), nil
}

func (m *fakeModels) Rewrite(_ context.Context, question string) (string, error) {
	if rewritten, ok := m.rewrites[question]; ok {
		return rewritten, nil
	}
	return question, nil
}

func (m *fakeModels) Generate(_ context.Context, _, contextText string, stream func(string) error) (string, error) {
	m.generated++
	m.lastContext = contextText
	if stream != nil {
		for _, token := range strings.SplitAfter(m.answer, " ") {
			if err := stream(token); err != nil {
				return "", err
			}
		}
	}
	return m.answer, nil
}

func result(content, source string, meta map[string]string) vectorstore.Result {
	if meta == nil {
		meta = map[string]string{}
	}
	meta["source"] = source
	return vectorstore.Result{ID: source + "#0", Content: content, Meta: meta}
}

func TestQueryHappyPath(t *testing.T) {
	retriever := &fakeRetriever{byQuery: map[string][]vectorstore.Result{
		"where is the sunken library": {
			result("The sunken library lies beneath Lake Veloria.", "/docs/atlas.txt",
				map[string]string{"start_index": "120"}),
			result("Unrelated trivia about trade routes.", "/docs/trade.txt",
				map[string]string{"start_index": "0"}),
		},
	}}
	models := &fakeModels{
		relevant: func(_, doc string) bool { return strings.Contains(doc, "library") },
		answer:   "Beneath Lake Veloria [atlas.txt, Char Index 120].",
	}

	e := New(retriever, models, Config{}, log.NewNop())
	answer, err := e.Query(context.Background(), "where is the sunken library")
	require.NoError(t, err)

	assert.Equal(t, "Beneath Lake Veloria [atlas.txt, Char Index 120].", answer.Text)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "atlas.txt", answer.Citations[0].File)
	assert.Equal(t, "Char Index 120", answer.Citations[0].Location)
	assert.Equal(t, "The sunken library lies beneath Lake Veloria.", answer.Citations[0].Snippet)

	// Only the surviving chunk reaches the generation context.
	assert.Contains(t, models.lastContext, "[Source: atlas.txt | Location: Char Index 120]")
	assert.NotContains(t, models.lastContext, "trade routes")
}

func TestQueryCitesPageLocation(t *testing.T) {
	// A paged document: the fact sits on the second page (stored zero-based).
	retriever := &fakeRetriever{byQuery: map[string][]vectorstore.Result{
		"What is the capital of Veloria?": {
			result("The capital of Veloria is Astrid.", "/docs/veloria_lore.pdf",
				map[string]string{"page": "1", "start_index": "0"}),
		},
	}}
	models := &fakeModels{
		relevant: func(_, doc string) bool { return strings.Contains(doc, "capital") },
		answer:   "The capital of Veloria is Astrid [veloria_lore.pdf, Page 2].",
	}

	e := New(retriever, models, Config{}, log.NewNop())
	answer, err := e.Query(context.Background(), "What is the capital of Veloria?")
	require.NoError(t, err)

	assert.Contains(t, answer.Text, "Astrid")
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "veloria_lore.pdf", answer.Citations[0].File)
	assert.Equal(t, "Page 2", answer.Citations[0].Location)
	assert.Contains(t, models.lastContext, "[Source: veloria_lore.pdf | Location: Page 2]")
}

func TestQueryRewritesUntilRelevant(t *testing.T) {
	// The original phrasing retrieves nothing useful; the rewritten one hits.
	retriever := &fakeRetriever{byQuery: map[string][]vectorstore.Result{
		"who rules the city": {
			result("A recipe for barley bread.", "/docs/cookbook.txt", nil),
		},
		"current ruler of Astrid": {
			result("Queen Maren has ruled Astrid since the Long Thaw.", "/docs/astrid.txt",
				map[string]string{"start_index": "0"}),
		},
	}}
	models := &fakeModels{
		relevant: func(_, doc string) bool { return strings.Contains(doc, "ruled") },
		rewrites: map[string]string{"who rules the city": "current ruler of Astrid"},
		answer:   "Queen Maren.",
	}

	e := New(retriever, models, Config{}, log.NewNop())
	answer, err := e.Query(context.Background(), "who rules the city")
	require.NoError(t, err)

	assert.Equal(t, "Queen Maren.", answer.Text)
	assert.Equal(t, []string{"who rules the city", "current ruler of Astrid"}, retriever.queries)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "astrid.txt", answer.Citations[0].File)
}

func TestQueryGeneratesWithEmptyContextAfterBudget(t *testing.T) {
	// Nothing is ever relevant; after the rewrite budget the engine must
	// still answer rather than loop.
	retriever := &fakeRetriever{byQuery: map[string][]vectorstore.Result{}}
	models := &fakeModels{
		relevant: func(_, _ string) bool { return false },
		answer:   "I don't know.",
	}

	e := New(retriever, models, Config{MaxRewrites: 3}, log.NewNop())
	answer, err := e.Query(context.Background(), "unanswerable")
	require.NoError(t, err)

	assert.Equal(t, "I don't know.", answer.Text)
	assert.Empty(t, answer.Citations)
	assert.Empty(t, models.lastContext)
	assert.Equal(t, 1, models.generated)
	// Original attempt plus one retrieval per rewrite.
	assert.Len(t, retriever.queries, 4)
}

func TestQueryStreamsTokens(t *testing.T) {
	retriever := &fakeRetriever{byQuery: map[string][]vectorstore.Result{
		"q": {result("relevant text", "/docs/a.txt", nil)},
	}}
	models := &fakeModels{
		relevant: func(_, _ string) bool { return true },
		answer:   "streamed answer text",
	}

	var streamed strings.Builder
	e := New(retriever, models, Config{}, log.NewNop())
	answer, err := e.Query(context.Background(), "q", WithStream(func(token string) error {
		streamed.WriteString(token)
		return nil
	}))
	require.NoError(t, err)

	assert.Equal(t, answer.Text, streamed.String())
}

func TestQueryRetrievalError(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("store offline")}
	e := New(retriever, &fakeModels{}, Config{}, log.NewNop())

	_, err := e.Query(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval failed")
}

func TestQueryGradingError(t *testing.T) {
	retriever := &fakeRetriever{byQuery: map[string][]vectorstore.Result{
		"q": {result("text", "/docs/a.txt", nil)},
	}}
	models := &fakeModels{gradeErr: errors.New("model offline")}

	e := New(retriever, models, Config{}, log.NewNop())
	_, err := e.Query(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grading failed")
}

func TestGradePreservesRankOrder(t *testing.T) {
	first := result("first relevant", "/docs/a.txt", nil)
	second := result("second relevant", "/docs/b.txt", nil)
	retriever := &fakeRetriever{byQuery: map[string][]vectorstore.Result{
		"q": {first, result("noise", "/docs/noise.txt", nil), second},
	}}
	models := &fakeModels{
		relevant: func(_, doc string) bool { return strings.Contains(doc, "relevant") },
		answer:   "ok",
	}

	e := New(retriever, models, Config{}, log.NewNop())
	answer, err := e.Query(context.Background(), "q")
	require.NoError(t, err)

	require.Len(t, answer.Citations, 2)
	assert.Equal(t, "a.txt", answer.Citations[0].File)
	assert.Equal(t, "b.txt", answer.Citations[1].File)
}

func TestFormatContext(t *testing.T) {
	chunks := []vectorstore.Result{
		result("page content", "/docs/report.pdf", map[string]string{"page": "2"}),
		result("plain content", "/docs/notes.txt", map[string]string{"start_index": "500"}),
	}

	got := formatContext(chunks)
	want := "[Source: report.pdf | Location: Page 3]\npage content" +
		contextSeparator +
		"[Source: notes.txt | Location: Char Index 500]\nplain content"
	assert.Equal(t, want, got)

	assert.Empty(t, formatContext(nil))
}

func TestLocation(t *testing.T) {
	// Pages are stored zero-based and shown one-based.
	assert.Equal(t, "Page 1", location(map[string]string{"page": "0"}))
	assert.Equal(t, "Char Index 42", location(map[string]string{"start_index": "42"}))
	assert.Equal(t, "Unknown Location", location(map[string]string{}))
	// Page takes precedence when both are present.
	assert.Equal(t, "Page 5", location(map[string]string{"page": "4", "start_index": "9"}))
}

func TestConfigWithDefaults(t *testing.T) {
	got := Config{}.withDefaults()
	assert.Equal(t, 2, got.TopK)
	assert.Equal(t, 20, got.FetchK)
	assert.Equal(t, 3, got.MaxRewrites)

	// Zero is a legal lambda (pure diversity) and must survive.
	assert.Equal(t, 0.0, Config{}.withDefaults().Lambda)
	assert.Equal(t, 0.0, Config{Lambda: 0}.withDefaults().Lambda)

	// Out-of-range values fall back.
	assert.Equal(t, 0.5, Config{Lambda: -1}.withDefaults().Lambda)
	assert.Equal(t, 0.5, Config{Lambda: 1.5}.withDefaults().Lambda)
}

func TestCitationSnippetTruncation(t *testing.T) {
	long := strings.Repeat("x", 80)
	cits := citations([]vectorstore.Result{result(long, "/docs/a.txt", nil)})

	require.Len(t, cits, 1)
	assert.Equal(t, strings.Repeat("x", 50)+"...", cits[0].Snippet)
	assert.Equal(t, fmt.Sprintf("%s...", long[:50]), cits[0].Snippet)
}

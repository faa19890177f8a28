package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Models is the slice of the model services the state machine needs:
// grading and rewriting on the fast tier, answer generation on the
// thinking tier.
type Models interface {
	// Grade reports whether doc is relevant to question.
	Grade(ctx context.Context, question, doc string) (bool, error)

	// Rewrite returns a retrieval-optimized version of question.
	Rewrite(ctx context.Context, question string) (string, error)

	// Generate answers question from contextText only. When stream is
	// non-nil it receives each token chunk as it is produced.
	Generate(ctx context.Context, question, contextText string, stream func(string) error) (string, error)
}

// gradeOutput is the structured output schema for the relevance grader.
type gradeOutput struct {
	// BinaryScore is 'yes' or 'no': whether the document is relevant.
	BinaryScore string `json:"binary_score"`
}

// GenkitModels implements Models on top of Genkit with two provider-
// qualified model names (e.g. "ollama/gpt-oss", "ollama/llama3.2"). One
// temperature applies to every call on both tiers.
type GenkitModels struct {
	g             *genkit.Genkit
	thinkingModel string
	fastModel     string
	temperature   float64
}

// NewGenkitModels creates the production Models implementation.
func NewGenkitModels(g *genkit.Genkit, thinkingModel, fastModel string, temperature float64) *GenkitModels {
	return &GenkitModels{
		g:             g,
		thinkingModel: thinkingModel,
		fastModel:     fastModel,
		temperature:   temperature,
	}
}

// genConfig carries the shared sampling configuration into a model call.
func (m *GenkitModels) genConfig() *ai.GenerationCommonConfig {
	return &ai.GenerationCommonConfig{Temperature: m.temperature}
}

// Grade implements Models. The model is constrained to a strict yes/no
// signal; anything else is treated as not relevant.
func (m *GenkitModels) Grade(ctx context.Context, question, doc string) (bool, error) {
	prompt := fmt.Sprintf("Retrieved document:\n\n%s\n\nUser question: %s", doc, question)

	resp, err := genkit.Generate(ctx, m.g,
		ai.WithModelName(m.fastModel),
		ai.WithSystem(graderSystemPrompt),
		ai.WithPrompt(prompt),
		ai.WithOutputType(gradeOutput{}),
		ai.WithConfig(m.genConfig()),
	)
	if err != nil {
		return false, fmt.Errorf("grading document: %w", err)
	}

	var out gradeOutput
	if err := resp.Output(&out); err != nil {
		return false, fmt.Errorf("parsing grade: %w", err)
	}

	return isRelevantScore(out.BinaryScore), nil
}

// isRelevantScore maps the grader's binary score onto a relevance verdict.
// Anything but a yes counts as not relevant.
func isRelevantScore(score string) bool {
	return strings.EqualFold(strings.TrimSpace(score), "yes")
}

// Rewrite implements Models.
func (m *GenkitModels) Rewrite(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf("Initial question:\n\n%s\nFormulate an improved question.", question)

	resp, err := genkit.Generate(ctx, m.g,
		ai.WithModelName(m.fastModel),
		ai.WithSystem(rewriteSystemPrompt),
		ai.WithPrompt(prompt),
		ai.WithConfig(m.genConfig()),
	)
	if err != nil {
		return "", fmt.Errorf("rewriting question: %w", err)
	}

	rewritten := strings.TrimSpace(resp.Text())
	if rewritten == "" {
		return question, nil
	}
	return rewritten, nil
}

// Generate implements Models, streaming tokens to stream when set.
func (m *GenkitModels) Generate(ctx context.Context, question, contextText string, stream func(string) error) (string, error) {
	prompt := fmt.Sprintf("Question: %s\n\nContext: %s\n\nAnswer:", question, contextText)

	opts := []ai.GenerateOption{
		ai.WithModelName(m.thinkingModel),
		ai.WithSystem(generateSystemPrompt),
		ai.WithPrompt(prompt),
		ai.WithConfig(m.genConfig()),
	}
	if stream != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return stream(chunk.Text())
		}))
	}

	resp, err := genkit.Generate(ctx, m.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	return resp.Text(), nil
}

package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/config"
)

func tagsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckModelsAllAvailable(t *testing.T) {
	srv := tagsServer(t, `{"models":[
		{"name":"gpt-oss:latest"},
		{"name":"llama3.2:latest"},
		{"name":"mxbai-embed-large:latest"}
	]}`)

	cfg := &config.Config{
		OllamaHost:    srv.URL,
		ThinkingModel: "gpt-oss",
		FastModel:     "llama3.2",
		EmbedderModel: "mxbai-embed-large",
	}

	statuses, err := CheckModels(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, statuses, 3)
	for _, s := range statuses {
		assert.True(t, s.Available, "model %s (%s)", s.Name, s.Role)
	}
}

func TestCheckModelsMissingModel(t *testing.T) {
	srv := tagsServer(t, `{"models":[{"name":"llama3.2:latest"}]}`)

	cfg := &config.Config{
		OllamaHost:    srv.URL,
		ThinkingModel: "gpt-oss",
		FastModel:     "llama3.2",
		EmbedderModel: "mxbai-embed-large",
	}

	statuses, err := CheckModels(context.Background(), cfg)
	require.NoError(t, err)

	byRole := map[string]bool{}
	for _, s := range statuses {
		byRole[s.Role] = s.Available
	}
	assert.False(t, byRole["thinking"])
	assert.True(t, byRole["fast"])
	assert.False(t, byRole["embedder"])
}

func TestCheckModelsExactTagMatch(t *testing.T) {
	srv := tagsServer(t, `{"models":[{"name":"llama3.2:1b"}]}`)

	cfg := &config.Config{
		OllamaHost:    srv.URL,
		ThinkingModel: "llama3.2:1b",
		FastModel:     "llama3.2",
		EmbedderModel: "other",
	}

	statuses, err := CheckModels(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, statuses[0].Available)
	// The bare name also matches the tagged install.
	assert.True(t, statuses[1].Available)
	assert.False(t, statuses[2].Available)
}

func TestCheckModelsUnreachableHost(t *testing.T) {
	cfg := &config.Config{
		OllamaHost:    "http://127.0.0.1:1",
		ThinkingModel: "a", FastModel: "b", EmbedderModel: "c",
	}

	_, err := CheckModels(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reaching ollama")
}

func TestCheckModelsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		OllamaHost:    srv.URL,
		ThinkingModel: "a", FastModel: "b", EmbedderModel: "c",
	}

	_, err := CheckModels(context.Background(), cfg)
	require.Error(t, err)
}

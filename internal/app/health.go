package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lorekeep/lorekeep/internal/config"
)

// ModelStatus reports whether one configured model is available on the
// Ollama host.
type ModelStatus struct {
	Name      string
	Role      string
	Available bool
}

// CheckModels queries the Ollama host for its installed models and checks
// the three configured models against them. A transport error means the
// host itself is unreachable.
func CheckModels(ctx context.Context, cfg *config.Config) ([]ModelStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.OllamaHost+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("building tags request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reaching ollama at %s: %w", cfg.OllamaHost, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags endpoint returned %s", resp.Status)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decoding tags response: %w", err)
	}

	installed := make(map[string]bool, len(tags.Models))
	for _, m := range tags.Models {
		installed[m.Name] = true
		// "llama3.2:latest" also satisfies a bare "llama3.2"
		if base, _, ok := strings.Cut(m.Name, ":"); ok {
			installed[base] = true
		}
	}

	return []ModelStatus{
		{Name: cfg.ThinkingModel, Role: "thinking", Available: installed[cfg.ThinkingModel]},
		{Name: cfg.FastModel, Role: "fast", Available: installed[cfg.FastModel]},
		{Name: cfg.EmbedderModel, Role: "embedder", Available: installed[cfg.EmbedderModel]},
	}, nil
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/lorekeep/lorekeep/internal/app"
	"github.com/lorekeep/lorekeep/internal/config"
)

// runStatus prints the indexed files and checks the configured models
// against the Ollama host.
func runStatus() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	entries, err := a.ListIndexed()
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	fmt.Printf("Document root: %s\n", cfg.DocumentRoot)
	fmt.Printf("Data dir:      %s\n", cfg.DataDir)
	fmt.Printf("Chunking:      %d runes, %d overlap\n", cfg.ChunkSize, cfg.ChunkOverlap)
	fmt.Printf("Temperature:   %.2f\n", cfg.Temperature)
	fmt.Printf("Indexed files: %d (%d chunks)\n", len(paths), a.ChunkCount())
	for _, p := range paths {
		fmt.Printf("  %s\n", filepath.Base(p))
	}

	fmt.Println()
	statuses, err := app.CheckModels(ctx, cfg)
	if err != nil {
		fmt.Printf("Ollama: unreachable (%v)\n", err)
		return nil
	}
	fmt.Printf("Ollama: %s\n", cfg.OllamaHost)
	for _, s := range statuses {
		mark := "MISSING"
		if s.Available {
			mark = "ok"
		}
		fmt.Printf("  %-10s %-20s %s\n", s.Role, s.Name, mark)
	}

	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lorekeep/lorekeep/internal/app"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/rag"
)

// runAsk answers a single question and exits. Tokens stream to stdout as
// the model produces them.
func runAsk(args []string) error {
	citations := false
	var words []string
	for _, arg := range args {
		switch arg {
		case "-c", "--citations":
			citations = true
		default:
			words = append(words, arg)
		}
	}

	question := strings.Join(words, " ")
	if question == "" {
		return errors.New("usage: lorekeep ask [-c] <question>")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	if a.ChunkCount() == 0 {
		fmt.Fprintln(os.Stderr, "Warning: the index is empty; run `lorekeep serve` or `lorekeep reindex` first")
	}

	answer, err := a.QueryWithCitations(ctx, question, rag.WithStream(func(token string) error {
		fmt.Print(token)
		return nil
	}))
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}
	fmt.Println()

	if citations {
		fmt.Println()
		fmt.Println("Sources:")
		for _, c := range answer.Citations {
			fmt.Printf("  %s (%s): %s\n", c.File, c.Location, c.Snippet)
		}
	}

	return nil
}

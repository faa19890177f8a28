// Package cmd provides CLI commands for Lorekeep.
//
// Commands:
//   - serve: watch the document root and keep the index current
//   - ask: answer a question against the indexed documents
//   - status: show index and model availability
//   - reindex: force a re-ingest of every document
//
// Signal handling and graceful shutdown are implemented
// for all commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// Execute is the main entry point for the Lorekeep CLI application.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "ask":
		return runAsk(os.Args[2:])
	case "status":
		return runStatus()
	case "reindex":
		return runReindex()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Lorekeep - Ask questions of your own documents")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  lorekeep serve              Watch the document root and keep the index current")
	fmt.Println("  lorekeep ask [question]     Answer a question from the indexed documents")
	fmt.Println("  lorekeep ask -c [question]  Same, and print the source citations")
	fmt.Println("  lorekeep status             Show index contents and model availability")
	fmt.Println("  lorekeep reindex            Force a full re-ingest of the document root")
	fmt.Println("  lorekeep --version          Show version information")
	fmt.Println("  lorekeep --help             Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  LOREKEEP_OLLAMA_HOST        Ollama server address (default: http://localhost:11434)")
	fmt.Println("  LOREKEEP_DOCUMENT_ROOT      Directory of documents to index (default: input/)")
	fmt.Println("  DEBUG                       Optional: enable debug logging")
}

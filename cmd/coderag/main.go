package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coderag-dev/coderag/internal/config"
	"github.com/coderag-dev/coderag/internal/corpus"
	"github.com/coderag-dev/coderag/internal/engine"
	"github.com/coderag-dev/coderag/internal/mcp"
	"github.com/coderag-dev/coderag/internal/persist"
	"github.com/coderag-dev/coderag/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	flagRoot  string
	flagForce bool
	flagWatch bool
	flagTopK  int
)

func main() {
	log.SetOutput(os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "coderag",
	Short: "Semantic code retrieval for AI assistants",
	Long: `coderag indexes a codebase into a local retrieval index and answers
natural language questions with the most relevant code chunks.

Embeddings come from a local Ollama server or OpenAI when available;
without a provider, coderag degrades to a deterministic feature
embedding and finally to keyword search.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("coderag %s\n", version)
		fmt.Printf("  built:   %s\n", buildTime)
		fmt.Printf("  sqlite:  %s (%s build)\n", persist.DriverName, persist.BuildMode)
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the project corpus",
	Long: `Discover source files under the project root and build the retrieval
index. An unchanged corpus reuses the persisted snapshot unless --force
is given. With --watch the command stays running and re-indexes
whenever files change.`,
	RunE: runIndex,
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Retrieve relevant code for a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index status and statistics",
	RunE:  runStats,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the index and its persisted snapshot",
	RunE:  runReset,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol server for AI assistant integration.
The server reads protocol messages on stdin and writes responses to
stdout; all logging goes to stderr.`,
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "project root directory")
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "rebuild even when a matching snapshot exists")
	indexCmd.Flags().BoolVar(&flagWatch, "watch", false, "stay running and re-index on file changes")
	queryCmd.Flags().IntVarP(&flagTopK, "top-k", "k", 0, "number of context blocks to return")

	rootCmd.AddCommand(versionCmd, indexCmd, queryCmd, statsCmd, resetCmd, serveCmd)
}

// session bundles the engine with the corpus it was opened against.
type session struct {
	eng   *engine.Engine
	files []types.SourceFile
	opts  corpus.Options
	root  string
}

// openEngine loads config for the project root and assembles the engine
// plus the discovered corpus.
func openEngine() (*session, error) {
	absRoot, err := filepath.Abs(flagRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, err
	}

	eng, err := engine.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	opts := corpus.DefaultOptions()
	if len(cfg.Discovery.IgnorePatterns) > 0 {
		opts.IgnorePatterns = cfg.Discovery.IgnorePatterns
	}
	if cfg.Discovery.MaxFileSize > 0 {
		opts.MaxFileSize = cfg.Discovery.MaxFileSize
	}
	files, err := corpus.Discover(absRoot, opts)
	if err != nil {
		_ = eng.Close()
		return nil, err
	}
	return &session{eng: eng, files: files, opts: opts, root: absRoot}, nil
}

// loadOrIngest warm-starts from a snapshot when possible, otherwise
// rebuilds the index.
func loadOrIngest(ctx context.Context, eng *engine.Engine, files []types.SourceFile, force bool) (warm bool, err error) {
	if !force {
		if err := eng.LoadSnapshot(ctx, files); err == nil {
			return true, nil
		} else if !errors.Is(err, types.ErrSnapshotNotFound) {
			return false, err
		}
	}
	_, err = eng.Ingest(ctx, files, nil)
	return false, err
}

func runIndex(cmd *cobra.Command, args []string) error {
	s, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = s.eng.Close() }()

	ctx := cmd.Context()
	warm, err := loadOrIngest(ctx, s.eng, s.files, flagForce)
	if err != nil {
		return err
	}

	stats := s.eng.Stats(ctx)
	if warm {
		fmt.Printf("Reused snapshot: %d chunks (%s)\n", stats.IndexedChunks, stats.Backend)
	} else {
		fmt.Printf("Indexed %d files into %d chunks (%s)\n", len(s.files), stats.IndexedChunks, stats.Backend)
	}

	if !flagWatch {
		return nil
	}

	w, err := s.eng.WatchCorpus(ctx, s.root, s.opts)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()
	log.Printf("watching %s for changes", s.root)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("received %v, shutting down", sig)
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	s, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = s.eng.Close() }()

	ctx := cmd.Context()
	if _, err := loadOrIngest(ctx, s.eng, s.files, false); err != nil {
		return err
	}

	question := strings.Join(args, " ")
	out, err := s.eng.Query(ctx, question, flagTopK)
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Println("No relevant context found.")
		return nil
	}
	fmt.Println(out)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = s.eng.Close() }()

	ctx := cmd.Context()
	// Best effort: stats reflect the snapshot when one matches.
	_ = s.eng.LoadSnapshot(ctx, s.files)

	out, err := json.MarshalIndent(s.eng.Stats(ctx), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	s, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = s.eng.Close() }()

	ctx := cmd.Context()
	// Bind the engine to the current corpus so its snapshot is deleted too.
	_ = s.eng.LoadSnapshot(ctx, s.files)

	if err := s.eng.Reset(ctx); err != nil {
		return err
	}
	fmt.Println("Index cleared.")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Printf("coderag MCP server v%s starting (sqlite %s, %s build)",
		version, persist.DriverName, persist.BuildMode)

	server, err := mcp.NewServer(flagRoot)
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("received %v, shutting down", sig)
		cancel()
		return nil
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

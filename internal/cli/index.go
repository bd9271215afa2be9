package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/store"
)

var (
	replaceDocs  bool
	indexTimeout time.Duration
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Load document sources into a SQLite chunk index",
	Long: `Index parses document sources into chunks, annotates their entities and
stores them in a SQLite database that verify and batch can query with --db.

Chunks are upserted by ID; --replace first drops every chunk of the
documents being indexed so removed paragraphs disappear too.

Example:
  groundcheck index --db corpus.db --docs ./corpus
  groundcheck index --db corpus.db --docs https://en.wikipedia.org/wiki/Eiffel_Tower --replace`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	addStoreFlags(indexCmd)
	indexCmd.Flags().BoolVar(&replaceDocs, "replace", false, "drop existing chunks of each indexed document first")
	indexCmd.Flags().DurationVar(&indexTimeout, "timeout", 10*time.Minute, "overall timeout")
}

func runIndex(cmd *cobra.Command, args []string) error {
	db := dbPath
	if db == "" {
		db = appCfg.Store.DB
	}
	if db == "" {
		return usageErrorf("--db is required (or set store.db)")
	}
	if len(docSources) == 0 {
		return usageErrorf("--docs is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), indexTimeout)
	defer cancel()

	analyzer, err := newAnalyzer(appCfg)
	if err != nil {
		return err
	}
	chunks, err := newLoader(appCfg, analyzer).Load(ctx, docSources...)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Parsed %d chunks from %d source(s)\n", len(chunks), len(docSources))

	s, err := store.NewSQLite(db)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	if err := s.Migrate(ctx); err != nil {
		return err
	}

	if replaceDocs {
		removed := 0
		for _, doc := range documents(chunks) {
			n, err := s.DeleteDocument(ctx, doc)
			if err != nil {
				return err
			}
			removed += n
		}
		if removed > 0 {
			fmt.Fprintf(os.Stderr, "✓ Removed %d stale chunks\n", removed)
		}
	}

	if err := s.Put(ctx, chunks...); err != nil {
		return err
	}
	total, err := s.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Indexed into %s (%d chunks total)\n", db, total)
	return nil
}

// documents lists the distinct source documents in first-seen order
func documents(chunks []model.DocumentChunk) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range chunks {
		if !seen[c.SourceDocument] {
			seen[c.SourceDocument] = true
			out = append(out, c.SourceDocument)
		}
	}
	return out
}

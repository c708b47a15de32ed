package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rindra/folio/ingest"
	"github.com/rindra/folio/ingest/pdf"
)

var (
	ingestCollection string
	ingestStrategy   string
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "", "Ingest everything into one named collection instead of one per document")
	ingestCmd.Flags().StringVar(&ingestStrategy, "strategy", "", "Chunking strategy: flat or parent-child (default from config)")
	rootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|dir>...",
	Short: "Ingest documents into collections",
	Long: `Ingest files into the store, one collection per document by default.

Each file becomes its own collection named after the file (lowercased,
non-alphanumerics collapsed to underscores), so queries can target a
single document or federate across all of them. Directories are walked
recursively for supported file types (pdf, md, html, txt).

PDF files are split per page so answers can cite exact page numbers.

Failures are isolated per file: one unreadable document never aborts
the rest of the batch.

Examples:
  folio ingest report.pdf
  folio ingest ./docs
  folio ingest -c handbook chapter1.pdf chapter2.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

// supportedExt reports whether a walk should pick up the file.
func supportedExt(path string) bool {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "pdf", "md", "markdown", "html", "htm", "txt", "text":
		return true
	}
	return false
}

// collectFiles expands the argument list, walking directories.
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && supportedExt(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

type ingestSummary struct {
	Ingested []ingestEntry `json:"ingested"`
	Failed   []ingestError `json:"failed,omitempty"`
}

type ingestEntry struct {
	File       string `json:"file"`
	Collection string `json:"collection"`
	Chunks     int    `json:"chunks"`
	Pages      int    `json:"pages,omitempty"`
}

type ingestError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	ctx := cmd.Context()

	files, err := collectFiles(args)
	if err != nil {
		exitWithError(ExitDataError, "collecting files: %v", err)
	}
	if len(files) == 0 {
		exitWithError(ExitDataError, "no supported files found")
	}

	store := mustOpenStore(ctx, cfg)
	defer store.Close()
	_, embedding, shutdown := buildProviders(ctx, cfg)
	defer shutdown(ctx)

	strategy := ingestStrategy
	if strategy == "" {
		strategy = cfg.Ingest.Strategy
	}
	opts := []ingest.Option{
		ingest.WithExtractor(ingest.TypePDF, pdf.NewExtractor()),
		ingest.WithChunker(ingest.NewRecursiveChunker(
			ingest.WithMaxTokens(cfg.Ingest.MaxTokens),
			ingest.WithOverlapTokens(cfg.Ingest.OverlapTokens),
		)),
		ingest.WithBatchSize(cfg.Ingest.BatchSize),
	}
	if strategy == "parent-child" {
		opts = append(opts, ingest.WithStrategy(ingest.StrategyParentChild))
	}
	ingestor := ingest.NewIngestor(store, embedding, opts...)

	var summary ingestSummary
	for _, file := range files {
		collection := ingestCollection
		if collection == "" {
			collection = ingest.CollectionName(file)
		}

		content, err := os.ReadFile(file)
		if err != nil {
			summary.Failed = append(summary.Failed, ingestError{File: file, Error: err.Error()})
			continue
		}
		res, err := ingestor.IngestFile(ctx, collection, content, file)
		if err != nil {
			summary.Failed = append(summary.Failed, ingestError{File: file, Error: err.Error()})
			continue
		}
		summary.Ingested = append(summary.Ingested, ingestEntry{
			File:       file,
			Collection: res.Collection,
			Chunks:     res.ChunkCount,
			Pages:      res.PageCount,
		})
	}

	if jsonOutput {
		outputJSON(summary)
	} else {
		for _, e := range summary.Ingested {
			if e.Pages > 0 {
				fmt.Printf("ingested %s -> %s (%d chunks, %d pages)\n", e.File, e.Collection, e.Chunks, e.Pages)
			} else {
				fmt.Printf("ingested %s -> %s (%d chunks)\n", e.File, e.Collection, e.Chunks)
			}
		}
		for _, f := range summary.Failed {
			fmt.Fprintf(os.Stderr, "failed   %s: %s\n", f.File, f.Error)
		}
		fmt.Printf("%d ingested, %d failed\n", len(summary.Ingested), len(summary.Failed))
	}

	if len(summary.Ingested) == 0 {
		os.Exit(ExitDataError)
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	folio "github.com/rindra/folio"
)

var (
	queryCollection string
	queryBest       bool
	queryTopK       int
	queryPlain      bool
	queryMarkdown   bool
)

func init() {
	queryCmd.Flags().StringVarP(&queryCollection, "collection", "c", "", "Query a single collection instead of all of them")
	queryCmd.Flags().BoolVar(&queryBest, "best", false, "Return only the best answer across collections")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "Number of chunks to retrieve (default from config)")
	queryCmd.Flags().BoolVar(&queryPlain, "plain", false, "Plain text citations without terminal styling")
	queryCmd.Flags().BoolVar(&queryMarkdown, "markdown", false, "Markdown citations")
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question against ingested documents",
	Long: `Query ingested collections and print the answer with page citations.

By default every collection is queried and all answers are shown, each
with its own sources. Use --best to keep only the strongest answer, or
-c to target a single collection.

A collection that fails (backend down, empty index) is reported as
failed without affecting its siblings.

Examples:
  folio query "What is the refund policy?"
  folio query -c employee_handbook "How many vacation days?"
  folio query --best --json "Who signed the contract?"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	ctx := cmd.Context()
	question := args[0]

	store := mustOpenStore(ctx, cfg)
	defer store.Close()
	provider, embedding, shutdown := buildProviders(ctx, cfg)
	defer shutdown(ctx)

	topK := queryTopK
	if topK <= 0 {
		topK = cfg.Retrieval.TopK
	}
	retrieverOpts := []folio.RetrieverOption{
		folio.WithTopK(topK),
		folio.WithParentMerge(cfg.Retrieval.ParentMerge),
	}

	if queryCollection != "" {
		r, err := folio.NewCollectionRetriever(ctx, store, embedding, provider, queryCollection, retrieverOpts...)
		if err != nil {
			exitWithError(ExitError, "opening collection: %v", err)
		}
		res := r.Query(ctx, question, 0)
		printResults([]folio.QueryResult{res})
		if !res.Succeeded {
			os.Exit(ExitQueryFailed)
		}
		return nil
	}

	fed, err := folio.NewFederation(ctx, store, embedding, provider, nil,
		folio.WithConcurrency(cfg.Federation.Concurrency),
		folio.WithCollectionTimeout(time.Duration(cfg.Federation.TimeoutSeconds)*time.Second),
		folio.WithRetrieverOptions(retrieverOpts...),
	)
	if err != nil {
		exitWithError(ExitError, "building federation: %v", err)
	}

	if queryBest {
		res := fed.QueryBest(ctx, question)
		printResults([]folio.QueryResult{res})
		if !res.Succeeded {
			os.Exit(ExitQueryFailed)
		}
		return nil
	}

	results := fed.QueryAll(ctx, question).Results()
	printResults(results)
	for _, r := range results {
		if r.Succeeded {
			return nil
		}
	}
	os.Exit(ExitQueryFailed)
	return nil
}

// printResults renders query results in the selected output format.
func printResults(results []folio.QueryResult) {
	if jsonOutput {
		outputJSON(results)
		return
	}

	formatter := folio.NewFormatter()
	for i, r := range results {
		if i > 0 {
			fmt.Println()
		}
		if !r.Succeeded {
			fmt.Printf("[%s] query failed: %s\n", r.Collection, r.Err)
			continue
		}
		if len(results) > 1 {
			fmt.Printf("[%s]\n", r.Collection)
		}
		fmt.Println(r.Answer)
		fmt.Println()
		switch {
		case queryMarkdown:
			fmt.Println(formatter.Markdown(r.Chunks))
		case queryPlain:
			fmt.Println(formatter.Plain(r.Chunks))
		default:
			fmt.Println(formatter.Styled(r.Chunks))
		}
	}
}

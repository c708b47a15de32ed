package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(collectionsCmd)
}

var collectionsCmd = &cobra.Command{
	Use:   "collections [name]",
	Short: "List collections or show details for one",
	Long: `List every collection in the store, or show document and chunk
counts for a single named collection.

Examples:
  folio collections
  folio collections employee_handbook`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCollections,
}

func runCollections(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	ctx := cmd.Context()

	store := mustOpenStore(ctx, cfg)
	defer store.Close()

	if len(args) == 1 {
		info, err := store.CollectionInfo(ctx, args[0])
		if err != nil {
			exitWithError(ExitError, "collection info: %v", err)
		}
		if jsonOutput {
			outputJSON(info)
		} else {
			fmt.Printf("%s: %d documents, %d chunks", info.Name, info.Documents, info.Chunks)
			if info.HasParents {
				fmt.Print(" (parent-child)")
			}
			fmt.Println()
		}
		return nil
	}

	names, err := store.ListCollections(ctx)
	if err != nil {
		exitWithError(ExitError, "listing collections: %v", err)
	}
	if jsonOutput {
		if names == nil {
			names = []string{}
		}
		outputJSON(names)
		return nil
	}
	if len(names) == 0 {
		fmt.Println("No collections. Ingest a document first: folio ingest <file>")
		return nil
	}
	for _, name := range names {
		info, err := store.CollectionInfo(ctx, name)
		if err != nil {
			fmt.Printf("%s (unavailable: %v)\n", name, err)
			continue
		}
		fmt.Printf("%-40s %4d docs %6d chunks\n", info.Name, info.Documents, info.Chunks)
	}
	return nil
}

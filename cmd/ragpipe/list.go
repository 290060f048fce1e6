package ragpipe

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ragpipe/ragpipe/pkg/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		stores, err := store.Open(cfg)
		if err != nil {
			return fmt.Errorf("failed to open stores: %w", err)
		}
		defer func() {
			if closeErr := stores.Close(); closeErr != nil {
				fmt.Printf("Warning: failed to close stores: %v\n", closeErr)
			}
		}()

		docs, err := stores.Docs.List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		if len(docs) == 0 {
			fmt.Println("No documents ingested.")
			return nil
		}

		for _, doc := range docs {
			source := doc.Path
			if source == "" {
				source = doc.URL
			}
			if source == "" {
				source = "(inline)"
			}
			fmt.Printf("%s  %s  %s\n", doc.ID, doc.Created.Format("2006-01-02 15:04"), source)
		}
		fmt.Printf("\n%d documents\n", len(docs))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(listCmd)
}

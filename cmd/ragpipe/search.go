package ragpipe

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ragpipe/ragpipe/pkg/domain"
	"github.com/ragpipe/ragpipe/pkg/store"
)

var (
	searchTopK      int
	searchRetriever string
	searchFilters   []string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Retrieve chunks without generating an answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseKeyValues(searchFilters)
		if err != nil {
			return err
		}

		stores, err := store.Open(cfg)
		if err != nil {
			return fmt.Errorf("failed to open stores: %w", err)
		}
		defer func() {
			if closeErr := stores.Close(); closeErr != nil {
				fmt.Printf("Warning: failed to close stores: %v\n", closeErr)
			}
		}()

		p, err := buildPipeline(cfg, stores)
		if err != nil {
			return err
		}

		chunks, err := p.Retrieve(context.Background(), domain.QueryRequest{
			Query:     args[0],
			TopK:      searchTopK,
			Retriever: searchRetriever,
			Filters:   filters,
		})
		if err != nil {
			return err
		}

		if len(chunks) == 0 {
			fmt.Println("No results.")
			return nil
		}
		printChunks(chunks)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 0, "number of chunks to retrieve (default from config)")
	searchCmd.Flags().StringVar(&searchRetriever, "retriever", "", "retriever kind: dense, sparse, hyde, hybrid (default: hybrid)")
	searchCmd.Flags().StringArrayVar(&searchFilters, "filter", nil, "metadata filter key=value (repeatable)")

	RootCmd.AddCommand(searchCmd)
}

package ragpipe

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ragpipe/ragpipe/pkg/domain"
	"github.com/ragpipe/ragpipe/pkg/store"
)

var (
	topK          int
	temperature   float64
	maxTokens     int
	retrieverKind string
	showSources   bool
	queryFilters  []string
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question over the ingested documents",
	Long: `Query retrieves relevant chunks with the selected retriever (dense,
sparse, hyde, or hybrid), optionally reranks them, and generates a
grounded answer.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseKeyValues(queryFilters)
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

		resp, err := p.Query(context.Background(), domain.QueryRequest{
			Query:       args[0],
			TopK:        topK,
			Temperature: temperature,
			MaxTokens:   maxTokens,
			Retriever:   retrieverKind,
			Filters:     filters,
			ShowSources: showSources,
		})
		if err != nil {
			return err
		}

		fmt.Println(resp.Answer)
		if showSources {
			fmt.Println("\nSources:")
			printChunks(resp.Sources)
		}
		fmt.Printf("\nElapsed: %s\n", resp.Elapsed)
		return nil
	},
}

func printChunks(chunks []domain.Chunk) {
	for i, chunk := range chunks {
		content := chunk.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		fmt.Printf("  [%d] score=%.4f document=%s\n      %s\n", i+1, chunk.Score, chunk.DocumentID, content)
	}
}

func init() {
	queryCmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to retrieve (default from config)")
	queryCmd.Flags().Float64Var(&temperature, "temperature", 0, "generation temperature")
	queryCmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "maximum tokens to generate")
	queryCmd.Flags().StringVar(&retrieverKind, "retriever", "", "retriever kind: dense, sparse, hyde, hybrid (default: hybrid)")
	queryCmd.Flags().BoolVar(&showSources, "show-sources", false, "print the retrieved chunks")
	queryCmd.Flags().StringArrayVar(&queryFilters, "filter", nil, "metadata filter key=value (repeatable)")

	RootCmd.AddCommand(queryCmd)
}

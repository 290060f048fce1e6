package ragpipe

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ragpipe/ragpipe/pkg/providers"
	"github.com/ragpipe/ragpipe/pkg/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check provider connectivity and store statistics",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Printf("Checking provider at %s...\n", cfg.Provider.BaseURL)

	llm, err := providers.NewOpenAILLMProvider(cfg.Provider)
	if err != nil {
		fmt.Printf("  llm: failed to create client: %v\n", err)
	} else if err := llm.Health(ctx); err != nil {
		fmt.Printf("  llm: unavailable: %v\n", err)
	} else {
		fmt.Printf("  llm: ok (%s)\n", cfg.Provider.Model)
	}

	embedder, err := providers.NewOpenAIEmbedderProvider(cfg.Provider)
	if err != nil {
		fmt.Printf("  embedder: failed to create client: %v\n", err)
	} else if err := embedder.Health(ctx); err != nil {
		fmt.Printf("  embedder: unavailable: %v\n", err)
	} else {
		fmt.Printf("  embedder: ok (%s)\n", cfg.Provider.EmbeddingModel)
	}

	stores, err := store.Open(cfg)
	if err != nil {
		fmt.Printf("  stores: failed to open: %v\n", err)
		return nil
	}
	defer func() {
		if closeErr := stores.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close stores: %v\n", closeErr)
		}
	}()

	stats, err := stores.Local().Stats(ctx)
	if err != nil {
		fmt.Printf("  stores: failed to read statistics: %v\n", err)
		return nil
	}

	fmt.Printf("Store backend: %s\n", cfg.Store.Backend)
	fmt.Printf("  documents: %d\n", stats.TotalDocuments)
	fmt.Printf("  chunks:    %d\n", stats.TotalChunks)
	return nil
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

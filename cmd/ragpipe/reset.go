package ragpipe

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ragpipe/ragpipe/pkg/store"
)

var forceReset bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all ingested documents, vectors, and the keyword index",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !forceReset {
			fmt.Print("This deletes all ingested data. Continue? [y/N]: ")
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
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

		ctx := context.Background()
		if err := stores.Vector.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset vector store: %w", err)
		}
		if err := stores.Docs.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset document store: %w", err)
		}
		if err := stores.Keyword.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset keyword index: %w", err)
		}

		fmt.Println("All data deleted.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&forceReset, "force", "f", false, "skip the confirmation prompt")

	RootCmd.AddCommand(resetCmd)
}

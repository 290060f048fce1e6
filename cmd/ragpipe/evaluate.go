package ragpipe

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ragpipe/ragpipe/pkg/domain"
	"github.com/ragpipe/ragpipe/pkg/evaluate"
	"github.com/ragpipe/ragpipe/pkg/providers"
	"github.com/ragpipe/ragpipe/pkg/store"
)

var (
	datasetPath   string
	generateFirst bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a question/answer dataset with the LLM as judge",
	Long: `Evaluate reads a JSON dataset of records with question, contexts,
answer, and ground_truth fields and scores faithfulness, answer
relevancy, context recall, and context precision.

With --generate, contexts and answers are produced by running each
question through the pipeline first; the dataset then only needs
question and ground_truth fields.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataset, err := evaluate.LoadDataset(datasetPath)
		if err != nil {
			return err
		}

		ctx := context.Background()

		if generateFirst {
			if err := fillDataset(ctx, dataset); err != nil {
				return err
			}
		}

		llm, err := providers.NewOpenAILLMProvider(cfg.Provider)
		if err != nil {
			return fmt.Errorf("failed to create llm: %w", err)
		}
		evaluator, err := evaluate.New(llm)
		if err != nil {
			return err
		}

		result, err := evaluator.Evaluate(ctx, dataset)
		if err != nil {
			return err
		}

		fmt.Printf("Evaluated %d records:\n", result.Records)
		names := make([]string, 0, len(result.Metrics))
		for name := range result.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-18s %.3f\n", name, result.Metrics[name])
		}
		return nil
	},
}

// fillDataset runs each question through the pipeline, recording the
// retrieved contexts and generated answer on the record.
func fillDataset(ctx context.Context, dataset *evaluate.Dataset) error {
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

	for i := range dataset.Records {
		rec := &dataset.Records[i]
		resp, err := p.Query(ctx, domain.QueryRequest{
			Query:       rec.Question,
			ShowSources: true,
		})
		if err != nil {
			return fmt.Errorf("failed to answer %q: %w", rec.Question, err)
		}

		rec.Answer = resp.Answer
		rec.Contexts = rec.Contexts[:0]
		for _, chunk := range resp.Sources {
			rec.Contexts = append(rec.Contexts, chunk.Content)
		}
	}
	return nil
}

func init() {
	evaluateCmd.Flags().StringVar(&datasetPath, "dataset", "", "path to the JSON evaluation dataset (required)")
	evaluateCmd.Flags().BoolVar(&generateFirst, "generate", false, "run questions through the pipeline before judging")
	_ = evaluateCmd.MarkFlagRequired("dataset")

	RootCmd.AddCommand(evaluateCmd)
}

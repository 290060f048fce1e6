package ragpipe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ragpipe/ragpipe/pkg/config"
	"github.com/ragpipe/ragpipe/pkg/domain"
	"github.com/ragpipe/ragpipe/pkg/ingest"
	"github.com/ragpipe/ragpipe/pkg/store"
)

var (
	ingestText    string
	ingestMeta    []string
	chunkSize     int
	chunkOverlap  int
	recursiveWalk bool
	ingestedExts  = map[string]bool{".txt": true, ".md": true, ".pdf": true}
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|directory|url]",
	Short: "Import documents into the vector store and keyword index",
	Long: `Ingest extracts text from a file, directory, or web page, splits it
into chunks, embeds the chunks, and stores them for retrieval. Inline
text can be ingested with --text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && ingestText == "" {
			return fmt.Errorf("provide a file, directory, or URL, or use --text")
		}

		metadata, err := parseKeyValues(ingestMeta)
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

		engine, err := buildEngine(cfg, stores)
		if err != nil {
			return err
		}

		ctx := context.Background()
		base := domain.IngestRequest{
			ChunkSize: chunkSize,
			Overlap:   chunkOverlap,
			Metadata:  metadata,
		}
		applyChunkDefaults(&base, cfg.Chunker)

		if ingestText != "" {
			req := base
			req.Content = ingestText
			return ingestOne(ctx, engine, req, "inline text")
		}

		target := args[0]
		if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
			req := base
			req.URL = target
			return ingestOne(ctx, engine, req, target)
		}

		info, err := os.Stat(target)
		if err != nil {
			return fmt.Errorf("failed to stat path %s: %w", target, err)
		}
		if info.IsDir() {
			return ingestDirectory(ctx, engine, base, target)
		}

		req := base
		req.FilePath = target
		return ingestOne(ctx, engine, req, target)
	},
}

// applyChunkDefaults fills unset chunk flags from configuration, each
// independently.
func applyChunkDefaults(req *domain.IngestRequest, chunker config.ChunkerConfig) {
	if req.ChunkSize == 0 {
		req.ChunkSize = chunker.ChunkSize
	}
	if req.Overlap == 0 {
		req.Overlap = chunker.Overlap
	}
}

func ingestDirectory(ctx context.Context, engine *ingest.Engine, base domain.IngestRequest, dir string) error {
	if !recursiveWalk {
		return fmt.Errorf("directory ingestion requires --recursive")
	}

	var count int
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !ingestedExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		req := base
		req.FilePath = path
		if err := ingestOne(ctx, engine, req, path); err != nil {
			if errors.Is(err, domain.ErrDocumentExists) {
				fmt.Printf("Skipped (already ingested): %s\n", path)
				return nil
			}
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d documents from %s\n", count, dir)
	return nil
}

func ingestOne(ctx context.Context, engine *ingest.Engine, req domain.IngestRequest, label string) error {
	resp, err := engine.Ingest(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", label, err)
	}
	fmt.Printf("Ingested %s: document %s, %d chunks\n", label, resp.DocumentID, resp.ChunkCount)
	return nil
}

func init() {
	ingestCmd.Flags().StringVar(&ingestText, "text", "", "ingest inline text instead of a file")
	ingestCmd.Flags().StringArrayVar(&ingestMeta, "metadata", nil, "metadata key=value pair (repeatable)")
	ingestCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "chunk size (default from config)")
	ingestCmd.Flags().IntVar(&chunkOverlap, "overlap", 0, "chunk overlap (default from config)")
	ingestCmd.Flags().BoolVarP(&recursiveWalk, "recursive", "r", false, "recurse into directories")

	RootCmd.AddCommand(ingestCmd)
}

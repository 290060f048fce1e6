package ragpipe

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

var (
	forceInit  bool
	outputPath string
)

// defaultConfigFile mirrors the keys pkg/config reads.
type defaultConfigFile struct {
	Debug    bool `toml:"debug"`
	Provider struct {
		BaseURL        string  `toml:"base_url"`
		APIKey         string  `toml:"api_key"`
		Model          string  `toml:"model"`
		EmbeddingModel string  `toml:"embedding_model"`
		Temperature    float64 `toml:"temperature"`
	} `toml:"provider"`
	Store struct {
		Backend    string `toml:"backend"`
		URL        string `toml:"url"`
		Collection string `toml:"collection"`
	} `toml:"store"`
	Chunker struct {
		ChunkSize int    `toml:"chunk_size"`
		Overlap   int    `toml:"overlap"`
		Method    string `toml:"method"`
	} `toml:"chunker"`
	Retrieval struct {
		TopK        int     `toml:"top_k"`
		RRFConstant float64 `toml:"rrf_constant"`
	} `toml:"retrieval"`
	Rerank struct {
		Enabled bool   `toml:"enabled"`
		URL     string `toml:"url"`
		Model   string `toml:"model"`
	} `toml:"rerank"`
	Ingest struct {
		Concurrency int `toml:"concurrency"`
	} `toml:"ingest"`
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	Long: `Init writes a ragpipe.toml with default settings to the current
directory. Set RAGPIPE_PROVIDER_API_KEY in the environment or edit the
file before ingesting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := outputPath
		if configPath == "" {
			configPath = "ragpipe.toml"
		}

		if !forceInit {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
			}
		}

		if dir := filepath.Dir(configPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}

		content, err := renderDefaultConfig()
		if err != nil {
			return err
		}

		if err := os.WriteFile(configPath, content, 0644); err != nil {
			return fmt.Errorf("failed to write configuration file: %w", err)
		}

		fmt.Printf("Configuration file created at: %s\n", configPath)
		fmt.Println("Set RAGPIPE_PROVIDER_API_KEY, then ingest your first document:")
		fmt.Println("   ragpipe ingest path/to/document.pdf")
		return nil
	},
}

func renderDefaultConfig() ([]byte, error) {
	var c defaultConfigFile
	c.Provider.BaseURL = "https://api.openai.com/v1"
	c.Provider.Model = "gpt-4o-mini"
	c.Provider.EmbeddingModel = "text-embedding-3-small"
	c.Provider.Temperature = 0.1
	c.Store.Backend = "sqlite"
	c.Store.URL = "localhost:6334"
	c.Store.Collection = "ragpipe"
	c.Chunker.ChunkSize = 500
	c.Chunker.Overlap = 50
	c.Chunker.Method = "sentence"
	c.Retrieval.TopK = 5
	c.Retrieval.RRFConstant = 60
	c.Rerank.URL = "https://api.cohere.com/v2/rerank"
	c.Rerank.Model = "rerank-v3.5"
	c.Ingest.Concurrency = 4

	body, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to render default configuration: %w", err)
	}

	header := "# ragpipe configuration\n# api_key values may be left empty and provided via RAGPIPE_PROVIDER_API_KEY\n# and RAGPIPE_RERANK_API_KEY instead.\n\n"
	return append([]byte(header), body...), nil
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing configuration file")
	initCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path (default: ./ragpipe.toml)")

	RootCmd.AddCommand(initCmd)
}

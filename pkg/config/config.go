package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ragpipe/ragpipe/pkg/log"
)

type Config struct {
	Home      string          `mapstructure:"home"`
	Debug     bool            `mapstructure:"debug"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Store     StoreConfig     `mapstructure:"store"`
	Keyword   KeywordConfig   `mapstructure:"keyword"`
	Chunker   ChunkerConfig   `mapstructure:"chunker"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Rerank    RerankConfig    `mapstructure:"rerank"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
}

// ProviderConfig configures the OpenAI-compatible LLM and embedding endpoint.
type ProviderConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float64 `mapstructure:"temperature"`
}

// StoreConfig selects and configures the vector storage backend.
type StoreConfig struct {
	Backend    string `mapstructure:"backend"` // "qdrant" or "sqlite"
	URL        string `mapstructure:"url"`     // qdrant host:port
	Collection string `mapstructure:"collection"`
	DBPath     string `mapstructure:"db_path"` // sqlite file, also document store
}

type KeywordConfig struct {
	IndexPath string `mapstructure:"index_path"`
}

type ChunkerConfig struct {
	ChunkSize int    `mapstructure:"chunk_size"`
	Overlap   int    `mapstructure:"overlap"`
	Method    string `mapstructure:"method"`
}

type RetrievalConfig struct {
	TopK        int     `mapstructure:"top_k"`
	Threshold   float64 `mapstructure:"threshold"`
	RRFConstant float64 `mapstructure:"rrf_constant"`
}

type RerankConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type IngestConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	BatchSize   int `mapstructure:"batch_size"`
}

func Load(configPath string) (*Config, error) {
	config := &Config{}

	home := os.Getenv("RAGPIPE_HOME")
	if home == "" {
		home = "~/.ragpipe"
	}
	home = expandHomePath(home)

	if configPath != "" {
		absPath, _ := filepath.Abs(configPath)
		viper.SetConfigFile(absPath)
		home = filepath.Dir(absPath)
	} else {
		// Check order: ./ragpipe.toml, then ~/.ragpipe/ragpipe.toml
		if _, err := os.Stat("ragpipe.toml"); err == nil {
			abs, _ := filepath.Abs("ragpipe.toml")
			viper.SetConfigFile(abs)
			home = filepath.Dir(abs)
		} else {
			viper.SetConfigFile(filepath.Join(home, "ragpipe.toml"))
		}
	}

	setDefaults()
	bindEnvVars()

	if err := viper.ReadInConfig(); err != nil {
		if configPath != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		// Default config missing is fine, run on defaults and env.
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Home == "" {
		config.Home = home
	}
	config.Home = expandHomePath(config.Home)

	config.resolvePaths()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("debug", false)

	viper.SetDefault("provider.base_url", "")
	viper.SetDefault("provider.model", "gpt-4o-mini")
	viper.SetDefault("provider.embedding_model", "text-embedding-3-small")
	viper.SetDefault("provider.temperature", 0.0)

	viper.SetDefault("store.backend", "sqlite")
	viper.SetDefault("store.collection", "ragpipe_documents")

	viper.SetDefault("chunker.chunk_size", 500)
	viper.SetDefault("chunker.overlap", 50)
	viper.SetDefault("chunker.method", "sentence")

	viper.SetDefault("retrieval.top_k", 5)
	viper.SetDefault("retrieval.threshold", 0.0)
	viper.SetDefault("retrieval.rrf_constant", 60.0)

	viper.SetDefault("rerank.enabled", false)
	viper.SetDefault("rerank.model", "rerank-v3.5")

	viper.SetDefault("ingest.concurrency", 4)
	viper.SetDefault("ingest.batch_size", 100)
}

func bindEnvVars() {
	viper.SetEnvPrefix("RAGPIPE")
	viper.AutomaticEnv()

	bindings := map[string]string{
		"home":                     "RAGPIPE_HOME",
		"provider.api_key":         "RAGPIPE_PROVIDER_API_KEY",
		"provider.base_url":        "RAGPIPE_PROVIDER_BASE_URL",
		"provider.model":           "RAGPIPE_PROVIDER_MODEL",
		"provider.embedding_model": "RAGPIPE_PROVIDER_EMBEDDING_MODEL",
		"store.backend":            "RAGPIPE_STORE_BACKEND",
		"store.url":                "RAGPIPE_STORE_URL",
		"store.collection":         "RAGPIPE_STORE_COLLECTION",
		"store.db_path":            "RAGPIPE_STORE_DB_PATH",
		"rerank.url":               "RAGPIPE_RERANK_URL",
		"rerank.api_key":           "RAGPIPE_RERANK_API_KEY",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Warnf("failed to bind %s env var: %v", key, err)
		}
	}
}

// DataDir returns the path to the data directory.
func (c *Config) DataDir() string {
	return filepath.Join(c.Home, "data")
}

func (c *Config) Validate() error {
	validBackends := map[string]bool{"qdrant": true, "sqlite": true}
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store backend: %s (supported: qdrant, sqlite)", c.Store.Backend)
	}

	if c.Store.Backend == "qdrant" && c.Store.URL == "" {
		return fmt.Errorf("store.url is required for the qdrant backend")
	}

	if c.Store.Collection == "" {
		return fmt.Errorf("store collection cannot be empty")
	}

	if c.Chunker.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive: %d", c.Chunker.ChunkSize)
	}

	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("overlap must be between 0 and chunk size: %d", c.Chunker.Overlap)
	}

	validMethods := map[string]bool{"sentence": true, "paragraph": true, "fixed": true, "token": true}
	if !validMethods[c.Chunker.Method] {
		return fmt.Errorf("invalid chunker method: %s (supported: sentence, paragraph, fixed, token)", c.Chunker.Method)
	}

	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("top_k must be positive: %d", c.Retrieval.TopK)
	}

	if c.Retrieval.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative: %f", c.Retrieval.Threshold)
	}

	if c.Rerank.Enabled && c.Rerank.URL == "" {
		return fmt.Errorf("rerank.url is required when reranking is enabled")
	}

	if c.Ingest.Concurrency <= 0 {
		return fmt.Errorf("ingest concurrency must be positive: %d", c.Ingest.Concurrency)
	}

	return nil
}

func (c *Config) resolvePaths() {
	if c.Store.DBPath == "" {
		c.Store.DBPath = filepath.Join(c.DataDir(), "ragpipe.db")
	}
	if c.Keyword.IndexPath == "" {
		c.Keyword.IndexPath = filepath.Join(c.DataDir(), "keyword.bleve")
	}

	c.Store.DBPath = expandHomePath(c.Store.DBPath)
	c.Keyword.IndexPath = expandHomePath(c.Keyword.IndexPath)
	ensureParentDir(c.Store.DBPath)
	ensureParentDir(c.Keyword.IndexPath)
}

func expandHomePath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

func ensureParentDir(filePath string) {
	if filePath == "" {
		return
	}

	dir := filepath.Dir(filePath)
	if dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warnf("failed to create directory %s: %v", dir, err)
		}
	}
}

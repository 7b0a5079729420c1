package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultDataDir is the default directory name for coderag data
	DefaultDataDir = ".coderag"
	// DefaultDBFile is the default snapshot database filename
	DefaultDBFile = "snapshots.db"
)

// Config holds the application configuration
type Config struct {
	// DataDir is the directory where coderag stores its data
	DataDir string `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	// DBPath is the path to the SQLite snapshot database
	DBPath string `mapstructure:"db_path" yaml:"db_path,omitempty"`

	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding,omitempty"`
	Chunking  ChunkingConfig  `mapstructure:"chunking" yaml:"chunking,omitempty"`
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery,omitempty"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" yaml:"retrieval,omitempty"`
}

// EmbeddingConfig holds embedding provider settings
type EmbeddingConfig struct {
	// Provider is the semantic provider kind: "ollama" or "openai";
	// empty auto-detects from the environment
	Provider string `mapstructure:"provider" yaml:"provider,omitempty"`
	// Model is the embedding model name
	Model string `mapstructure:"model" yaml:"model,omitempty"`
	// BaseURL is the provider API URL
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
	// Timeout bounds a single embedding call
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
	// DisableSemantic skips the semantic tier entirely
	DisableSemantic bool `mapstructure:"disable_semantic" yaml:"disable_semantic,omitempty"`
	// DisableFeature skips the feature-heuristic tier
	DisableFeature bool `mapstructure:"disable_feature" yaml:"disable_feature,omitempty"`
	// CacheSize bounds the embedding LRU cache
	CacheSize int `mapstructure:"cache_size" yaml:"cache_size,omitempty"`
}

// ChunkingConfig holds chunker settings
type ChunkingConfig struct {
	// ChunkSize is the target chunk size in characters
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size,omitempty"`
	// ChunkOverlap is the overlap between adjacent chunks in characters
	ChunkOverlap int `mapstructure:"chunk_overlap" yaml:"chunk_overlap,omitempty"`
}

// DiscoveryConfig holds corpus discovery settings
type DiscoveryConfig struct {
	// IgnorePatterns are gitignore-style patterns applied on top of
	// .gitignore and .coderagignore
	IgnorePatterns []string `mapstructure:"ignore_patterns" yaml:"ignore_patterns,omitempty"`
	// MaxFileSize is the maximum file size to index in bytes
	MaxFileSize int64 `mapstructure:"max_file_size" yaml:"max_file_size,omitempty"`
}

// RetrievalConfig holds query settings
type RetrievalConfig struct {
	// TopK is the default number of context blocks per query
	TopK int `mapstructure:"top_k" yaml:"top_k,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: DefaultDataDir,
		DBPath:  filepath.Join(DefaultDataDir, DefaultDBFile),
		Embedding: EmbeddingConfig{
			Provider: "",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
			Timeout:  30 * time.Second,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    1200,
			ChunkOverlap: 180,
		},
		Discovery: DiscoveryConfig{
			IgnorePatterns: []string{
				".git/",
				".coderag/",
				"node_modules/",
				"vendor/",
				"__pycache__/",
				"*.min.js",
				"*.min.css",
				"*.lock",
				"go.sum",
				"package-lock.json",
			},
			MaxFileSize: 1024 * 1024, // 1MB
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
	}
}

// Load reads configuration for projectDir, merging the config file in the
// data directory, environment variables, and defaults.
func Load(projectDir string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(projectDir, DefaultDataDir))
	v.AddConfigPath(".")

	v.SetEnvPrefix("CODERAG")
	v.AutomaticEnv()
	_ = v.BindEnv("embedding.provider", "CODERAG_EMBEDDING_PROVIDER")
	_ = v.BindEnv("embedding.model", "CODERAG_EMBEDDING_MODEL")
	_ = v.BindEnv("embedding.base_url", "CODERAG_EMBEDDING_BASE_URL")
	_ = v.BindEnv("embedding.disable_semantic", "CODERAG_DISABLE_SEMANTIC")
	_ = v.BindEnv("retrieval.top_k", "CODERAG_TOP_K")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(projectDir, cfg.DataDir)
	}
	if !filepath.IsAbs(cfg.DBPath) {
		cfg.DBPath = filepath.Join(projectDir, cfg.DBPath)
	}

	return cfg, nil
}

// EnsureDataDir creates the data directory if it doesn't exist
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o755)
}

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App     AppConfig     `toml:"app"`
	LLM     LLMConfig     `toml:"llm"`
	RAG     RAGConfig     `toml:"rag"`
	Storage StorageConfig `toml:"storage"`
}

type AppConfig struct {
	Name    string `toml:"name"`
	Env     string `toml:"env"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	GinMode string `toml:"gin_mode"`
}

type LLMConfig struct {
	BaseURL            string `toml:"base_url"`
	APIKey             string `toml:"api_key"`
	Model              string `toml:"model"`
	EmbeddingModel     string `toml:"embedding_model"`
	ChatTimeoutSeconds int    `toml:"chat_timeout_seconds"`
	RAGTimeoutSeconds  int    `toml:"rag_timeout_seconds"`
}

type RAGConfig struct {
	ChunkSize       int `toml:"chunk_size"`
	ChunkOverlap    int `toml:"chunk_overlap"`
	TopK            int `toml:"top_k"`
	MaxContextChars int `toml:"max_context_chars"`
	MaxUploadMB     int `toml:"max_upload_mb"`
}

type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "fortress-assistant",
			Env:     "dev",
			Host:    "127.0.0.1",
			Port:    8080,
			GinMode: "release",
		},
		LLM: LLMConfig{
			BaseURL:            "http://127.0.0.1:11434/v1",
			APIKey:             "",
			Model:              "qwen2.5:7b-instruct-q4_K_M",
			EmbeddingModel:     "nomic-embed-text",
			ChatTimeoutSeconds: 60,
			RAGTimeoutSeconds:  90,
		},
		RAG: RAGConfig{
			ChunkSize:       1000,
			ChunkOverlap:    200,
			TopK:            3,
			MaxContextChars: 3000,
			MaxUploadMB:     10,
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.EmbeddingModel = getEnv("LLM_EMBEDDING_MODEL", cfg.LLM.EmbeddingModel)
	cfg.LLM.ChatTimeoutSeconds = getEnvAsInt("LLM_CHAT_TIMEOUT_SECONDS", cfg.LLM.ChatTimeoutSeconds)
	cfg.LLM.RAGTimeoutSeconds = getEnvAsInt("LLM_RAG_TIMEOUT_SECONDS", cfg.LLM.RAGTimeoutSeconds)

	cfg.RAG.ChunkSize = getEnvAsInt("RAG_CHUNK_SIZE", cfg.RAG.ChunkSize)
	cfg.RAG.ChunkOverlap = getEnvAsInt("RAG_CHUNK_OVERLAP", cfg.RAG.ChunkOverlap)
	cfg.RAG.TopK = getEnvAsInt("RAG_TOP_K", cfg.RAG.TopK)
	cfg.RAG.MaxContextChars = getEnvAsInt("RAG_MAX_CONTEXT_CHARS", cfg.RAG.MaxContextChars)
	cfg.RAG.MaxUploadMB = getEnvAsInt("RAG_MAX_UPLOAD_MB", cfg.RAG.MaxUploadMB)

	cfg.Storage.DataDir = getEnv("STORAGE_DATA_DIR", cfg.Storage.DataDir)
}

// validate rejects chunk settings that would make ingestion loop or stall.
func validate(cfg *Config) error {
	if cfg.RAG.ChunkSize <= 0 {
		return fmt.Errorf("invalid rag.chunk_size %d", cfg.RAG.ChunkSize)
	}
	if cfg.RAG.ChunkOverlap < 0 || cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		return fmt.Errorf("invalid rag.chunk_overlap %d for chunk_size %d", cfg.RAG.ChunkOverlap, cfg.RAG.ChunkSize)
	}
	if cfg.RAG.TopK <= 0 {
		return fmt.Errorf("invalid rag.top_k %d", cfg.RAG.TopK)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

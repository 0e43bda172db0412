package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	path := writeConfig(t, "config.json", `{"vector_store":{"type":"memory"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 1000, cfg.Ingest.ChunkSize)
	require.Equal(t, 200, cfg.Ingest.Overlap())
	require.Equal(t, 4, cfg.RAG.TopK)
	require.Equal(t, 1, cfg.Ingest.Workers)
	require.Equal(t, 1536, cfg.VectorStore.Dimension)
	require.Equal(t, DefaultTriggerKeywords, cfg.Line.TriggerKeywords)
	require.Equal(t, "./documents", cfg.Ingest.Source.Data["dir"])
	require.Equal(t, "openai", cfg.AI.Embedder.Provider)
	require.Equal(t, "sk-test", cfg.AI.Embedder.Data["api_key"])
	require.Len(t, cfg.AI.Generators, 1)
	require.Equal(t, "sk-test", cfg.AI.Generators[0].Data["api_key"])
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
port: 9000
log_config:
  level: debug
  console: true
vector_store:
  type: memory
  dimension: 8
ingest:
  chunk_size: 500
  chunk_overlap: 50
line:
  trigger_keywords: ["/ask"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, "debug", cfg.LogConfig.Level)
	require.True(t, cfg.LogConfig.Console)
	require.Equal(t, 8, cfg.VectorStore.Dimension)
	require.Equal(t, 500, cfg.Ingest.ChunkSize)
	require.Equal(t, []string{"/ask"}, cfg.Line.TriggerKeywords)
}

func TestEnvDoesNotOverrideFileValues(t *testing.T) {
	t.Setenv("LINE_CHANNEL_SECRET", "from-env")
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "token-env")
	t.Setenv("DATABASE_URI", "postgres://env")
	path := writeConfig(t, "config.json", `{"line":{"channel_secret":"from-file"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.Line.ChannelSecret)
	require.Equal(t, "token-env", cfg.Line.AccessToken)
	require.Equal(t, "postgres://env", cfg.Database.DSN)
}

func TestLoadDotEnvSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DOCQA_TEST_DOTENV=hello\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DOCQA_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, ".env.local"), envFile))
	require.Equal(t, "hello", os.Getenv("DOCQA_TEST_DOTENV"))
}

func validServeConfig() *Config {
	cfg := &Config{
		VectorStore: VectorStoreConfig{Type: VectorStoreMemory},
		Line:        LineConfig{ChannelSecret: "secret", AccessToken: "token"},
	}
	cfg.applyDefaults()
	return cfg
}

func TestLoadKeepsExplicitZeroOverlap(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	path := writeConfig(t, "config.json",
		`{"vector_store":{"type":"memory"},"ingest":{"chunk_size":150,"chunk_overlap":0}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 150, cfg.Ingest.ChunkSize)
	require.Equal(t, 0, cfg.Ingest.Overlap())
	require.NoError(t, cfg.ValidateIngest())
}

func TestValidateServe(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{name: "valid", mutate: func(c *Config) {}, ok: true},
		{name: "missing channel secret", mutate: func(c *Config) { c.Line.ChannelSecret = "" }},
		{name: "missing access token", mutate: func(c *Config) { c.Line.AccessToken = "" }},
		{name: "pgvector without database", mutate: func(c *Config) { c.VectorStore.Type = VectorStorePgvector }},
		{name: "unknown store", mutate: func(c *Config) { c.VectorStore.Type = "faiss" }},
		{name: "overlap not below size", mutate: func(c *Config) {
			size := c.Ingest.ChunkSize
			c.Ingest.ChunkOverlap = &size
		}},
		{name: "empty keyword", mutate: func(c *Config) { c.Line.TriggerKeywords = []string{"/bot", " "} }},
		{name: "generator without model", mutate: func(c *Config) { c.AI.Generators[0].Model = "" }},
		{name: "embedding cache without database", mutate: func(c *Config) { c.AI.EmbeddingCache = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validServeConfig()
			tt.mutate(cfg)
			err := cfg.ValidateServe()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, appErr.ErrConfiguration)
		})
	}
}

func TestValidateIngestDoesNotNeedLineCredentials(t *testing.T) {
	cfg := validServeConfig()
	cfg.Line = LineConfig{}
	require.NoError(t, cfg.ValidateIngest())
	require.ErrorIs(t, cfg.ValidateServe(), appErr.ErrConfiguration)
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

const (
	VectorStorePgvector = "pgvector"
	VectorStoreMemory   = "memory"
)

var DefaultTriggerKeywords = []string{"/bot", "!ask", "/ถาม", "@bot"}

const (
	defaultHelpMessage     = "สวัสดีครับ! พิมพ์คำถามตามหลัง Keyword ได้เลยครับ\nตัวอย่าง: /bot สินค้ามีอะไรบ้าง"
	defaultApologyMessage  = "ขออภัยครับ ระบบขัดข้องชั่วคราว กรุณาลองใหม่อีกครั้งภายหลัง"
	defaultNoAnswerMessage = "ขออภัยครับ ไม่พบข้อมูลเกี่ยวกับเรื่องนี้ในเอกสารของเรา"
)

type Config struct {
	Port        int               `json:"port"`
	LogConfig   logger.LogConfig  `json:"log_config"`
	Database    DatabaseConfig    `json:"database"`
	VectorStore VectorStoreConfig `json:"vector_store"`
	AI          AIConfig          `json:"ai"`
	Ingest      IngestConfig      `json:"ingest"`
	Line        LineConfig        `json:"line"`
	RAG         RAGConfig         `json:"rag"`
	Admin       AdminConfig       `json:"admin"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

func (c DatabaseConfig) Configured() bool {
	return c.DSN != "" || c.Host != ""
}

type VectorStoreConfig struct {
	Type      string `json:"type"`
	Dimension int    `json:"dimension"`
	Snapshot  string `json:"snapshot"`
}

type ModelConfig struct {
	Provider string                 `json:"provider"`
	Model    string                 `json:"model"`
	Data     map[string]interface{} `json:"data"`
}

type AIConfig struct {
	Generators               []ModelConfig `json:"generators"`
	Embedder                 ModelConfig   `json:"embedder"`
	Timeout                  int           `json:"timeout"`
	QueryCacheSize           int           `json:"query_cache_size"`
	QueryCacheTTL            int           `json:"query_cache_ttl"`
	EmbeddingCache           bool          `json:"embedding_cache"`
	EmbeddingCacheMaxAgeDays int           `json:"embedding_cache_max_age_days"`
}

type SourceConfig struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

type IngestConfig struct {
	Source        SourceConfig `json:"source"`
	ChunkSize     int          `json:"chunk_size"`
	ChunkOverlap  *int         `json:"chunk_overlap"`
	Workers       int          `json:"workers"`
	BatchSize     int          `json:"batch_size"`
	RatePerSecond float64      `json:"rate_per_second"`
	Cron          string       `json:"cron"`
}

// Overlap returns the configured chunk overlap. An explicit 0 disables
// overlap; only an absent value falls back to the default.
func (c IngestConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return 0
	}
	return *c.ChunkOverlap
}

type LineConfig struct {
	ChannelSecret   string   `json:"channel_secret"`
	AccessToken     string   `json:"access_token"`
	APIBaseURL      string   `json:"api_base_url"`
	Timeout         int      `json:"timeout"`
	TriggerKeywords []string `json:"trigger_keywords"`
	HelpMessage     string   `json:"help_message"`
	ApologyMessage  string   `json:"apology_message"`
}

type RAGConfig struct {
	TopK            int    `json:"top_k"`
	NoAnswerMessage string `json:"no_answer_message"`
	AnswerTimeout   int    `json:"answer_timeout"`
}

type AdminConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// Load reads the config file (json, or yaml by extension), overlays secrets
// from the environment and applies defaults. Mode specific checks live in
// ValidateServe and ValidateIngest.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	var cfg Config
	if err := decode(path, raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := LoadDotEnv(".env.local", ".env"); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func decode(path string, raw []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var tree interface{}
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return err
		}
		data, err := json.Marshal(tree)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(raw, cfg)
	}
}

// LoadDotEnv loads env files in order; earlier files win and real
// environment variables are never overridden.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

var providerKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"gemini":     "GEMINI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

func (c *Config) applyEnv() {
	setIfEmpty(&c.Line.ChannelSecret, "LINE_CHANNEL_SECRET")
	setIfEmpty(&c.Line.AccessToken, "LINE_CHANNEL_ACCESS_TOKEN")
	setIfEmpty(&c.Database.DSN, "DATABASE_URI")
	setIfEmpty(&c.Admin.JWTSecret, "ADMIN_JWT_SECRET")
	injectAPIKey(&c.AI.Embedder)
	for i := range c.AI.Generators {
		injectAPIKey(&c.AI.Generators[i])
	}
}

func setIfEmpty(dst *string, env string) {
	if strings.TrimSpace(*dst) != "" {
		return
	}
	*dst = strings.TrimSpace(os.Getenv(env))
}

func injectAPIKey(mc *ModelConfig) {
	env, ok := providerKeyEnv[strings.ToLower(strings.TrimSpace(mc.Provider))]
	if !ok {
		return
	}
	if mc.Data == nil {
		mc.Data = map[string]interface{}{}
	}
	if key, _ := mc.Data["api_key"].(string); strings.TrimSpace(key) != "" {
		return
	}
	if value := strings.TrimSpace(os.Getenv(env)); value != "" {
		mc.Data["api_key"] = value
	}
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if c.VectorStore.Type == "" {
		c.VectorStore.Type = VectorStorePgvector
	}
	if c.VectorStore.Dimension == 0 {
		c.VectorStore.Dimension = 1536
	}
	if c.AI.Embedder.Provider == "" {
		c.AI.Embedder.Provider = "openai"
		injectAPIKey(&c.AI.Embedder)
	}
	if c.AI.Embedder.Model == "" {
		c.AI.Embedder.Model = "text-embedding-3-small"
	}
	if len(c.AI.Generators) == 0 {
		gen := ModelConfig{Provider: "openai", Model: "gpt-4o-mini"}
		injectAPIKey(&gen)
		c.AI.Generators = []ModelConfig{gen}
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 30
	}
	if c.AI.EmbeddingCacheMaxAgeDays == 0 {
		c.AI.EmbeddingCacheMaxAgeDays = 30
	}
	if c.Ingest.Source.Type == "" {
		c.Ingest.Source.Type = "local"
	}
	if c.Ingest.Source.Type == "local" {
		if c.Ingest.Source.Data == nil {
			c.Ingest.Source.Data = map[string]interface{}{}
		}
		if dir, _ := c.Ingest.Source.Data["dir"].(string); dir == "" {
			c.Ingest.Source.Data["dir"] = "./documents"
		}
	}
	if c.Ingest.ChunkSize == 0 {
		c.Ingest.ChunkSize = 1000
	}
	if c.Ingest.ChunkOverlap == nil {
		overlap := 200
		c.Ingest.ChunkOverlap = &overlap
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 1
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 1
	}
	if c.Line.APIBaseURL == "" {
		c.Line.APIBaseURL = "https://api.line.me"
	}
	if c.Line.Timeout == 0 {
		c.Line.Timeout = 10
	}
	if len(c.Line.TriggerKeywords) == 0 {
		c.Line.TriggerKeywords = append([]string(nil), DefaultTriggerKeywords...)
	}
	if c.Line.HelpMessage == "" {
		c.Line.HelpMessage = defaultHelpMessage
	}
	if c.Line.ApologyMessage == "" {
		c.Line.ApologyMessage = defaultApologyMessage
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = 4
	}
	if c.RAG.NoAnswerMessage == "" {
		c.RAG.NoAnswerMessage = defaultNoAnswerMessage
	}
	if c.RAG.AnswerTimeout == 0 {
		c.RAG.AnswerTimeout = 60
	}
}

// ValidateIngest checks everything the ingestion pipeline needs.
func (c *Config) ValidateIngest() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := validateModel("ai.embedder", c.AI.Embedder); err != nil {
		return err
	}
	if c.Ingest.ChunkSize <= 0 {
		return configErr("ingest.chunk_size must be positive")
	}
	if overlap := c.Ingest.Overlap(); overlap < 0 || overlap >= c.Ingest.ChunkSize {
		return configErr("ingest.chunk_overlap must be in [0, chunk_size)")
	}
	switch c.Ingest.Source.Type {
	case "local", "s3":
	default:
		return configErr("ingest.source.type must be local or s3")
	}
	return nil
}

// ValidateServe checks everything the webhook server needs, including the
// ingestion settings used by scheduled and admin triggered runs.
func (c *Config) ValidateServe() error {
	if err := c.ValidateIngest(); err != nil {
		return err
	}
	if len(c.AI.Generators) == 0 {
		return configErr("ai.generators is required")
	}
	for i, gen := range c.AI.Generators {
		if err := validateModel(fmt.Sprintf("ai.generators[%d]", i), gen); err != nil {
			return err
		}
	}
	if c.Line.ChannelSecret == "" {
		return configErr("line.channel_secret (LINE_CHANNEL_SECRET) is required")
	}
	if c.Line.AccessToken == "" {
		return configErr("line.access_token (LINE_CHANNEL_ACCESS_TOKEN) is required")
	}
	for _, kw := range c.Line.TriggerKeywords {
		if strings.TrimSpace(kw) == "" {
			return configErr("line.trigger_keywords must not contain empty keywords")
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.VectorStore.Dimension <= 0 {
		return configErr("vector_store.dimension must be positive")
	}
	switch c.VectorStore.Type {
	case VectorStorePgvector:
		if !c.Database.Configured() {
			return configErr("database.dsn (DATABASE_URI) or database.host is required for pgvector store")
		}
	case VectorStoreMemory:
	default:
		return configErr("vector_store.type must be pgvector or memory")
	}
	if c.AI.EmbeddingCache && !c.Database.Configured() {
		return configErr("ai.embedding_cache requires a database")
	}
	return nil
}

func validateModel(field string, mc ModelConfig) error {
	if strings.TrimSpace(mc.Provider) == "" {
		return configErr(field + ".provider is required")
	}
	if strings.TrimSpace(mc.Model) == "" {
		return configErr(field + ".model is required")
	}
	return nil
}

func configErr(msg string) error {
	return fmt.Errorf("%w: %s", appErr.ErrConfiguration, msg)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalid 配置不合法（启动阶段即失败）
var ErrInvalid = errors.New("invalid configuration")

// pgvector 的 hnsw.ef_search 上限
const maxEfSearch = 1000

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Config 应用配置
type Config struct {
	Env         string
	AppSecret   string
	DatabaseURL string
	Port        string

	// 向量索引
	VectorIndexName       string
	VectorIndexAutoCreate bool

	// 向量模型
	EmbeddingProvider    string
	OllamaHost           string
	OllamaModel          string
	OpenAIKey            string
	OpenAIEmbeddingModel string
	HashEmbeddingDim     int

	// 语义搜索
	Search SearchConfig

	// 数据集导入
	DatasetPath     string
	IngestBatchSize int
}

// SearchConfig 语义搜索的调优参数
type SearchConfig struct {
	OversamplingFactor int
	PromptMaxLength    int
	LimitMin           int
	LimitMax           int
	QueryCacheSize     int
	QueryCacheTTL      time.Duration
}

// DefaultSearchConfig 默认搜索参数：20 倍过采样，prompt 最长 64 字符，limit 1-10
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		OversamplingFactor: 20,
		PromptMaxLength:    64,
		LimitMin:           1,
		LimitMax:           10,
		QueryCacheSize:     1000,
		QueryCacheTTL:      time.Hour,
	}
}

// Load 加载配置
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "movies")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	search := DefaultSearchConfig()
	search.OversamplingFactor = getEnvInt("SEARCH_OVERSAMPLING", search.OversamplingFactor)
	search.PromptMaxLength = getEnvInt("SEARCH_PROMPT_MAX_LENGTH", search.PromptMaxLength)
	search.LimitMax = getEnvInt("SEARCH_LIMIT_MAX", search.LimitMax)
	search.QueryCacheSize = getEnvInt("QUERY_CACHE_SIZE", search.QueryCacheSize)
	search.QueryCacheTTL = getEnvDuration("QUERY_CACHE_TTL", search.QueryCacheTTL)

	appSecret := getEnv("APP_SECRET", "your-secret-key-change-in-production")
	if getEnv("APP_ENV", "development") == "production" && appSecret == "your-secret-key-change-in-production" {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	return &Config{
		Env:                   getEnv("APP_ENV", "development"),
		AppSecret:             appSecret,
		DatabaseURL:           dbURL,
		Port:                  getEnv("PORT", "8000"),
		VectorIndexName:       getEnv("VECTOR_INDEX_NAME", "movies_embedding_hnsw_idx"),
		VectorIndexAutoCreate: getEnvBool("VECTOR_INDEX_AUTOCREATE", true),
		EmbeddingProvider:     getEnv("EMBEDDING_PROVIDER", "ollama"),
		OllamaHost:            getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:           getEnv("OLLAMA_MODEL", "all-minilm"),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		OpenAIEmbeddingModel:  getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		HashEmbeddingDim:      getEnvInt("HASH_EMBEDDING_DIM", 384),
		Search:                search,
		DatasetPath:           getEnv("DATASET_PATH", ""),
		IngestBatchSize:       getEnvInt("INGEST_BATCH_SIZE", 64),
	}
}

// Validate 校验配置，错误均包装 ErrInvalid
func (c *Config) Validate() error {
	if !identifierPattern.MatchString(c.VectorIndexName) {
		return fmt.Errorf("%w: VECTOR_INDEX_NAME %q is not a valid identifier", ErrInvalid, c.VectorIndexName)
	}

	switch c.EmbeddingProvider {
	case "ollama", "hash":
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for the openai provider", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown EMBEDDING_PROVIDER %q", ErrInvalid, c.EmbeddingProvider)
	}

	s := c.Search
	if s.OversamplingFactor < 1 {
		return fmt.Errorf("%w: SEARCH_OVERSAMPLING must be positive", ErrInvalid)
	}
	if s.PromptMaxLength < 1 {
		return fmt.Errorf("%w: SEARCH_PROMPT_MAX_LENGTH must be positive", ErrInvalid)
	}
	if s.LimitMin < 1 || s.LimitMax < s.LimitMin {
		return fmt.Errorf("%w: search limit range %d-%d is empty", ErrInvalid, s.LimitMin, s.LimitMax)
	}
	if s.OversamplingFactor*s.LimitMax > maxEfSearch {
		return fmt.Errorf("%w: SEARCH_OVERSAMPLING x SEARCH_LIMIT_MAX exceeds %d candidates", ErrInvalid, maxEfSearch)
	}
	if c.IngestBatchSize < 1 {
		return fmt.Errorf("%w: INGEST_BATCH_SIZE must be positive", ErrInvalid)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}

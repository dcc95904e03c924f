package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"gopkg.in/yaml.v3"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Store   StoreConfig
	Journal JournalConfig
	Log     LogConfig
}

// fileConfig 是可选 YAML 配置文件的结构，环境变量优先级更高。
type fileConfig struct {
	Port string `yaml:"port"`
	AI   struct {
		Model          string   `yaml:"model"`
		BaseURL        string   `yaml:"baseUrl"`
		Region         string   `yaml:"region"`
		Temperature    *float64 `yaml:"temperature"`
		TopP           *float64 `yaml:"topP"`
		MaxTokens      *int     `yaml:"maxTokens"`
		HistoryLimit   *int     `yaml:"historyLimit"`
		RequestTimeout string   `yaml:"requestTimeout"`
	} `yaml:"ai"`
	Store struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"store"`
	Journal struct {
		DefaultUserID   *int64 `yaml:"defaultUserId"`
		AnalyticsWindow *int   `yaml:"analyticsWindow"`
	} `yaml:"journal"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  *int   `yaml:"maxSizeMb"`
		MaxAgeDays *int   `yaml:"maxAgeDays"`
	} `yaml:"log"`
}

// Load 从环境变量加载配置；若设置了 CONFIG_FILE，则先读取该 YAML 文件作为默认值。
func Load() (*Config, error) {
	file, err := loadFileConfig(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig(file)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(file)
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig(file)
	if err != nil {
		return nil, err
	}

	journal, err := loadJournalConfig(file)
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig(file)
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Store: store, Journal: journal, Log: logCfg}, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig(file fileConfig) (ServerConfig, error) {
	port := getEnvOrDefault("PORT", file.Port)
	if port == "" {
		port = "5000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":5000" 或 "127.0.0.1:5000"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	BaseURL        string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	HistoryLimit   int
	RequestTimeout time.Duration
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	chatModel, err := ark.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create ark chat model: %w", err)
	}
	return chatModel, nil
}

func loadAIConfig(file fileConfig) (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		temperature = file.AI.Temperature
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}
	if topP == nil {
		topP = file.AI.TopP
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens == nil {
		maxTokens = file.AI.MaxTokens
	}

	historyLimit := 6
	if file.AI.HistoryLimit != nil {
		historyLimit = *file.AI.HistoryLimit
	}
	if override, err := parseOptionalIntEnv("AI_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		historyLimit = *override
	}
	if historyLimit < 1 {
		historyLimit = 1
	}

	timeout, err := parseDuration("AI_REQUEST_TIMEOUT", getEnvOrDefault("AI_REQUEST_TIMEOUT", file.AI.RequestTimeout))
	if err != nil {
		return AIConfig{}, err
	}

	// Model 为旧变量名，保留兼容。
	modelName := getEnvOrDefault("ARK_MODEL", strings.TrimSpace(os.Getenv("Model")))
	if modelName == "" {
		modelName = file.AI.Model
	}

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          modelName,
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", firstNonEmpty(file.AI.BaseURL, "https://ark.cn-beijing.volces.com/api/v3")),
		Region:         getEnvOrDefault("ARK_REGION", firstNonEmpty(file.AI.Region, "cn-beijing")),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		HistoryLimit:   historyLimit,
		RequestTimeout: timeout,
	}, nil
}

// StoreConfig 选择存储引擎。
type StoreConfig struct {
	Driver string
	Path   string
}

func loadStoreConfig(file fileConfig) (StoreConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", firstNonEmpty(file.Store.Driver, "memory")))
	switch driver {
	case "memory", "sqlite":
	default:
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value: %q", driver)
	}

	return StoreConfig{
		Driver: driver,
		Path:   getEnvOrDefault("STORE_PATH", firstNonEmpty(file.Store.Path, "data/voice-twin.db")),
	}, nil
}

// JournalConfig 控制语音日志流水线。
type JournalConfig struct {
	DefaultUserID   int64
	AnalyticsWindow int
}

func loadJournalConfig(file fileConfig) (JournalConfig, error) {
	cfg := JournalConfig{DefaultUserID: 1, AnalyticsWindow: 20}
	if file.Journal.DefaultUserID != nil {
		cfg.DefaultUserID = *file.Journal.DefaultUserID
	}
	if file.Journal.AnalyticsWindow != nil {
		cfg.AnalyticsWindow = *file.Journal.AnalyticsWindow
	}

	if raw := strings.TrimSpace(os.Getenv("DEFAULT_USER_ID")); raw != "" {
		val, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return JournalConfig{}, fmt.Errorf("invalid DEFAULT_USER_ID value %q: %w", raw, err)
		}
		cfg.DefaultUserID = val
	}

	window, err := parseOptionalIntEnv("ANALYTICS_WINDOW")
	if err != nil {
		return JournalConfig{}, err
	}
	if window != nil {
		cfg.AnalyticsWindow = *window
	}
	if cfg.AnalyticsWindow < 1 {
		return JournalConfig{}, fmt.Errorf("invalid ANALYTICS_WINDOW value: %d", cfg.AnalyticsWindow)
	}

	return cfg, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxAgeDays int
}

func loadLogConfig(file fileConfig) (LogConfig, error) {
	cfg := LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", firstNonEmpty(file.Log.Level, "info")),
		Format: getEnvOrDefault("LOG_FORMAT", firstNonEmpty(file.Log.Format, "json")),
		File:   getEnvOrDefault("LOG_FILE", file.Log.File),
	}
	if file.Log.MaxSizeMB != nil {
		cfg.MaxSizeMB = *file.Log.MaxSizeMB
	}
	if file.Log.MaxAgeDays != nil {
		cfg.MaxAgeDays = *file.Log.MaxAgeDays
	}

	size, err := parseOptionalIntEnv("LOG_MAX_SIZE_MB")
	if err != nil {
		return LogConfig{}, err
	}
	if size != nil {
		cfg.MaxSizeMB = *size
	}

	age, err := parseOptionalIntEnv("LOG_MAX_AGE_DAYS")
	if err != nil {
		return LogConfig{}, err
	}
	if age != nil {
		cfg.MaxAgeDays = *age
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func parseDuration(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Scoring     ScoringConfig    `mapstructure:"scoring"`
	Pagination  PaginationConfig `mapstructure:"pagination"`
	Validation  ValidationConfig `mapstructure:"validation"`
	Normalize   NormalizeConfig  `mapstructure:"normalize"`
	Queue       QueueConfig      `mapstructure:"queue"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig 資料庫配置
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 組出 Postgres 連線字串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig 搜尋結果緩存配置
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// ScoringConfig 相關性評分配置
// 加分與門檻值是設定，不是常數
type ScoringConfig struct {
	BonusAllMatch        int `mapstructure:"bonus_all_match"`
	BonusSmallRecipe     int `mapstructure:"bonus_small_recipe"`
	BonusMidRecipe       int `mapstructure:"bonus_mid_recipe"`
	SmallRecipeThreshold int `mapstructure:"small_recipe_threshold"`
	MidRecipeThreshold   int `mapstructure:"mid_recipe_threshold"`
}

// PaginationConfig 分頁配置
type PaginationConfig struct {
	DefaultPage    int `mapstructure:"default_page"`
	DefaultPerPage int `mapstructure:"default_per_page"`
	MaxPerPage     int `mapstructure:"max_per_page"`
}

// ValidationConfig 過濾條件驗證配置
type ValidationConfig struct {
	TitleMaxLength   int `mapstructure:"title_max_length"`
	NameMaxLength    int `mapstructure:"name_max_length"`
	MaxIngredientIDs int `mapstructure:"max_ingredient_ids"`
}

// NormalizeConfig 批次正規化配置
type NormalizeConfig struct {
	BatchSize      int  `mapstructure:"batch_size"`
	EnableFallback bool `mapstructure:"enable_fallback"`
}

// QueueConfig 批次佇列設定
type QueueConfig struct {
	MaxSize int `mapstructure:"max_size"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件（不存在時沿用環境變數）
	_ = godotenv.Load()

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("database.host", "POSTGRES_HOST")
	viper.BindEnv("database.port", "POSTGRES_PORT")
	viper.BindEnv("database.user", "POSTGRES_USER")
	viper.BindEnv("database.password", "POSTGRES_PASSWORD")
	viper.BindEnv("database.name", "POSTGRES_NAME")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.ttl", "CACHE_TTL")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Default 回傳帶預設值的設定（測試用，不讀取環境）
func Default() *Config {
	return &Config{
		App:    AppConfig{Env: "test", Debug: false, Version: "dev", Name: "recipe-normalizer"},
		Server: ServerConfig{Port: 8080},
		Cache:  CacheConfig{Enabled: false, TTL: 30 * time.Second},
		Scoring: ScoringConfig{
			BonusAllMatch:        20,
			BonusSmallRecipe:     10,
			BonusMidRecipe:       5,
			SmallRecipeThreshold: 5,
			MidRecipeThreshold:   8,
		},
		Pagination: PaginationConfig{DefaultPage: 1, DefaultPerPage: 20, MaxPerPage: 100},
		Validation: ValidationConfig{TitleMaxLength: 200, NameMaxLength: 100, MaxIngredientIDs: 50},
		Normalize:  NormalizeConfig{BatchSize: 100, EnableFallback: true},
		Queue:      QueueConfig{MaxSize: 10},
		LogLevel:   "info",
	}
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "recipe-normalizer")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// 資料庫設定
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.name", "recipes")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.max_open_conns", 20)
	viper.SetDefault("database.conn_max_lifetime", "1h")

	// Redis 設定
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// 搜尋結果快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl", "30s")

	// 評分設定
	viper.SetDefault("scoring.bonus_all_match", 20)
	viper.SetDefault("scoring.bonus_small_recipe", 10)
	viper.SetDefault("scoring.bonus_mid_recipe", 5)
	viper.SetDefault("scoring.small_recipe_threshold", 5)
	viper.SetDefault("scoring.mid_recipe_threshold", 8)

	// 分頁設定
	viper.SetDefault("pagination.default_page", 1)
	viper.SetDefault("pagination.default_per_page", 20)
	viper.SetDefault("pagination.max_per_page", 100)

	// 驗證設定
	viper.SetDefault("validation.title_max_length", 200)
	viper.SetDefault("validation.name_max_length", 100)
	viper.SetDefault("validation.max_ingredient_ids", 50)

	// 批次正規化設定
	viper.SetDefault("normalize.batch_size", 100)
	viper.SetDefault("normalize.enable_fallback", true)

	// 佇列設定
	viper.SetDefault("queue.max_size", 10)

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	// 去重視窗預設
	viper.SetDefault("dedup_window", "1s")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證快取設定
	if config.Cache.Enabled && config.Cache.TTL <= 0 {
		return fmt.Errorf("invalid cache ttl")
	}

	// 驗證評分設定
	if config.Scoring.SmallRecipeThreshold > config.Scoring.MidRecipeThreshold {
		return fmt.Errorf("small recipe threshold must not exceed mid recipe threshold")
	}

	// 驗證分頁設定
	if config.Pagination.MaxPerPage <= 0 || config.Pagination.DefaultPerPage <= 0 {
		return fmt.Errorf("invalid pagination config")
	}
	if config.Pagination.DefaultPerPage > config.Pagination.MaxPerPage {
		return fmt.Errorf("default per_page must not exceed max per_page")
	}

	// 驗證批次設定
	if config.Normalize.BatchSize <= 0 {
		return fmt.Errorf("invalid normalize batch size")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	return nil
}

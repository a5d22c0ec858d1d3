package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/babelchat/server/internal/types"
)

// Config holds the resolved server configuration.
type Config struct {
	ServerAddr        string        `mapstructure:"addr"`
	DatabaseDSN       string        `mapstructure:"database_dsn"`
	RedisAddr         string        `mapstructure:"redis_addr"`
	TranslateEndpoint string        `mapstructure:"translate_endpoint"`
	TranslateAPIKey   string        `mapstructure:"translate_api_key"`
	TranslateTimeout  time.Duration `mapstructure:"translate_timeout"`
	Languages         []string      `mapstructure:"languages"`
	OutboxSize        int           `mapstructure:"outbox_size"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	LogLevel          string        `mapstructure:"log_level"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// TargetLanguages returns the configured language set as typed codes.
func (c *Config) TargetLanguages() []types.Language {
	langs := make([]types.Language, 0, len(c.Languages))
	for _, l := range c.Languages {
		langs = append(langs, types.Language(l))
	}
	return langs
}

// Load resolves configuration from defaults, an optional yaml config file,
// and BABELCHAT_* environment variables, in increasing precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("addr", "localhost:8000")
	v.SetDefault("database_dsn", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("translate_endpoint", "https://translation.googleapis.com/language/translate/v2")
	v.SetDefault("translate_api_key", "")
	v.SetDefault("translate_timeout", 5*time.Second)
	v.SetDefault("languages", []string{"en", "ko", "ms"})
	v.SetDefault("outbox_size", 256)
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout", 10*time.Second)

	v.SetEnvPrefix("BABELCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if len(c.Languages) == 0 {
		return fmt.Errorf("at least one language must be configured")
	}
	for _, l := range c.Languages {
		if !types.Language(l).Valid() {
			return fmt.Errorf("unsupported language %q", l)
		}
	}
	if c.OutboxSize <= 0 {
		return fmt.Errorf("outbox size must be positive")
	}
	return nil
}

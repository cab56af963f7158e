package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server          ServerConfig              `json:"server" mapstructure:"server"`
	Storage         StorageConfig             `json:"storage" mapstructure:"storage"`
	Auth            AuthConfig                `json:"auth" mapstructure:"auth"`
	Providers       map[string]ProviderConfig `json:"providers" mapstructure:"providers"`
	DefaultProvider string                    `json:"default_provider" mapstructure:"default_provider"`
	Study           StudyConfig               `json:"study" mapstructure:"study"`
}

type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// StorageConfig selects the key-value blob store backing the session
// envelope and settings keys. Backend is one of "sqlite", "postgres",
// or "memory".
type StorageConfig struct {
	Backend  string         `json:"backend" mapstructure:"backend"`
	Path     string         `json:"path" mapstructure:"path"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode"`
}

type AuthConfig struct {
	// PasswordHash is the bcrypt hash of the single UI user's password.
	// Empty disables login and leaves the API open (local development).
	PasswordHash string `json:"password_hash" mapstructure:"password_hash"`
	JWTSecret    string `json:"jwt_secret" mapstructure:"jwt_secret"`
}

type ProviderConfig struct {
	Type         string `json:"type" mapstructure:"type"`
	APIKey       string `json:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL      string `json:"base_url,omitempty" mapstructure:"base_url"`
	DefaultModel string `json:"default_model" mapstructure:"default_model"`
}

type StudyConfig struct {
	// MaxDocumentChars bounds the document text sent to the summarizer.
	MaxDocumentChars int `json:"max_document_chars" mapstructure:"max_document_chars"`
	// MaxSuggestions bounds the autocomplete suggestion list.
	MaxSuggestions int    `json:"max_suggestions" mapstructure:"max_suggestions"`
	Language       string `json:"language" mapstructure:"language"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".studypal"))
	}

	viper.SetEnvPrefix("STUDYPAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("storage.backend", "sqlite")
	viper.SetDefault("storage.path", defaultSQLitePath())
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", 5432)
	viper.SetDefault("storage.postgres.user", "studypal")
	viper.SetDefault("storage.postgres.database", "studypal")
	viper.SetDefault("storage.postgres.sslmode", "disable")
	viper.SetDefault("default_provider", "gemini")
	viper.SetDefault("study.max_document_chars", 60000)
	viper.SetDefault("study.max_suggestions", 5)
	viper.SetDefault("study.language", "en-US")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{Host: "localhost", Port: 8080},
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    defaultSQLitePath(),
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "studypal",
				Database: "studypal",
				SSLMode:  "disable",
			},
		},
		Providers:       map[string]ProviderConfig{},
		DefaultProvider: "gemini",
		Study: StudyConfig{
			MaxDocumentChars: 60000,
			MaxSuggestions:   5,
			Language:         "en-US",
		},
	}
	applyEnvOverrides(cfg)
	return cfg
}

// applyEnvOverrides picks up provider credentials from the environment so a
// bare config file still works out of the box.
func applyEnvOverrides(cfg *Config) {
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		p := cfg.Providers["gemini"]
		p.Type = "gemini"
		if p.APIKey == "" {
			p.APIKey = key
		}
		if p.DefaultModel == "" {
			p.DefaultModel = "gemini-2.5-flash"
		}
		cfg.Providers["gemini"] = p
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		p := cfg.Providers["openai"]
		p.Type = "openai"
		if p.APIKey == "" {
			p.APIKey = key
		}
		if p.DefaultModel == "" {
			p.DefaultModel = "gpt-4o-mini"
		}
		cfg.Providers["openai"] = p
	}
	if secret := os.Getenv("STUDYPAL_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
}

func defaultSQLitePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "studypal.db"
	}
	return filepath.Join(homeDir, ".studypal", "studypal.db")
}

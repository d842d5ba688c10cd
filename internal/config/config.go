package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration, shared by the chat client and
// the demo backend.
type Config struct {
	Backend  BackendConfig
	Server   ServerConfig
	Database DatabaseConfig
	LLM      LLMConfig
	Log      LogConfig
}

// BackendConfig is the client side: where the wip backend lives.
type BackendConfig struct {
	URL              string
	TimeoutSeconds   int
	DefaultSessionID string
}

// ServerConfig is the backend side.
type ServerConfig struct {
	Listen string
}

// DatabaseConfig holds sqlite settings for the backend's calendar store.
type DatabaseConfig struct {
	Path string
}

// LLMConfig holds provider settings.
type LLMConfig struct {
	Provider  string
	APIKeyEnv string
	APIKey    string
	Model     string
	BaseURL   string
}

// LogConfig holds the file sink settings. A TUI cannot log to stderr
// without tearing the screen, so logs go to a file.
type LogConfig struct {
	File  string
	Level string
}

// Load reads configuration from file and env. Env var overrides use prefix WIPCHAT_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("backend.url", "http://127.0.0.1:8090")
	v.SetDefault("backend.timeout_seconds", 90)
	v.SetDefault("backend.default_session_id", "default-session")
	v.SetDefault("server.listen", "127.0.0.1:8090")
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "wipchat", "wipchat.db"))
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.api_key_env", "GROQ_API_KEY")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "openai/gpt-oss-20b")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("log.file", filepath.Join(os.Getenv("HOME"), ".local", "share", "wipchat", "wipchat.log"))
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("WIPCHAT_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "wipchat"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("WIPCHAT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
// The API key is stored in plain text in the config file; encourage users to prefer env vars.
func Save(cfg Config) error {
	path := os.Getenv("WIPCHAT_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "wipchat", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("backend.url", cfg.Backend.URL)
	v.Set("backend.timeout_seconds", cfg.Backend.TimeoutSeconds)
	v.Set("backend.default_session_id", cfg.Backend.DefaultSessionID)
	v.Set("server.listen", cfg.Server.Listen)
	v.Set("database.path", cfg.Database.Path)
	v.Set("llm.provider", cfg.LLM.Provider)
	v.Set("llm.api_key_env", cfg.LLM.APIKeyEnv)
	v.Set("llm.api_key", cfg.LLM.APIKey)
	v.Set("llm.model", cfg.LLM.Model)
	v.Set("llm.base_url", cfg.LLM.BaseURL)
	v.Set("log.file", cfg.Log.File)
	v.Set("log.level", cfg.Log.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// APIKeyFromEnv resolves the key with env taking precedence over file.
func (c LLMConfig) APIKeyFromEnv() string {
	if c.APIKeyEnv != "" {
		if key := os.Getenv(c.APIKeyEnv); key != "" {
			return key
		}
	}
	return c.APIKey
}

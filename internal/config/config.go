package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/simonyos/webpilot/internal/llm"
	"github.com/simonyos/webpilot/internal/logging"
)

// ErrMissingCredential is returned when the selected backend has no API key.
var ErrMissingCredential = errors.New("missing API key")

// Config holds all application configuration
type Config struct {
	// API Keys
	OpenAIKey string `mapstructure:"openai_api_key"`
	XAIKey    string `mapstructure:"xai_api_key"`

	// Session defaults
	Backend      string        `mapstructure:"backend"`
	Model        string        `mapstructure:"model"`
	Protocol     string        `mapstructure:"protocol"`
	BaseURL      string        `mapstructure:"base_url"`
	MaxTurns     int           `mapstructure:"max_turns"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	LogLevel     string        `mapstructure:"log_level"`
	HistoryDB    string        `mapstructure:"history_db"`
}

// Keys lists every settable config key.
var Keys = []string{
	"openai_api_key",
	"xai_api_key",
	"backend",
	"model",
	"protocol",
	"base_url",
	"max_turns",
	"fetch_timeout",
	"log_level",
	"history_db",
}

// key aliases accepted by Set and Delete
var aliases = map[string]string{
	"openai":   "openai_api_key",
	"xai":      "xai_api_key",
	"provider": "backend",
}

// explicit environment names; other keys bind as WEBPILOT_<KEY>
var envNames = map[string]string{
	"openai_api_key": "OPENAI_API_KEY",
	"xai_api_key":    "XAI_API_KEY",
}

var (
	configDir  string
	configFile string
)

func init() {
	// Use ~/.config/webpilot for config
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	configDir = filepath.Join(home, ".config", "webpilot")
	configFile = filepath.Join(configDir, "config.json")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("openai_api_key", "")
	v.SetDefault("xai_api_key", "")
	v.SetDefault("backend", llm.OpenAIBackend.Name)
	v.SetDefault("model", "")
	v.SetDefault("protocol", "")
	v.SetDefault("base_url", "")
	v.SetDefault("max_turns", 10)
	v.SetDefault("fetch_timeout", "10s")
	v.SetDefault("log_level", "info")
	v.SetDefault("history_db", filepath.Join(configDir, "history.db"))
}

// Load reads the config file, then the dotenv file at envFile (if any), then
// the environment. Later sources win. A missing config or dotenv file is not
// an error.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if exists(configFile) {
		v.SetConfigFile(configFile)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if envFile != "" && exists(envFile) {
		dotenv := viper.New()
		dotenv.SetConfigFile(envFile)
		dotenv.SetConfigType("env")
		if err := dotenv.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
		if err := v.MergeConfigMap(dotenvSettings(dotenv)); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", envFile, err)
		}
	}

	v.SetEnvPrefix("webpilot")
	for _, key := range Keys {
		if name, ok := envNames[key]; ok {
			_ = v.BindEnv(key, name)
		} else {
			_ = v.BindEnv(key)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// dotenvSettings keeps the dotenv entries that name a config key, either
// directly (OPENAI_API_KEY) or with the WEBPILOT_ prefix.
func dotenvSettings(v *viper.Viper) map[string]any {
	out := map[string]any{}
	for key, value := range v.AllSettings() {
		key = strings.TrimPrefix(key, "webpilot_")
		if isKey(key) {
			out[key] = value
		}
	}
	return out
}

// Validate checks the values that name something: backend, protocol and log
// level.
func (c *Config) Validate() error {
	if _, err := llm.BackendByName(c.Backend); err != nil {
		return err
	}
	if c.Protocol != "" {
		if _, err := llm.ProtocolByName(c.Protocol); err != nil {
			return err
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxTurns < 0 {
		return fmt.Errorf("max_turns must not be negative, got %d", c.MaxTurns)
	}
	return nil
}

// APIKey returns the key for the named backend, or ErrMissingCredential.
func (c *Config) APIKey(backend string) (string, error) {
	b, err := llm.BackendByName(backend)
	if err != nil {
		return "", err
	}
	var key string
	switch b.Name {
	case llm.OpenAIBackend.Name:
		key = c.OpenAIKey
	case llm.XAIBackend.Name:
		key = c.XAIKey
	}
	if key == "" {
		return "", fmt.Errorf("%w for %s: set %s or run 'webpilot config set %s <key>'",
			ErrMissingCredential, b.Name, b.KeyEnv, keyFor(b.Name))
	}
	return key, nil
}

func keyFor(backend string) string {
	if backend == llm.XAIBackend.Name {
		return "xai_api_key"
	}
	return "openai_api_key"
}

// readFile loads the raw config file values, without defaults or environment.
func readFile() (map[string]any, error) {
	values := map[string]any{}
	data, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return values, nil
}

// save writes the config file values to disk
func save(values map[string]any) error {
	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configFile), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Set updates a config value by key
func Set(key, value string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	typed, err := parseValue(key, value)
	if err != nil {
		return err
	}

	values, err := readFile()
	if err != nil {
		return err
	}
	values[key] = typed
	return save(values)
}

// Get returns the value stored in the config file for key
func Get(key string) (string, bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return "", false, err
	}
	values, err := readFile()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	if !ok {
		return "", false, nil
	}
	return fmt.Sprint(value), true, nil
}

// Delete removes a config value
func Delete(key string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	values, err := readFile()
	if err != nil {
		return err
	}
	delete(values, key)
	return save(values)
}

func normalizeKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	if !isKey(key) {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	return key, nil
}

func isKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// parseValue validates value for key and returns it in the type stored.
func parseValue(key, value string) (any, error) {
	switch key {
	case "max_turns":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("max_turns must be a non-negative integer, got %q", value)
		}
		return n, nil
	case "fetch_timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("fetch_timeout must be a duration such as 10s: %w", err)
		}
	case "backend":
		if _, err := llm.BackendByName(value); err != nil {
			return nil, err
		}
	case "protocol":
		if _, err := llm.ProtocolByName(value); err != nil {
			return nil, err
		}
	case "log_level":
		if _, err := logging.ParseLevel(value); err != nil {
			return nil, err
		}
	}
	return value, nil
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return configFile
}

// ListKeys returns configured values, with API keys masked for display
func ListKeys(cfg *Config) map[string]string {
	result := make(map[string]string)

	apiKey := func(name, value, env string) {
		if value == "" {
			return
		}
		masked := maskKey(value)
		if os.Getenv(env) == value {
			masked += " (env)"
		}
		result[name] = masked
	}
	apiKey("openai_api_key", cfg.OpenAIKey, envNames["openai_api_key"])
	apiKey("xai_api_key", cfg.XAIKey, envNames["xai_api_key"])

	set := func(name, value string) {
		if value != "" {
			result[name] = value
		}
	}
	set("backend", cfg.Backend)
	set("model", cfg.Model)
	set("protocol", cfg.Protocol)
	set("base_url", cfg.BaseURL)
	set("log_level", cfg.LogLevel)
	set("history_db", cfg.HistoryDB)
	if cfg.MaxTurns > 0 {
		result["max_turns"] = strconv.Itoa(cfg.MaxTurns)
	}
	if cfg.FetchTimeout > 0 {
		result["fetch_timeout"] = cfg.FetchTimeout.String()
	}

	return result
}

// SortedKeys returns the keys of m in order, for stable listings.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// maskKey shows only first 4 and last 4 characters
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package configuration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/malonaz/popchat/internal/file"
	"github.com/malonaz/popchat/internal/kv"
	"github.com/malonaz/popchat/internal/llm"
)

// DefaultPath of the configuration file.
const DefaultPath = "~/.config/popchat/config.json"

// Environment variables overriding the configuration file.
const (
	StorageDriverEnv   = "POPCHAT_STORAGE_DRIVER"
	StorageDSNEnv      = "POPCHAT_STORAGE_DSN"
	DefaultProviderEnv = "POPCHAT_DEFAULT_PROVIDER"
	LogLevelEnv        = "POPCHAT_LOG_LEVEL"
	requestTimeoutEnv  = "POPCHAT_REQUEST_TIMEOUT"
)

func defaultConfig() *Config {
	return &Config{
		Storage: &StorageConfig{
			Driver: kv.SQLiteDriver,
			DSN:    "~/.config/popchat/popchat.db",
		},
		DefaultProvider: string(llm.Gemini),
		Log: &LogConfig{
			File:  "~/.config/popchat/popchat.log",
			Level: "info",
		},
		Server: &ServerConfig{
			Port: 3030,
		},
	}
}

// Config holds configuration for the popchat tool.
type Config struct {
	Storage         *StorageConfig `json:"storage"`
	DefaultProvider string         `json:"default_provider"`
	// Seconds. 0 means no timeout.
	RequestTimeout int           `json:"request_timeout"`
	Log            *LogConfig    `json:"log"`
	Server         *ServerConfig `json:"server"`
}

// StorageConfig selects the storage area.
type StorageConfig struct {
	// One of memory, sqlite or postgres.
	Driver string `json:"driver"`
	// Database path for sqlite, connection string for postgres.
	DSN string `json:"dsn"`
}

// LogConfig holds configuration for the debug log.
type LogConfig struct {
	// Log records are discarded if empty.
	File  string `json:"file"`
	Level string `json:"level"`
}

// ServerConfig holds configuration for popchat serve.
type ServerConfig struct {
	Port int `json:"port"`
}

// Provider returns the default provider.
func (c *Config) Provider() (llm.Provider, error) {
	return llm.ParseProvider(c.DefaultProvider)
}

// Timeout returns the request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Parse a configuration file, creating it with the defaults if it does not exist.
// Environment variables, possibly set by a .env file, take precedence.
func Parse(path string) (*Config, error) {
	path, err := file.ExpandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding path")
	}

	if err := initializeIfNotPresent(path); err != nil {
		return nil, errors.Wrap(err, "initializing configuration")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	config := &Config{}
	if err = json.Unmarshal(bytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling into config")
	}
	if err := mergo.Merge(config, defaultConfig()); err != nil {
		return nil, errors.Wrap(err, "merging default config")
	}
	if err := config.applyEnvironment(); err != nil {
		return nil, errors.Wrap(err, "applying environment")
	}
	if _, err := config.Provider(); err != nil {
		return nil, errors.Wrap(err, "parsing default provider")
	}

	if config.Storage.Driver == kv.SQLiteDriver {
		if config.Storage.DSN, err = file.ExpandPath(config.Storage.DSN); err != nil {
			return nil, errors.Wrap(err, "expanding storage path")
		}
	}
	if config.Log.File, err = file.ExpandPath(config.Log.File); err != nil {
		return nil, errors.Wrap(err, "expanding log file path")
	}
	return config, nil
}

// applyEnvironment overrides the config with the environment. A .env file in the working
// directory is loaded first, it never overrides variables that are already set.
func (c *Config) applyEnvironment() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "loading .env file")
	}
	if value, ok := os.LookupEnv(StorageDriverEnv); ok {
		c.Storage.Driver = value
	}
	if value, ok := os.LookupEnv(StorageDSNEnv); ok {
		c.Storage.DSN = value
	}
	if value, ok := os.LookupEnv(DefaultProviderEnv); ok {
		c.DefaultProvider = value
	}
	if value, ok := os.LookupEnv(LogLevelEnv); ok {
		c.Log.Level = value
	}
	if value, ok := os.LookupEnv(requestTimeoutEnv); ok {
		timeout, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "parsing %s", requestTimeoutEnv)
		}
		c.RequestTimeout = timeout
	}
	return nil
}

// save a configuration file.
func (c *Config) save(path string) error {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	err = os.WriteFile(path, bytes, 0644)
	if err != nil {
		return errors.Wrap(err, "writing file")
	}

	return nil
}

// initializeIfNotPresent initializes a config if it does not exist.
func initializeIfNotPresent(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	// Create the directories.
	dir, _ := filepath.Split(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating folders")
	}

	if err := defaultConfig().save(path); err != nil {
		return errors.Wrap(err, "saving default config")
	}
	return nil
}

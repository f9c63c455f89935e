package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Downloads DownloadConfig `mapstructure:"downloads"`
	Epub      EpubConfig     `mapstructure:"epub"`
	Network   NetworkConfig  `mapstructure:"network"`
}

// DownloadConfig holds download settings
type DownloadConfig struct {
	Path          string  `mapstructure:"path"`
	Delay         float64 `mapstructure:"delay"` // seconds between requests
	Notifications bool    `mapstructure:"notifications"`
}

// EpubConfig holds EPUB generation settings
type EpubConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// NetworkConfig holds network settings
type NetworkConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

var cfg *Config

// GetConfigDir returns the configuration directory path
func GetConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "truyendl")
}

// GetDBPath returns the database file path
func GetDBPath() string {
	return filepath.Join(GetConfigDir(), "truyendl.db")
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Init initializes the configuration
func Init(cfgFile string) error {
	// Set defaults
	viper.SetDefault("downloads.path", "~/Downloads/truyendl")
	viper.SetDefault("downloads.delay", 2.0)
	viper.SetDefault("downloads.notifications", true)
	viper.SetDefault("epub.enabled", true)
	viper.SetDefault("network.timeout", 30*time.Second)
	viper.SetDefault("network.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(GetConfigDir())
	}

	// Environment variable overrides
	viper.SetEnvPrefix("TRUYENDL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		cfg = &Config{}
		viper.Unmarshal(cfg)
		cfg.Downloads.Path = expandPath(cfg.Downloads.Path)
	}
	return cfg
}

// Set sets a configuration value
func Set(key, value string) error {
	viper.Set(key, value)

	// Ensure config directory exists
	configDir := GetConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// Reset cached config
	cfg = nil

	return viper.WriteConfigAs(GetConfigPath())
}

// GetValue retrieves a configuration value
func GetValue(key string) interface{} {
	return viper.Get(key)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

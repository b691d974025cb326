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
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"botcore/pkg/fileutil"
)

const (
	// ConfigPathEnv overrides the config file location.
	ConfigPathEnv = "BOTCORE_CONFIG_FILE"
	// EnvPrefix prefixes every environment override, e.g. BOTCORE_BOT_PREFIX.
	EnvPrefix = "BOTCORE"
)

// Loader reads the config file with viper, layering .env files and
// BOTCORE_* environment variables on top.
type Loader struct {
	viper *viper.Viper
}

// NewLoader returns a loader that searches ~/.botcore, . and ./config for
// config.json when no explicit path is given.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".botcore"))
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{viper: v}
}

// Load reads path, or BOTCORE_CONFIG_FILE, or the search paths. A missing
// file is created with the defaults first.
func (l *Loader) Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	explicit := strings.TrimSpace(path) != ""

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if err := loadDotEnv(filepath.Dir(resolved)); err != nil {
		return nil, err
	}

	if explicit {
		l.use(resolved)
	}
	if err := l.readOrCreate(resolved); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := l.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", l.viper.ConfigFileUsed(), err)
	}
	cfg.Bot.Prefix = strings.TrimSpace(cfg.Bot.Prefix)
	return cfg, nil
}

func (l *Loader) use(path string) {
	l.viper.SetConfigFile(path)
	l.viper.SetConfigType(formatOf(path))
}

func (l *Loader) readOrCreate(path string) error {
	err := l.viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || !(errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)) {
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		return nil
	}

	if err := SaveToFile(DefaultConfig(), path); err != nil {
		return fmt.Errorf("creating default config: %w", err)
	}
	l.use(path)
	if err := l.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading created config: %w", err)
	}
	return nil
}

// Save writes cfg atomically as YAML for .yaml/.yml paths and as indented
// JSON otherwise.
func (l *Loader) Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	var (
		data []byte
		err  error
	)
	if formatOf(path) == "yaml" {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	cfg.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := fileutil.WriteAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SaveToFile saves cfg without a configured Loader.
func SaveToFile(cfg *Config, path string) error {
	return NewLoader().Save(path, cfg)
}

// GetConfigPath returns the file the last Load read.
func (l *Loader) GetConfigPath() string {
	return l.viper.ConfigFileUsed()
}

// InitDefaultConfig writes the default config to BOTCORE_CONFIG_FILE or
// ~/.botcore/config.json unless the file exists already.
func InitDefaultConfig() (path string, created bool, err error) {
	return InitConfigAt(os.Getenv(ConfigPathEnv))
}

// InitConfigAt writes the default config to path unless it exists.
func InitConfigAt(path string) (string, bool, error) {
	resolved, err := resolveConfigPath(path)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(resolved); err == nil {
		return resolved, false, nil
	}
	if err := SaveToFile(DefaultConfig(), resolved); err != nil {
		return "", false, fmt.Errorf("writing default config: %w", err)
	}
	return resolved, true, nil
}

func resolveConfigPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locating home directory: %w", err)
		}
		path = filepath.Join(home, ".botcore", "config.json")
	}
	abs, err := filepath.Abs(expandPath(path))
	if err != nil {
		return "", fmt.Errorf("resolving config path: %w", err)
	}
	return abs, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

// loadDotEnv loads .env from the working directory, then from the config
// directory. Variables already in the environment win.
func loadDotEnv(configDir string) error {
	for _, path := range []string{".env", filepath.Join(configDir, ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

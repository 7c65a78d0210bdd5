package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "ROOMCHAT"
	envConfigDefaultPath = envPrefix + "_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
	configHeader         = "roomchat configuration; ROOMCHAT_<KEY> environment variables override these values"
)

// Load builds configuration from defaults, the config file and ROOMCHAT_*
// env vars, in that order of precedence, and returns the file path it used.
// A missing file is created with the defaults. CLI flags are applied by the
// caller through UpdateFrom.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	path := resolveConfigPath(explicitPath)
	v, err := newViper(path, Default())
	if err != nil {
		return Config{}, path, err
	}

	if err := readOrSeed(v, path, logger); err != nil {
		return Config{}, path, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, path, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, path, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, path, nil
}

// newViper registers every key with its default so env lookups and
// Unmarshal see keys that the file leaves out.
func newViper(path string, defaults Config) (*viper.Viper, error) {
	keys, err := settings(defaults)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	for key, value := range keys {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// settings flattens cfg into its yaml keys.
func settings(cfg Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	keys := make(map[string]any)
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}
	return keys, nil
}

func readOrSeed(v *viper.Viper, path string, logger *zerolog.Logger) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config: %w", err)
	}

	// Defaults are already registered, so a seed failure only costs the file.
	if err := writeDefaultConfig(path, Default()); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to write default config")
		return nil
	}
	logger.Info().Str("path", path).Msg("created default config")
	return nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	dir := os.Getenv(envConfigDefaultPath)
	if dir != "" && os.MkdirAll(dir, 0o755) != nil {
		dir = ""
	}
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return defaultConfigName
		}
		dir = cwd
	}
	return filepath.Join(dir, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return err
	}
	doc.HeadComment = configHeader

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

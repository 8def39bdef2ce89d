// Package config loads the service configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"croprec/logging"
)

const DefaultPath = "config.yaml"

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Inference InferenceConfig `yaml:"inference"`
	UI        UIConfig        `yaml:"ui"`
	Log       logging.Config  `yaml:"log"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type ArtifactsConfig struct {
	Dir          string `yaml:"dir"`
	Pipeline     string `yaml:"pipeline"`
	LabelEncoder string `yaml:"label_encoder"`
	Watch        bool   `yaml:"watch"`
}

type InferenceConfig struct {
	CacheSize int `yaml:"cache_size"`
}

type UIConfig struct {
	Language string `yaml:"language"`
	// Title replaces the localised page title when set.
	Title string `yaml:"title"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:           8080,
			Timeout:        30 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Artifacts: ArtifactsConfig{
			Dir:          "models",
			Pipeline:     "crop_recommendation_pipeline.json",
			LabelEncoder: "label_encoder.json",
		},
		Inference: InferenceConfig{CacheSize: 256},
		UI:        UIConfig{Language: "en"},
		Log:       logging.Config{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error; the defaults are used.
func Load(path string) (*Config, error) {
	config := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		config.resolveRelative(filepath.Dir(path))
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Locate returns path, or the same name one directory up when path does not
// exist and is relative, so the binary can run from cmd/ subdirectories.
func Locate(path string) string {
	if _, err := os.Stat(path); err == nil || filepath.IsAbs(path) {
		return path
	}
	parent := filepath.Join("..", path)
	if _, err := os.Stat(parent); err == nil {
		return parent
	}
	return path
}

// LoadDotEnv loads a .env file when present.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) resolveRelative(base string) {
	if c.Artifacts.Dir != "" && !filepath.IsAbs(c.Artifacts.Dir) {
		c.Artifacts.Dir = filepath.Join(base, c.Artifacts.Dir)
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(base, c.Log.File)
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CROPREC_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CROPREC_PORT: %w", err)
		}
		c.HTTP.Port = port
	}
	if v := os.Getenv("CROPREC_ARTIFACT_DIR"); v != "" {
		c.Artifacts.Dir = v
	}
	if v := os.Getenv("CROPREC_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CROPREC_LANGUAGE"); v != "" {
		c.UI.Language = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.Artifacts.Pipeline == "" || c.Artifacts.LabelEncoder == "" {
		return errors.New("artifacts.pipeline and artifacts.label_encoder are required")
	}
	if c.Inference.CacheSize < 0 {
		return errors.New("inference.cache_size must not be negative")
	}
	return nil
}

// PipelinePath joins the artifact directory with the pipeline file unless it is absolute.
func (c *Config) PipelinePath() string {
	return c.artifactPath(c.Artifacts.Pipeline)
}

func (c *Config) LabelEncoderPath() string {
	return c.artifactPath(c.Artifacts.LabelEncoder)
}

func (c *Config) artifactPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Artifacts.Dir, name)
}

// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// legacyConfigPath is the path used by earlier releases, next to the binary.
	legacyConfigPath = "config.json"
	// defaultRequestTimeout is the default timeout for HTTP requests to model hosts.
	defaultRequestTimeout = 600 * time.Second

	DefaultChunkSize     = 2000
	DefaultChunkOverlap  = 200
	DefaultTopK          = 5
	DefaultIndexPath     = "data/index.jsonl"
	DefaultListenAddr    = ":8000"
	DefaultCORSOrigins   = "http://localhost:5173"
	DefaultUploadLimitMB = 50
)

// Default prompt templates. Placeholders are filled by the pipeline.
const (
	DefaultGenerationPrompt = `You are given excerpts from a document.

{context_string}

Using only the excerpts above, answer the question below. If the excerpts do not contain the answer, say so.

Question: {question}`

	DefaultEvaluationPrompt = `Check your answer against the excerpts. Is the answer "{answer}" to the question "{question}" fully supported by the excerpts? Reply with "yes" or "no" first, then explain briefly.`

	DefaultLocationPrompt = `Copy, word for word, the single sentence or short passage from the excerpts below that best supports your answer. Reply with the quoted text only, without quotation marks.

{context_string}`
)

// Config represents the top-level application configuration.
type Config struct {
	Hosts []Host `json:"hosts" mapstructure:"hosts"`

	GenerationHost  string `json:"generationHost" mapstructure:"generationHost"`
	GenerationModel string `json:"generationModel" mapstructure:"generationModel"`
	NumCtx          int    `json:"numCtx,omitempty" mapstructure:"numCtx"`
	Seed            *int   `json:"seed,omitempty" mapstructure:"seed"`

	EmbeddingHost  string `json:"embeddingHost" mapstructure:"embeddingHost"`
	EmbeddingModel string `json:"embeddingModel" mapstructure:"embeddingModel"`
	IndexPath      string `json:"indexPath" mapstructure:"indexPath"`
	ChunkSize      int    `json:"chunkSize" mapstructure:"chunkSize"`
	ChunkOverlap   int    `json:"chunkOverlap" mapstructure:"chunkOverlap"`
	TopK           int    `json:"topK" mapstructure:"topK"`

	GenerationPromptTemplate string `json:"generationPromptTemplate" mapstructure:"generationPromptTemplate"`
	EvaluationPromptTemplate string `json:"evaluationPromptTemplate" mapstructure:"evaluationPromptTemplate"`
	LocationPromptTemplate   string `json:"locationPromptTemplate" mapstructure:"locationPromptTemplate"`

	ListenAddr     string `json:"listenAddr" mapstructure:"listenAddr"`
	CORSOrigins    string `json:"corsOrigins" mapstructure:"corsOrigins"`
	UploadLimitMB  int    `json:"uploadLimitMB" mapstructure:"uploadLimitMB"`
	TimeoutSeconds int    `json:"timeout,omitempty" mapstructure:"timeout"`
	LogFile        string `json:"logFile,omitempty" mapstructure:"logFile"`
	Debug          bool   `json:"debug" mapstructure:"debug"`
	Metrics        bool   `json:"metrics" mapstructure:"metrics"`

	ConfigPath string `json:"-" mapstructure:"-"`
}

// Host represents a single host that can serve language and embedding models.
type Host struct {
	Name       string     `json:"name" mapstructure:"name"`
	URL        string     `json:"url" mapstructure:"url"`
	Type       string     `json:"type" mapstructure:"type"`
	Models     []string   `json:"models" mapstructure:"models"`
	Parameters Parameters `json:"parameters" mapstructure:"parameters"`
	// ParameterTemplate names a preset that Parameters are layered on top of.
	ParameterTemplate string `json:"parameterTemplate,omitempty" mapstructure:"parameterTemplate"`
}

// Parameters defines the set of parameters that can be used to control a language model's behavior.
type Parameters struct {
	TopK             *int     `json:"top_k,omitempty" mapstructure:"top_k"`
	TopP             *float64 `json:"top_p,omitempty" mapstructure:"top_p"`
	MinP             *float64 `json:"min_p,omitempty" mapstructure:"min_p"`
	TypicalP         *float64 `json:"typical_p,omitempty" mapstructure:"typical_p"`
	RepeatLastN      *int     `json:"repeat_last_n,omitempty" mapstructure:"repeat_last_n"`
	Temperature      *float64 `json:"temperature,omitempty" mapstructure:"temperature"`
	RepeatPenalty    *float64 `json:"repeat_penalty,omitempty" mapstructure:"repeat_penalty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty" mapstructure:"presence_penalty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty" mapstructure:"frequency_penalty"`
	NumCtx           *int     `json:"num_ctx,omitempty" mapstructure:"num_ctx"`
	Seed             *int     `json:"seed,omitempty" mapstructure:"seed"`
}

// RequestTimeout returns the timeout duration for HTTP requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "docqa.log"
}

// UploadLimitBytes returns the maximum accepted upload size.
func (c Config) UploadLimitBytes() int {
	if c.UploadLimitMB <= 0 {
		return DefaultUploadLimitMB << 20
	}
	return c.UploadLimitMB << 20
}

// HostByName returns the configured host with the given name.
func (c Config) HostByName(name string) (Host, error) {
	for _, host := range c.Hosts {
		if host.Name == name {
			return host, nil
		}
	}
	return Host{}, fmt.Errorf("host %q not found in config hosts", name)
}

// GenerationTarget resolves the host that serves the generation model. When
// generationHost is empty the first host is used.
func (c Config) GenerationTarget() (Host, error) {
	if strings.TrimSpace(c.GenerationHost) == "" {
		if len(c.Hosts) == 0 {
			return Host{}, errors.New("config must contain at least one host")
		}
		return c.Hosts[0], nil
	}
	return c.HostByName(c.GenerationHost)
}

// EmbeddingTarget resolves the host that serves the embedding model, defaulting to
// the generation host.
func (c Config) EmbeddingTarget() (Host, error) {
	if strings.TrimSpace(c.EmbeddingHost) == "" {
		return c.GenerationTarget()
	}
	return c.HostByName(c.EmbeddingHost)
}

// GenerationParameters layers the host's parameters over its parameter template,
// then applies the top-level numCtx and seed, which take precedence.
func (c Config) GenerationParameters(host Host) Parameters {
	params := mergeParams(ParamsForProfile(host.ParameterTemplate), host.Parameters)
	if c.NumCtx > 0 {
		n := c.NumCtx
		params.NumCtx = &n
	}
	if c.Seed != nil {
		s := *c.Seed
		params.Seed = &s
	}
	return params
}

// ApplyDefaults fills unset values with their defaults.
func (c *Config) ApplyDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = int(defaultRequestTimeout.Seconds())
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if strings.TrimSpace(c.IndexPath) == "" {
		c.IndexPath = DefaultIndexPath
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if strings.TrimSpace(c.CORSOrigins) == "" {
		c.CORSOrigins = DefaultCORSOrigins
	}
	if c.UploadLimitMB <= 0 {
		c.UploadLimitMB = DefaultUploadLimitMB
	}
	if strings.TrimSpace(c.GenerationPromptTemplate) == "" {
		c.GenerationPromptTemplate = DefaultGenerationPrompt
	}
	if strings.TrimSpace(c.EvaluationPromptTemplate) == "" {
		c.EvaluationPromptTemplate = DefaultEvaluationPrompt
	}
	if strings.TrimSpace(c.LocationPromptTemplate) == "" {
		c.LocationPromptTemplate = DefaultLocationPrompt
	}
}

// Validate performs the presence checks needed before building a pipeline.
func (c Config) Validate() error {
	if len(c.Hosts) == 0 {
		return errors.New("config must contain at least one host")
	}
	if strings.TrimSpace(c.GenerationModel) == "" {
		return errors.New("generationModel is required")
	}
	if _, err := c.GenerationTarget(); err != nil {
		return fmt.Errorf("generationHost: %w", err)
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		return errors.New("embeddingModel is required")
	}
	if _, err := c.EmbeddingTarget(); err != nil {
		return fmt.Errorf("embeddingHost: %w", err)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return errors.New("chunkOverlap must be smaller than chunkSize")
	}
	return nil
}

// Load reads the application configuration from the specified path, with fallback to a legacy path.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err == nil {
		if len(config.Hosts) == 0 {
			return Config{}, errors.New("config must contain at least one host")
		}
		config.ConfigPath = path
		return config, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		if path == DefaultConfigPath {
			config, legacyErr := loadFromPath(legacyConfigPath)
			if legacyErr == nil {
				config.ConfigPath = legacyConfigPath
				return config, nil
			}
			if errors.Is(legacyErr, os.ErrNotExist) {
				return Config{}, fmt.Errorf("no configuration file found (searched %q and %q)", DefaultConfigPath, legacyConfigPath)
			}
			return Config{}, fmt.Errorf("could not read config file %q: %w", legacyConfigPath, legacyErr)
		}
		return Config{}, fmt.Errorf("no configuration file found at %q", path)
	}

	return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
}

// loadFromPath is a helper function that loads the configuration from a specific file path.
func loadFromPath(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, err
	}
	config.ApplyDefaults()

	return config, nil
}

// internal/cli/root.go
package docqa

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/docqa/internal/appconfig"
	"github.com/mwiater/docqa/internal/logging"
)

// envPrefix namespaces environment overrides, e.g. DOCQA_GENERATIONMODEL.
const envPrefix = "DOCQA"

var (
	cfgFile       string
	currentConfig *appconfig.Config
)

var rootCmd = &cobra.Command{
	Use:           "docqa",
	Short:         "docqa: ask questions about a document and see where the answer came from",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 1) .env values become environment overrides.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}

		// 2) Merge file, environment and flags into one configuration.
		cfg, err := readConfig(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}

		// 3) Keep flags and viper in agreement for commands that read either.
		for _, name := range []string{"debug", "metrics"} {
			if !cmd.Flags().Changed(name) {
				_ = cmd.Flags().Set(name, strconv.FormatBool(viper.GetBool(name)))
			}
		}
		currentConfig = &cfg

		if err := logging.Init(cfg.LogFilePath()); err != nil {
			return err
		}
		logging.SetDebug(cfg.Debug)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	_ = logging.Close()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (e.g., config/config.json)")

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("metrics", false, "collect model and stage metrics")

	// Flags override config.
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("metrics", rootCmd.PersistentFlags().Lookup("metrics"))
}

// readConfig loads path into v, layers DOCQA_* environment variables and bound
// flags on top, and decodes the result. A missing file is not an error.
func readConfig(v *viper.Viper, path string) (appconfig.Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return appconfig.Config{}, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	var cfg appconfig.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return appconfig.Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	cfg.ConfigPath = path
	return cfg, nil
}

// setDefaults registers every top-level key so environment overrides reach
// Unmarshal even when the file does not mention the key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("metrics", false)
	v.SetDefault("generationHost", "")
	v.SetDefault("generationModel", "")
	v.SetDefault("numCtx", 0)
	v.SetDefault("embeddingHost", "")
	v.SetDefault("embeddingModel", "")
	v.SetDefault("indexPath", appconfig.DefaultIndexPath)
	v.SetDefault("chunkSize", appconfig.DefaultChunkSize)
	v.SetDefault("chunkOverlap", appconfig.DefaultChunkOverlap)
	v.SetDefault("topK", appconfig.DefaultTopK)
	v.SetDefault("generationPromptTemplate", appconfig.DefaultGenerationPrompt)
	v.SetDefault("evaluationPromptTemplate", appconfig.DefaultEvaluationPrompt)
	v.SetDefault("locationPromptTemplate", appconfig.DefaultLocationPrompt)
	v.SetDefault("listenAddr", appconfig.DefaultListenAddr)
	v.SetDefault("corsOrigins", appconfig.DefaultCORSOrigins)
	v.SetDefault("uploadLimitMB", appconfig.DefaultUploadLimitMB)
	v.SetDefault("timeout", 0)
	v.SetDefault("logFile", "")
}

// GetConfig returns the merged configuration loaded by the root command.
func GetConfig() *appconfig.Config {
	return currentConfig
}

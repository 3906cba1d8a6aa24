package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hiresense/hiresense/internal/capability"
	"github.com/hiresense/hiresense/internal/capability/gemini"
	"github.com/hiresense/hiresense/internal/capability/heuristic"
	"github.com/hiresense/hiresense/internal/secrets"
	"github.com/hiresense/hiresense/internal/stage"
)

const (
	app = "hiresense"
)

type Config struct {
	Job       *JobConfig `mapstructure:"job"`
	CVDir     string     `mapstructure:"cv-dir"`
	AssetsDir string     `mapstructure:"assets-dir"`
	Workspace string     `mapstructure:"workspace-root"`
	Threshold float64    `mapstructure:"threshold"`
	TopN      int        `mapstructure:"top-n"`
	Output    string     `mapstructure:"output"`
	AI        *AIConfig  `mapstructure:"ai"`
}

type JobConfig struct {
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	File        string `mapstructure:"file"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hiresense ranks candidate CVs against a job description through a staged scoring pipeline",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hiresense.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// Missing config is fine: flags and defaults carry a full run. A config
	// file that exists but does not parse is not.
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// newCapabilities picks the capability backend for the run. The deterministic
// heuristic backend is the default; gemini requires an API key file.
func newCapabilities(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (*capability.Set, error) {
	provider := ""
	if cfg != nil {
		provider = strings.TrimSpace(strings.ToLower(cfg.Provider))
	}

	switch provider {
	case "", "heuristic":
		return heuristic.New(), nil
	case "gemini":
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when the gemini provider is selected")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	client, err := gemini.NewClient(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	logger.Info("using gemini capability backend", zap.String("model", cfg.Gemini.Model))
	return gemini.Set(client), nil
}

// stageOptions folds config values over the built-in defaults; an explicitly
// set flag wins over both. Zero is a legitimate threshold (it selects every
// ingested candidate), so only the presence of a value matters, never its
// sign.
func stageOptions(flags *pflag.FlagSet) stage.Options {
	opts := stage.DefaultOptions()
	if viper.IsSet("threshold") {
		opts.Threshold = viper.GetFloat64("threshold")
	}
	if flags != nil && flags.Changed("threshold") {
		opts.Threshold, _ = flags.GetFloat64("threshold")
	}
	return opts
}

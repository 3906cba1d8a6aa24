package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hiresense/hiresense/internal/logger"
	"github.com/hiresense/hiresense/internal/stage"
	"github.com/hiresense/hiresense/internal/workspace"
)

var stageCmd = &cobra.Command{
	Use:   "stage <name>",
	Short: "Run a single pipeline stage against an existing workspace",
	Long: "Run one stage in isolation. The workspace must already hold the stage's " +
		"input artifacts; names: " + strings.Join(stageNames(), ", ") + ".",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runStage(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(stageCmd)

	stageCmd.Flags().StringP("workspace", "w", "", "existing workspace directory (required)")
	stageCmd.Flags().StringP("input", "i", "", "copy this file over the stage's default input artifact before running")
	stageCmd.Flags().StringP("output", "o", "", "copy the stage's output artifact to this path after running")
	stageCmd.Flags().Float64P("threshold", "t", 0, "minimum updated score for selection")
	stageCmd.MarkFlagRequired("workspace")
}

func stageNames() []string {
	var names []string
	for _, s := range stage.All() {
		names = append(names, s.Name())
	}
	return names
}

func runStage(cmd *cobra.Command, name string) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	s := stage.ByName(name)
	if s == nil {
		fmt.Fprintf(os.Stderr, "unknown stage %q; valid names: %s\n", name, strings.Join(stageNames(), ", "))
		os.Exit(1)
	}

	root, _ := cmd.Flags().GetString("workspace")
	ws, err := workspace.Open(root, logger)
	if err != nil {
		logger.Fatal("opening the workspace", zap.Error(err))
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	opts := stageOptions(cmd.Flags())

	caps, err := newCapabilities(cmd.Context(), configAI(config), logger)
	if err != nil {
		logger.Fatal("building the capability backend", zap.Error(err))
	}

	deps := &stage.Deps{
		WS:      ws,
		Caps:    caps,
		Logger:  logger,
		Options: opts,
	}

	if input, _ := cmd.Flags().GetString("input"); input != "" {
		if err := stageArtifact(input, ws.Path(primaryInput(s))); err != nil {
			logger.Fatal("staging the input artifact", zap.Error(err))
		}
	}

	result, err := s.Run(cmd.Context(), deps)
	if err != nil {
		logger.Error("stage failed", zap.String("stage", name), zap.Error(err))
		fmt.Fprintf(os.Stderr, "stage %s failed: %v\n", name, err)
		os.Exit(1)
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := stageArtifact(ws.Path(finalOutput(s)), output); err != nil {
			logger.Fatal("copying the output artifact", zap.Error(err))
		}
	}

	logger.Info("stage finished",
		zap.String("stage", name),
		zap.Int("rows_in", result.In),
		zap.Int("rows_out", result.Out),
	)
}

// primaryInput is the stage's first tabular input artifact.
func primaryInput(s stage.Stage) string {
	for _, b := range s.Boundaries() {
		if !b.Raw {
			return b.Input
		}
	}
	return s.Boundaries()[0].Input
}

// finalOutput is the stage's last declared output artifact.
func finalOutput(s stage.Stage) string {
	out := ""
	for _, b := range s.Boundaries() {
		if b.Output != "" {
			out = b.Output
		}
	}
	return out
}

func stageArtifact(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}

func configAI(config *Config) *AIConfig {
	if config == nil {
		return nil
	}
	return config.AI
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hiresense/hiresense/internal/logger"
	"github.com/hiresense/hiresense/internal/pipeline"
	"github.com/hiresense/hiresense/internal/report"
	"github.com/hiresense/hiresense/internal/stage"
	"github.com/hiresense/hiresense/internal/store"
	"github.com/hiresense/hiresense/internal/workspace"
)

const defaultTopN = 5

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full candidate ranking pipeline",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("cv-dir", "", "directory with candidate CV documents (pdf or txt)")
	runCmd.Flags().Float64P("threshold", "t", 0, "minimum updated score for selection")
	runCmd.Flags().IntP("top-n", "n", defaultTopN, "number of ranked candidates to report")
	runCmd.Flags().StringP("output", "o", "", "write the ranked report to this CSV file instead of stdout")
	runCmd.Flags().Bool("keep-workspace", false, "do not remove the workspace after the run")

	// threshold is intentionally not bound: a bound flag's default would be
	// indistinguishable from an explicit zero, and zero selects everyone.
	viper.BindPFlag("cv-dir", runCmd.Flags().Lookup("cv-dir"))
	viper.BindPFlag("top-n", runCmd.Flags().Lookup("top-n"))
	viper.BindPFlag("output", runCmd.Flags().Lookup("output"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting hiresense", zap.String("version", version))

	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil || config.Job == nil || (config.Job.File == "" && config.Job.Description == "") {
		logger.Fatal("a job description is required under the job section (job.description or job.file)")
	}

	caps, err := newCapabilities(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building the capability backend", zap.Error(err))
	}

	req := workspace.Request{
		JobCSV: config.Job.File,
		CVDir:  viper.GetString("cv-dir"),
	}
	if config.Job.File == "" {
		req.Job = &workspace.Job{
			Title:       config.Job.Title,
			Description: config.Job.Description,
		}
	}

	ws, err := workspace.Provision(req, workspace.Options{
		Root:      config.Workspace,
		AssetsDir: config.AssetsDir,
	}, logger)
	if err != nil {
		logger.Fatal("provisioning the workspace", zap.Error(err))
	}
	deps := &stage.Deps{
		WS:      ws,
		Caps:    caps,
		Logger:  logger,
		Options: stageOptions(cmd.Flags()),
	}

	runErr := pipeline.New(deps).Run(ctx)
	if runErr == nil {
		runErr = printReport(deps, logger)
	}

	// The workspace is torn down on every exit path; Fatal below exits the
	// process, so teardown must happen first.
	if keep, _ := cmd.Flags().GetBool("keep-workspace"); keep {
		logger.Info("keeping the workspace", zap.String("root", ws.Root()))
	} else if err := ws.Close(); err != nil {
		logger.Warn("tearing down the workspace", zap.Error(err))
	}

	if runErr != nil {
		logger.Fatal("pipeline failed", zap.Error(runErr))
	}
}

// printReport projects the persisted selection into the ranked report and
// writes it to stdout or the configured output file.
func printReport(deps *stage.Deps, logger *zap.Logger) error {
	st, err := store.Open(deps.WS.Path(workspace.StoreFile))
	if err != nil {
		return err
	}
	defer st.Close()

	selected, err := st.SelectedAbove(deps.Options.Threshold)
	if err != nil {
		return err
	}

	topN := viper.GetInt("top-n")
	if topN <= 0 {
		topN = defaultTopN
	}

	entries := report.TopN(selected, topN)
	logger.Info("pipeline completed",
		zap.Int("selected", len(selected)),
		zap.Int("reported", len(entries)),
		zap.Float64("threshold", deps.Options.Threshold),
	)

	output := viper.GetString("output")
	if output == "" {
		return report.Export(os.Stdout, entries)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	if err := report.Export(f, entries); err != nil {
		return err
	}
	logger.Info("report written", zap.String("output", output))
	return nil
}

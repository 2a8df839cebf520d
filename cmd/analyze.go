package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/securedeploy/guardrail/pkg/config"
	"github.com/securedeploy/guardrail/pkg/engine"
	"github.com/securedeploy/guardrail/pkg/logging"
	"github.com/securedeploy/guardrail/pkg/oracle"
	"github.com/securedeploy/guardrail/pkg/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [results-dir]",
	Short: "Run the security decision engine over a directory of scan reports",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resultsDir := "scan-results"
		if len(args) > 0 {
			resultsDir = args[0]
		}
		return runAnalyze(cmd, resultsDir)
	},
}

var (
	flagOut      string
	flagProvider string
	flagModel    string
	flagTimeout  time.Duration
	flagRetries  int
	flagOffline  bool
)

func runAnalyze(cmd *cobra.Command, resultsDir string) error {
	log, err := logging.New(DebugMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cmd, cfg)

	classifier, err := engine.NewClassifier(cfg.SeverityMap)
	if err != nil {
		return fmt.Errorf("severity map: %w", err)
	}

	meta := engine.RunMetadata{
		Repository: envOr("GITHUB_REPOSITORY", "unknown"),
		Branch:     envOr("GITHUB_REF_NAME", "main"),
		Commit:     envOr("GITHUB_SHA", "unknown"),
		RunID:      uuid.NewString(),
	}

	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = resultsDir
	}

	client := buildOracle(cmd.Context(), cfg, log)
	if closer, ok := client.(interface{ Close() }); ok {
		defer closer.Close()
	}
	pipeline := engine.NewPipeline(classifier, client, report.Renderer{OutDir: outDir}, engine.PipelineOptions{
		PerTierCap:    cfg.PerTierFindings,
		MessageLimit:  cfg.MessageChars,
		EvidenceLimit: cfg.EvidenceBytes,
		HighThreshold: cfg.HighBlockThreshold,
	}, log)

	outcome, err := pipeline.Run(cmd.Context(), resultsDir, meta)
	if err != nil {
		// Render failure: the engine could not report its decision at
		// all. Distinct from a security block.
		return err
	}

	printSummary(outcome)

	if outcome.Verdict.Decision == engine.BlockDeployment {
		exitCode = 1
	}
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("provider") {
		cfg.Provider = strings.ToLower(flagProvider)
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = flagModel
	}
	if cmd.Flags().Changed("timeout") {
		cfg.TimeoutSeconds = int(flagTimeout.Seconds())
	}
	if cmd.Flags().Changed("retries") {
		cfg.RetryCount = flagRetries
	}
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = flagOut
	}
}

// buildOracle constructs the reasoning client, or nil when the oracle path
// is disabled or unusable. A nil oracle is not an error: the pipeline
// decides through the fallback rules instead.
func buildOracle(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) engine.Oracle {
	if flagOffline {
		return nil
	}
	apiKey := cfg.APIKeyFor(cfg.Provider)
	if apiKey == "" {
		log.Warnw("no API key for oracle provider, falling back to rules", "provider", cfg.Provider)
		return nil
	}
	provider, err := oracle.NewProvider(ctx, cfg.Provider, apiKey, cfg.Model, cfg.EndpointFor(cfg.Provider))
	if err != nil {
		log.Warnw("oracle provider unavailable, falling back to rules", "provider", cfg.Provider, "error", err)
		return nil
	}
	return oracle.NewClient(provider, time.Duration(cfg.TimeoutSeconds)*time.Second, cfg.RetryCount, log)
}

func printSummary(outcome *engine.Outcome) {
	v := outcome.Verdict
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("DECISION:    %s\n", v.Decision)
	fmt.Printf("RISK LEVEL:  %s\n", v.RiskLevel)
	fmt.Printf("SOURCE:      %s\n", v.Source)
	fmt.Printf("ISSUES:      %d\n", outcome.Report.TotalFindings)
	fmt.Printf("REPORT:      %s\n", outcome.ReportPath)
	fmt.Println(strings.Repeat("=", 60))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func init() {
	analyzeCmd.Flags().StringVarP(&flagOut, "out", "o", "", "Directory for report artifacts (default: the results dir)")
	analyzeCmd.Flags().StringVarP(&flagProvider, "provider", "p", "", "Oracle provider (openai, gemini)")
	analyzeCmd.Flags().StringVarP(&flagModel, "model", "m", "", "Oracle model name")
	analyzeCmd.Flags().DurationVar(&flagTimeout, "timeout", 60*time.Second, "Oracle request timeout")
	analyzeCmd.Flags().IntVar(&flagRetries, "retries", 1, "Retries after a transient oracle failure")
	analyzeCmd.Flags().BoolVar(&flagOffline, "offline", false, "Skip the oracle and decide by rules only")
	rootCmd.AddCommand(analyzeCmd)
}

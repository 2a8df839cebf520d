package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guardrail",
	Short: "AI-assisted security gate for automated deployments",
	Long: `Guardrail ingests the JSON reports of the pipeline's security scanners
(gitleaks, semgrep, conftest/OPA), consults a reasoning model for a deployment
verdict, and falls back to deterministic rules whenever the model is
unavailable. The exit code tells the orchestrator whether to proceed.`,
	SilenceUsage: true,
}

var DebugMode bool

// Execute runs the CLI and returns the process exit code: 0 safe to deploy,
// 1 deployment blocked, 2 engine failure.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 2
	}
	return exitCode
}

// exitCode is set by the analyze command once a verdict is reached.
var exitCode int

func init() {
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
}

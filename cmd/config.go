package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/securedeploy/guardrail/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration (provider, model, keys, thresholds)",
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Set the API key for an oracle provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		key, _ := cmd.Flags().GetString("key")

		if provider == "" || key == "" {
			return fmt.Errorf("--provider and --key are required")
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		cfg.SetAPIKey(strings.ToLower(provider), key)
		if err := config.SaveConfig(cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("API key saved for provider: %s\n", provider)
		return nil
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model",
	Short: "Set the active oracle provider and model",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if provider != "" {
			cfg.Provider = strings.ToLower(provider)
		}
		if model != "" {
			cfg.Model = model
		}

		if err := config.SaveConfig(cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Printf("Active configuration updated: Provider=%s, Model=%s\n", cfg.Provider, cfg.Model)
		return nil
	},
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration (keys redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		fmt.Printf("Provider:             %s\n", cfg.Provider)
		fmt.Printf("Model:                %s\n", cfg.Model)
		fmt.Printf("Timeout:              %ds\n", cfg.TimeoutSeconds)
		fmt.Printf("Retries:              %d\n", cfg.RetryCount)
		fmt.Printf("Per-tier findings:    %d\n", cfg.PerTierFindings)
		fmt.Printf("Message chars:        %d\n", cfg.MessageChars)
		fmt.Printf("Evidence bytes:       %d\n", cfg.EvidenceBytes)
		fmt.Printf("High block threshold: %d\n", cfg.HighBlockThreshold)
		for name := range cfg.Providers {
			state := "not set"
			if cfg.APIKeyFor(name) != "" {
				state = "set"
			}
			fmt.Printf("Key [%s]:             %s\n", name, state)
		}
		return nil
	},
}

func init() {
	setKeyCmd.Flags().StringP("provider", "p", "", "Provider (openai, gemini)")
	setKeyCmd.Flags().StringP("key", "k", "", "API Key")

	setModelCmd.Flags().StringP("provider", "p", "", "Provider (openai, gemini)")
	setModelCmd.Flags().StringP("model", "m", "", "Model name")

	configCmd.AddCommand(setKeyCmd)
	configCmd.AddCommand(setModelCmd)
	configCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(configCmd)
}

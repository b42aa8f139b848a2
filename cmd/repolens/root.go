package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "repolens",
	Short: "repolens - LLM-assisted repository analysis",
	Long: `repolens analyzes a GitHub repository in four passes (repository,
architecture, code flow, risk) and prints the combined assessment. Each pass
uses an LLM when one is configured and falls back to rule-based heuristics
otherwise.`,
	SilenceUsage: true,
}

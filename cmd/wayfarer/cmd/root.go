// Package cmd provides the CLI commands for Wayfarer.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/wayfarer/pkg/version"
)

// NewRootCmd creates the root command for the wayfarer CLI.
func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "wayfarer",
		Short: "Travel question answering over a curated knowledge base",
		Long: `Wayfarer answers travel questions (visas, local laws, customs,
safety) by hybrid retrieval over a curated corpus, with answers grounded
in the retrieved passages and attributed to their sources.

Seed a corpus with 'wayfarer seed', then 'wayfarer serve' or
'wayfarer ask' a one-shot question.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("wayfarer version {{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newSeedCmd(&configPath))
	cmd.AddCommand(newAskCmd(&configPath))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

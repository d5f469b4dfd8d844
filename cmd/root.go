package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artaudit",
		Short: "Marketing-art audit tool with AI-powered product and price checks",
		Long: `Artaudit reviews marketing-art images for a retailer: it reads product
codes and printed prices off each image, cross-checks them against the live
product catalog, and audits the on-image text for spelling errors.

Images move through a single-worker batch queue that respects the AI
provider's rate limits and recovers from transient failures.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAuditCmd())

	return cmd
}

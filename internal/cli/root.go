package cli

import (
	"github.com/dwctl-io/dwctl/internal/config"
	"github.com/dwctl-io/dwctl/internal/logging"
	"github.com/dwctl-io/dwctl/internal/state"
	"github.com/spf13/cobra"
)

var (
	configPath string
	statePath  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "dwctl",
	Short: "Provision and operate an AWS data-warehouse topology",
	Long: `dwctl builds a complete serverless data-warehouse on AWS and tears it
down again when you are done.

One 'dwctl up' provisions the whole topology: S3 buckets for raw and
processed data, a Glue ETL job, S3-triggered Lambda functions, and a
multi-AZ RDS Postgres instance reachable only through its security group.
Uploading a dataset into the raw bucket drives it through the pipeline
into the warehouse automatically.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the credentials file")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", state.DefaultPath, "Path to the persisted topology file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(statusCmd)
}

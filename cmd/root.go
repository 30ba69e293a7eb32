package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "eveflow",
	Short: "Suricata EVE forwarder and live dashboard",
	Long: `eveflow moves Suricata EVE events from a sensor host to a remote
collector and renders a live terminal dashboard of what arrived.

  eveflow forward   tail eve.json and forward batches to a collector
  eveflow dash      receive batches and show the live dashboard
  eveflow seed      generate synthetic EVE events for testing`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(func() {
		// A .env next to the binary mirrors how the sensor hosts are
		// provisioned; absence is fine.
		_ = godotenv.Load()
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
}

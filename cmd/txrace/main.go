package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/txrace/utils"
)

var rootCmd = &cobra.Command{
	Use:           "txrace",
	Short:         "Counterfactual competitor analysis for failed transactions",
	Long:          "Finds the transaction that captured an opportunity before a monitored transaction by re-simulating it at earlier block positions",
	Version:       utils.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the config file, if empty string defaults will be used")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("env-file", ".env", "Dotenv file loaded before reading the config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		utils.LogFatal(err, "txrace failed", 0)
	}
}

// loadDotEnv loads the dotenv file if present. Variables already set win.
func loadDotEnv(cmd *cobra.Command) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile == "" {
		return
	}
	if _, err := os.Stat(envFile); err != nil {
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		logrus.WithError(err).Warnf("failed loading %v", envFile)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const serviceName = "saborlimeno-api"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "saborlimeno",
	Short: "Sabor Limeño ordering backend",
	Long: "Runs the ordering API and its companion workers. Configuration is read from " +
		"the environment and from a .env file in the working directory.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(shipLogsCmd)
}

// Command hirewire is the operator and power-user CLI: database chores run directly
// against the configured store, inbox commands go through the REST API.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	authToken string
	apiURL    = "http://localhost:8787"
	output    = "text" // "text" or "json"
)

var rootCmd = &cobra.Command{
	Use:           "hirewire",
	Short:         "HireWire CLI - inbox, notifications and database maintenance",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Authentication token (defaults to HIREWIRE_TOKEN env var)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("HIREWIRE_API", apiURL), "API server URL")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", output, "Output format: text or json")

	rootCmd.AddCommand(migrateCmd, seedCmd, reindexCmd)
	rootCmd.AddCommand(loginCmd, inboxCmd, threadCmd, sendCmd, readCmd, unreadCmd, notificationsCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

var (
	bold  = color.New(color.Bold)
	faint = color.New(color.Faint)
	cyan  = color.New(color.FgCyan)
)

func printSuccess(format string, args ...interface{}) {
	color.New(color.FgGreen).Printf(format+"\n", args...)
}

func printError(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

func printWarning(format string, args ...interface{}) {
	color.New(color.FgYellow).Printf("Warning: "+format+"\n", args...)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmoon/divtrack/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "divtrack-configure",
		Short: "Configuration tool for the divtrack API",
		Long:  "CLI tool for configuring OAuth providers, CORS and rate limits",
	}

	rootCmd.AddCommand(commands.NewOAuthCmd())
	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

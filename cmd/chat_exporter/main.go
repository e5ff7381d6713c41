// Package main provides the entry point for the chat exporter CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chat_exporter",
	Short: "Export chat conversations to Markdown",
	Long:  "chat_exporter drives a browser over a chat host, collects the conversation list, converts each conversation's rendered page to Markdown, and writes the results to a local directory with images externalized and front matter applied.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

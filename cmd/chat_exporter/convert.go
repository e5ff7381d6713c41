package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/chat-exporter/internal/markdown"
)

var convertCmd = &cobra.Command{
	Use:   "convert [file.html]",
	Short: "Convert a saved conversation page to Markdown",
	Long:  "Convert a single saved conversation page (HTML file, or stdin when no file is given) to Markdown on stdout or into --out.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConvert,
}

var (
	convertOutputFile string
	convertDedup      bool
)

func init() {
	convertCmd.Flags().StringVarP(&convertOutputFile, "out", "o", "", "Path to output Markdown file (default: stdout)")
	convertCmd.Flags().BoolVar(&convertDedup, "dedup-images", false, "Collapse consecutive duplicate images")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(_ *cobra.Command, args []string) error {
	var input []byte
	var err error
	if len(args) == 1 && args[0] != "-" {
		input, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
	} else {
		input, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	converter := markdown.New(markdown.Options{DedupAdjacentImages: convertDedup})
	result, err := converter.ConvertHTML(string(input))
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	if strings.TrimSpace(result) == "" {
		return fmt.Errorf("no conversation content found in input")
	}

	if convertOutputFile == "" {
		fmt.Println(result)
		return nil
	}
	if dir := filepath.Dir(convertOutputFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(convertOutputFile, []byte(result+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// Package cmd defines the CLI commands for the keyword-crawler executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyword-crawler",
		Short: "A breadth-first crawler that scores page keywords by TF-IDF.",
		Long: `keyword-crawler walks the web level by level from a seed set,
extracts the visible text of each page, keeps the content words and
emits the top keywords of every page to a configurable sink.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON)")
	cmd.AddCommand(newCrawlCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

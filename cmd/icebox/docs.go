package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// newDocsCmd builds the hidden gen-docs subcommand, which renders the CLI
// reference into a directory as man pages or markdown.
func newDocsCmd() *cobra.Command {
	var outDir, format string

	cmd := &cobra.Command{
		Use:    "gen-docs",
		Short:  "Generate CLI reference documentation",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			root := cmd.Root()
			switch format {
			case "man":
				header := &doc.GenManHeader{
					Title:   "ICEBOX",
					Section: "1",
					Source:  "icebox " + version,
				}
				return doc.GenManTree(root, header, outDir)
			case "markdown":
				return doc.GenMarkdownTree(root, outDir)
			}
			return fmt.Errorf("unknown format %q (use man or markdown)", format)
		},
	}

	cmd.Flags().StringVar(&outDir, "dir", "docs", "output directory")
	cmd.Flags().StringVar(&format, "format", "man", "output format (man or markdown)")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/profile-scraper/internal/dom"
	"github.com/jonathan/profile-scraper/internal/extract"
	"github.com/jonathan/profile-scraper/internal/observability"
	"github.com/jonathan/profile-scraper/internal/schemas"
	"github.com/jonathan/profile-scraper/internal/scrape"
	"github.com/jonathan/profile-scraper/internal/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a profile record from a saved HTML page",
	Long:  "Runs the field extractors over a profile page saved to disk, without a browser or a login. Useful for checking selectors against a fresh page.",
	RunE:  runExtract,
}

var (
	extractHTML    string
	extractSource  string
	extractOutput  string
	extractVerbose bool
)

func init() {
	extractCmd.Flags().StringVar(&extractHTML, "html", "", "Path to a saved profile page (required)")
	extractCmd.Flags().StringVarP(&extractSource, "source", "s", "", "Identifier to record as the source (defaults to the file name)")
	extractCmd.Flags().StringVarP(&extractOutput, "out", "o", "", "Path to write the record JSON (defaults to stdout)")
	extractCmd.Flags().BoolVarP(&extractVerbose, "verbose", "v", false, "Print a summary box and log missing fields")

	if err := extractCmd.MarkFlagRequired("html"); err != nil {
		panic(fmt.Sprintf("failed to mark html flag as required: %v", err))
	}

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	content, err := os.ReadFile(extractHTML)
	if err != nil {
		return fmt.Errorf("failed to read HTML file: %w", err)
	}

	doc, err := dom.Parse(string(content))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	source := extractSource
	if source == "" {
		source = strings.TrimSuffix(filepath.Base(extractHTML), filepath.Ext(extractHTML))
	}

	logger, err := observability.NewLogger(cmd.ErrOrStderr(), extractVerbose, "")
	if err != nil {
		return err
	}
	rec := scrape.Assemble(types.ProfileIdentifier(source), doc, extract.Default(), logger)
	if err := schemas.ValidateRecord(rec); err != nil {
		return fmt.Errorf("extracted record does not match schema: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	data = append(data, '\n')

	if extractVerbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintProfileRecord(&rec)
	}

	if extractOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	// Ensure output directory exists
	if dir := filepath.Dir(extractOutput); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(extractOutput, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote record for %s to %s\n", source, extractOutput)
	return nil
}

package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonathan/profile-scraper/internal/schemas"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a JSON lines file of profile records against the record schema",
	Long:  "Validates every line of a JSON lines file produced with --jsonl against the embedded profile record schema. Blank lines are ignored.",
	RunE:  runValidate,
}

var validateJSONL string

func init() {
	validateCmd.Flags().StringVar(&validateJSONL, "jsonl", "", "Path to the JSON lines file (required)")

	if err := validateCmd.MarkFlagRequired("jsonl"); err != nil {
		panic(fmt.Sprintf("failed to mark jsonl flag as required: %v", err))
	}

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	count, err := schemas.ValidateRecordsFile(validateJSONL)
	if err != nil {
		var lineErr *schemas.LineError
		if errors.As(err, &lineErr) {
			color.New(color.FgRed).Fprintf(out, "Validation failed: %d of %d records invalid\n", len(lineErr.Lines), count)
			return err
		}
		return fmt.Errorf("failed to validate %s: %w", validateJSONL, err)
	}

	color.New(color.FgGreen).Fprintf(out, "✓ Validation passed: %d records\n", count)
	return nil
}

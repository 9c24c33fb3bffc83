// Package main provides the profile_scraper CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "profile_scraper",
	Short: "Extract structured profile records from LinkedIn profile pages",
	Long: `profile_scraper signs in once, then visits each profile in an input list and writes one record per profile.

Records are written to CSV, and optionally to JSON lines, SQLite or PostgreSQL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

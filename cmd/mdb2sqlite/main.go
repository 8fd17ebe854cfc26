package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mbrigl/mdb2sqlite/internal/connector"
	"github.com/mbrigl/mdb2sqlite/internal/exporter"
	"github.com/mbrigl/mdb2sqlite/internal/reader/mdbtools"
	"github.com/mbrigl/mdb2sqlite/internal/utils"
)

func main() {
	var (
		logLevel    string
		envFile     string
		mdbtoolsDir string
		analyzeOnly bool
		verify      bool
	)

	rootCmd := &cobra.Command{
		Use:   "mdb2sqlite [flags] <source.mdb> <destination.db>",
		Short: "A tool to convert MS Access database files to SQLite",
		Long: `MDB to SQLite Converter

A Go tool that recreates an MS Access database as a SQLite file:
tables, columns and indexes are translated into SQLite's storage
classes, then every row is copied across. Reading the Access file
requires the mdbtools binaries (mdb-ver, mdb-tables, mdb-schema,
mdb-json) on PATH or in the directory given with --mdbtools-dir.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			// Setup logging
			logger := utils.SetupLogging(logLevel)

			// Load environment variables
			utils.LoadEnvironmentVariables(envFile, logger)

			// Get the mdbtools location from the environment if not provided
			if mdbtoolsDir == "" {
				mdbtoolsDir = os.Getenv("MDB2SQLITE_MDBTOOLS_DIR")
			}

			sourcePath := args[0]
			destPath := args[1]

			// Open the source file
			source, err := mdbtools.Open(sourcePath, mdbtoolsDir, logger)
			if err != nil {
				logger.Errorf("Failed to open source database: %v", err)
				os.Exit(1)
			}
			defer source.Close()

			// Print schema analysis
			utils.PrintSchemaReport(source)

			// If analyze-only mode, exit here
			if analyzeOnly {
				logger.Info("Analyze-only mode, exiting without exporting data")
				return
			}

			// Open the destination file; it must be new or empty
			store := connector.NewSQLiteConnector(destPath, logger)
			if err := store.Open(); err != nil {
				logger.Errorf("Failed to open destination database: %v", err)
				os.Exit(1)
			}
			defer store.Close()

			// Run the export
			logger.Info("Starting export...")
			result, err := exporter.New(source, store, logger).Run()
			if err != nil {
				logger.Errorf("Export failed: %v", err)
				os.Exit(1)
			}

			// Print summary
			utils.PrintSummary(result)

			// Verify the destination if requested
			if verify {
				verification := utils.VerifyExport(store, result, logger)
				utils.PrintVerificationResults(verification)
				if !verification.Success {
					os.Exit(1)
				}
			}
		},
	}

	// Define flags
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.Flags().StringVarP(&mdbtoolsDir, "mdbtools-dir", "m", "", "Directory containing the mdbtools binaries (default: PATH lookup)")
	rootCmd.Flags().BoolVarP(&analyzeOnly, "analyze-only", "a", false, "Only analyze the source schema without exporting data")
	rootCmd.Flags().BoolVarP(&verify, "verify", "v", false, "Verify destination row counts against the export after it completes")

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/mbrigl/mdb2sqlite/internal/connector"
	"github.com/mbrigl/mdb2sqlite/internal/reader"
	"github.com/mbrigl/mdb2sqlite/internal/translator"
	"github.com/mbrigl/mdb2sqlite/pkg/models"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	// Create a new logger
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("MDB2SQLITE_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	// Parse log level
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	// Configure logger
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	// Reports and summaries go to stdout; diagnostics stay on stderr
	logger.SetOutput(os.Stderr)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from .env file
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) {
	// Check if a sample .env file exists but not the actual .env file
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	// Load environment variables from .env file if it exists
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Infof("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Debugf("No %s file found, using existing environment variables", envFile)
	}

	// Log all available MDB2SQLITE_* environment variables (for debugging)
	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if strings.HasPrefix(env, "MDB2SQLITE_") {
				logger.Debugf("%s", env)
			}
		}
	}
}

// PrintSchemaReport prints a detailed analysis of the source schema and
// how each column will map into the destination.
func PrintSchemaReport(source reader.Database) {
	tables := source.TableNames()

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SOURCE SCHEMA ANALYSIS REPORT")
	fmt.Println(strings.Repeat("=", 80))

	// Basic statistics
	totalColumns := 0
	totalIndexes := 0
	unmapped := 0
	categoryCounts := make(map[models.StorageCategory]int)

	for _, name := range tables {
		table, err := source.Table(name)
		if err != nil {
			continue
		}
		totalColumns += len(table.Columns)
		totalIndexes += len(table.Indexes)
		for _, column := range table.Columns {
			category, err := translator.CategoryFor(column.Type)
			if err != nil {
				unmapped++
				continue
			}
			categoryCounts[category]++
		}
	}

	fmt.Println("\n1. BASIC STATISTICS")
	fmt.Printf("   Total tables: %d\n", len(tables))
	fmt.Printf("   Total columns: %d\n", totalColumns)
	fmt.Printf("   Total indexes: %d\n", totalIndexes)
	for _, category := range []models.StorageCategory{models.StorageBlob, models.StorageInteger, models.StorageReal, models.StorageText} {
		fmt.Printf("   Columns mapping to %s: %d\n", category, categoryCounts[category])
	}
	if unmapped > 0 {
		fmt.Printf("   Columns with UNSUPPORTED types: %d (export will fail)\n", unmapped)
	}

	// Per-table breakdown
	fmt.Println("\n2. TABLES")
	for _, name := range tables {
		table, err := source.Table(name)
		if err != nil {
			fmt.Printf("   %s: %v\n", name, err)
			continue
		}

		fmt.Printf("   %s (%d columns, %d indexes)\n", name, len(table.Columns), len(table.Indexes))
		for _, column := range table.Columns {
			category, err := translator.CategoryFor(column.Type)
			mapped := string(category)
			if err != nil {
				mapped = "UNSUPPORTED"
			}
			fmt.Printf("      %-30s %-18s -> %s\n", column.Name, column.Type, mapped)
		}
		for _, index := range table.Indexes {
			kind := "index"
			if index.Unique {
				kind = "unique index"
			}
			fmt.Printf("      [%s] %s_%s (%s)\n", kind, table.Name, index.Name, strings.Join(index.Columns, ", "))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
}

// PrintSummary prints a summary of the export
func PrintSummary(result *models.ExportResult) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("EXPORT SUMMARY")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Tables exported: %d\n", len(result.CompletedTables))
	fmt.Printf("Indexes created: %d\n", result.IndexCount)
	fmt.Printf("Total rows copied: %d\n", result.TotalRows)
	fmt.Printf("Duration: %s\n", result.Duration)

	if len(result.CompletedTables) > 0 {
		fmt.Println("\nRows per table:")
		for _, table := range result.CompletedTables {
			fmt.Printf("  - %s: %d\n", table, result.RowCounts[table])
		}
	}

	fmt.Println(strings.Repeat("=", 50))
}

// VerifyExport re-counts every exported table in the destination and
// compares against what the export reported copying.
func VerifyExport(store *connector.SQLiteConnector, result *models.ExportResult, logger *logrus.Logger) *models.VerificationResult {
	logger.Infof("Verifying %d exported tables...", len(result.CompletedTables))

	verification := &models.VerificationResult{
		Success:    true,
		Mismatches: make(map[string]models.CountMismatch),
	}

	for _, table := range result.CompletedTables {
		expected := result.RowCounts[table]

		actual, err := store.CountRows(table)
		if err != nil {
			logger.Warningf("Could not verify row count for table: %s", table)
			verification.MissingTables = append(verification.MissingTables, table)
			verification.Success = false
			continue
		}

		if actual != expected {
			logger.Warningf("Table %s has %d rows, export reported %d", table, actual, expected)
			verification.Mismatches[table] = models.CountMismatch{Expected: expected, Actual: actual}
			verification.Success = false
		}
	}

	if verification.Success {
		logger.Info("Verification successful: all destination row counts match the export")
	} else {
		logger.Errorf("Verification failed: %d missing tables, %d count mismatches",
			len(verification.MissingTables), len(verification.Mismatches))
	}

	return verification
}

// PrintVerificationResults prints the results of the post-export check
func PrintVerificationResults(verification *models.VerificationResult) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("EXPORT VERIFICATION RESULTS")
	fmt.Println(strings.Repeat("=", 50))

	if verification.Success {
		fmt.Println("All destination row counts match the export")
		fmt.Println(strings.Repeat("=", 50))
		return
	}

	if len(verification.MissingTables) > 0 {
		fmt.Printf("%d tables could not be counted:\n", len(verification.MissingTables))
		for _, table := range verification.MissingTables {
			fmt.Printf("  - %s\n", table)
		}
		fmt.Println()
	}

	if len(verification.Mismatches) > 0 {
		fmt.Printf("%d tables have mismatched row counts:\n", len(verification.Mismatches))
		for table, mismatch := range verification.Mismatches {
			fmt.Printf("  - %s: %d in destination, %d reported\n", table, mismatch.Actual, mismatch.Expected)
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 50))
}

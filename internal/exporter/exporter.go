// Package exporter drives a full export: schema creation for every
// table first, then row population, each table inside its own
// destination transaction.
package exporter

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mbrigl/mdb2sqlite/internal/connector"
	"github.com/mbrigl/mdb2sqlite/internal/converter"
	"github.com/mbrigl/mdb2sqlite/internal/reader"
	"github.com/mbrigl/mdb2sqlite/internal/reader/mdbtools"
	"github.com/mbrigl/mdb2sqlite/internal/translator"
	"github.com/mbrigl/mdb2sqlite/pkg/models"
)

// Store is the destination surface the export writes through. The
// SQLite connector implements it; tests may substitute their own.
type Store interface {
	SetAutoVacuum(enabled bool) error
	Begin() error
	Commit() error
	Rollback() error
	ExecDDL(statement string) error
	Insert(table string, values []any) error
}

// Exporter copies one opened source database into one opened
// destination. Run performs the whole export.
type Exporter struct {
	Source reader.Database
	Store  Store
	Logger *logrus.Logger
}

// New creates an exporter over an opened source and destination
func New(source reader.Database, store Store, logger *logrus.Logger) *Exporter {
	return &Exporter{
		Source: source,
		Store:  store,
		Logger: logger,
	}
}

// Export opens the source file and the destination file and copies
// everything across. The destination must be new or empty. toolDir
// overrides PATH lookup of the mdbtools binaries when not empty.
func Export(sourcePath, destPath, toolDir string, logger *logrus.Logger) (*models.ExportResult, error) {
	source, err := mdbtools.Open(sourcePath, toolDir, logger)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	store := connector.NewSQLiteConnector(destPath, logger)
	if err := store.Open(); err != nil {
		return nil, err
	}
	defer store.Close()

	return New(source, store, logger).Run()
}

// tableDDL is one table's statements, held back until every table has
// translated cleanly.
type tableDDL struct {
	table      *models.Table
	statements []string
}

// Run executes the export. Tables are processed in name order, schema
// for all tables strictly before rows for any table. A failure stops
// the export; tables committed before it keep their contents.
func (e *Exporter) Run() (*models.ExportResult, error) {
	start := time.Now()

	if err := e.Store.SetAutoVacuum(true); err != nil {
		return nil, err
	}

	names := e.Source.TableNames()
	e.Logger.Infof("Exporting %d tables", len(names))

	// Translate every table before any DDL runs, so an unmapped type
	// anywhere in the source leaves the destination without a single
	// schema object.
	result := &models.ExportResult{RowCounts: make(map[string]int64)}
	ddl := make([]tableDDL, 0, len(names))
	for _, name := range names {
		table, err := e.Source.Table(name)
		if err != nil {
			return nil, err
		}
		statements, err := translator.TableStatements(table)
		if err != nil {
			return nil, err
		}
		ddl = append(ddl, tableDDL{table: table, statements: statements})
		result.IndexCount += len(table.Indexes)
	}

	// Schema phase: each table and its indexes commit atomically
	for _, entry := range ddl {
		if err := e.createTable(entry); err != nil {
			return nil, err
		}
	}

	// Population phase
	for _, entry := range ddl {
		count, err := e.copyRows(entry.table)
		if err != nil {
			return nil, err
		}
		result.RowCounts[entry.table.Name] = count
		result.TotalRows += count
		result.CompletedTables = append(result.CompletedTables, entry.table.Name)
	}

	result.Duration = time.Since(start)
	e.Logger.Infof("Export complete: %d tables, %d rows in %s",
		len(result.CompletedTables), result.TotalRows, result.Duration.Round(time.Millisecond))
	return result, nil
}

// createTable runs one table's CREATE TABLE and CREATE INDEX statements
// inside a single transaction
func (e *Exporter) createTable(entry tableDDL) error {
	e.Logger.Infof("Creating table: %s", entry.table.Name)

	if err := e.Store.Begin(); err != nil {
		return err
	}
	for _, statement := range entry.statements {
		if err := e.Store.ExecDDL(statement); err != nil {
			e.Store.Rollback()
			return err
		}
	}
	return e.Store.Commit()
}

// copyRows streams one table's rows into the destination inside a
// single transaction. Any failure rolls the whole table back.
func (e *Exporter) copyRows(table *models.Table) (int64, error) {
	e.Logger.Infof("Populating table: %s", table.Name)

	rows, err := e.Source.Rows(table.Name)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if err := e.Store.Begin(); err != nil {
		return 0, err
	}

	var count int64
	for rows.Next() {
		values, err := converter.Values(table, rows.Row())
		if err != nil {
			e.Store.Rollback()
			return 0, err
		}
		if err := e.Store.Insert(table.Name, values); err != nil {
			e.Store.Rollback()
			return 0, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		e.Store.Rollback()
		return 0, err
	}

	if err := e.Store.Commit(); err != nil {
		return 0, err
	}
	e.Logger.Infof("Populated table %s with %d rows", table.Name, count)
	return count, nil
}

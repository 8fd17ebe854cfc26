package connector

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mbrigl/mdb2sqlite/internal/translator"
)

// OpenError reports a destination file that cannot be used for an export.
type OpenError struct {
	Path   string
	Reason string
	Cause  error
}

func (e *OpenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot open destination %s: %s: %v", e.Path, e.Reason, e.Cause)
	}
	return fmt.Sprintf("cannot open destination %s: %s", e.Path, e.Reason)
}

func (e *OpenError) Unwrap() error { return e.Cause }

// DestinationError reports a failed write against the destination.
type DestinationError struct {
	Table     string
	Statement string
	Cause     error
}

func (e *DestinationError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("destination write failed for table %s: %v", e.Table, e.Cause)
	}
	return fmt.Sprintf("destination statement failed (%s): %v", e.Statement, e.Cause)
}

func (e *DestinationError) Unwrap() error { return e.Cause }

// SQLiteConnector manages the destination database file. All schema and
// row writes go through a single explicitly managed transaction.
type SQLiteConnector struct {
	Path   string
	DB     *sql.DB
	Logger *logrus.Logger

	tx          *sql.Tx
	insertStmts map[string]*sql.Stmt
}

// NewSQLiteConnector creates a new destination connector
func NewSQLiteConnector(path string, logger *logrus.Logger) *SQLiteConnector {
	return &SQLiteConnector{
		Path:   path,
		Logger: logger,
	}
}

// Open creates or opens the destination file. A destination that already
// contains schema objects is refused before anything is written to it.
func (sc *SQLiteConnector) Open() error {
	db, err := sql.Open(driverName, sc.Path)
	if err != nil {
		sc.Logger.Errorf("Error opening destination database: %v", err)
		return &OpenError{Path: sc.Path, Reason: "driver open failed", Cause: err}
	}

	// SQLite allows one writer; a single connection also keeps the
	// managed transaction and any reads on the same handle.
	db.SetMaxOpenConns(1)

	var objects int
	if err := db.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&objects); err != nil {
		db.Close()
		sc.Logger.Errorf("Error validating destination database: %v", err)
		return &OpenError{Path: sc.Path, Reason: "not a usable database file", Cause: err}
	}
	if objects > 0 {
		db.Close()
		sc.Logger.Errorf("Destination database is not empty: %d schema objects", objects)
		return &OpenError{Path: sc.Path, Reason: fmt.Sprintf("destination is not empty (%d schema objects)", objects)}
	}

	sc.DB = db
	sc.Logger.Infof("Opened destination database: %s", sc.Path)
	return nil
}

// SetAutoVacuum configures space reclamation. Must run before the first
// table is created to take effect.
func (sc *SQLiteConnector) SetAutoVacuum(enabled bool) error {
	mode := "NONE"
	if enabled {
		mode = "FULL"
	}
	if _, err := sc.DB.Exec(fmt.Sprintf("PRAGMA auto_vacuum = %s", mode)); err != nil {
		sc.Logger.Errorf("Error setting auto_vacuum: %v", err)
		return &DestinationError{Statement: "PRAGMA auto_vacuum", Cause: err}
	}
	return nil
}

// Begin starts the managed transaction
func (sc *SQLiteConnector) Begin() error {
	if sc.tx != nil {
		return fmt.Errorf("transaction already open")
	}
	tx, err := sc.DB.Begin()
	if err != nil {
		sc.Logger.Errorf("Error starting transaction: %v", err)
		return &DestinationError{Statement: "BEGIN", Cause: err}
	}
	sc.tx = tx
	sc.insertStmts = make(map[string]*sql.Stmt)
	return nil
}

// Commit commits the managed transaction
func (sc *SQLiteConnector) Commit() error {
	if sc.tx == nil {
		return fmt.Errorf("no open transaction")
	}
	sc.closeStatements()
	err := sc.tx.Commit()
	sc.tx = nil
	if err != nil {
		sc.Logger.Errorf("Error committing transaction: %v", err)
		return &DestinationError{Statement: "COMMIT", Cause: err}
	}
	return nil
}

// Rollback abandons the managed transaction
func (sc *SQLiteConnector) Rollback() error {
	if sc.tx == nil {
		return fmt.Errorf("no open transaction")
	}
	sc.closeStatements()
	err := sc.tx.Rollback()
	sc.tx = nil
	if err != nil {
		sc.Logger.Errorf("Error rolling back transaction: %v", err)
		return &DestinationError{Statement: "ROLLBACK", Cause: err}
	}
	return nil
}

// ExecDDL executes a schema statement inside the managed transaction
func (sc *SQLiteConnector) ExecDDL(statement string) error {
	if sc.tx == nil {
		return fmt.Errorf("no open transaction")
	}
	sc.Logger.Debugf("Executing DDL: %s", statement)
	if _, err := sc.tx.Exec(statement); err != nil {
		sc.Logger.Errorf("Error executing DDL: %v", err)
		return &DestinationError{Statement: statement, Cause: err}
	}
	return nil
}

// Insert writes one row into a table inside the managed transaction.
// Values are bound positionally in the table's declared column order.
func (sc *SQLiteConnector) Insert(table string, values []any) error {
	if sc.tx == nil {
		return fmt.Errorf("no open transaction")
	}

	stmt, ok := sc.insertStmts[table]
	if !ok {
		prepared, err := sc.tx.Prepare(insertStatement(table, len(values)))
		if err != nil {
			sc.Logger.Errorf("Error preparing insert for table %s: %v", table, err)
			return &DestinationError{Table: table, Cause: err}
		}
		sc.insertStmts[table] = prepared
		stmt = prepared
	}

	if _, err := stmt.Exec(values...); err != nil {
		sc.Logger.Errorf("Error inserting into table %s: %v", table, err)
		return &DestinationError{Table: table, Cause: err}
	}
	return nil
}

// CountRows returns the number of rows a destination table holds
func (sc *SQLiteConnector) CountRows(table string) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT count(*) FROM %s", translator.Escape(table))
	if err := sc.DB.QueryRow(query).Scan(&count); err != nil {
		sc.Logger.Errorf("Error counting rows in table %s: %v", table, err)
		return 0, &DestinationError{Table: table, Statement: query, Cause: err}
	}
	return count, nil
}

// Close releases the destination handle, abandoning any open transaction
func (sc *SQLiteConnector) Close() {
	if sc.tx != nil {
		sc.closeStatements()
		if err := sc.tx.Rollback(); err != nil {
			sc.Logger.Errorf("Error rolling back open transaction on close: %v", err)
		}
		sc.tx = nil
	}
	if sc.DB != nil {
		if err := sc.DB.Close(); err != nil {
			sc.Logger.Errorf("Error closing destination database: %v", err)
		} else {
			sc.Logger.Info("Destination database closed")
		}
		sc.DB = nil
	}
}

func (sc *SQLiteConnector) closeStatements() {
	for _, stmt := range sc.insertStmts {
		stmt.Close()
	}
	sc.insertStmts = nil
}

func insertStatement(table string, arity int) string {
	placeholders := make([]string, arity)
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", translator.Escape(table), strings.Join(placeholders, ", "))
}

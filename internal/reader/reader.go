package reader

import (
	"fmt"

	"github.com/mbrigl/mdb2sqlite/pkg/models"
)

// OpenError reports a source file that cannot be opened or validated.
type OpenError struct {
	Path  string
	Cause error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open source %s: %v", e.Path, e.Cause)
}

func (e *OpenError) Unwrap() error { return e.Cause }

// Database is a read-only view of a source database file.
type Database interface {
	// TableNames returns the user tables in ascending name order. Both
	// export phases walk tables in exactly this order.
	TableNames() []string

	// Table returns a table definition with columns in declared order.
	Table(name string) (*models.Table, error)

	// Rows opens a forward-only stream over one table's records. Rows
	// are produced lazily and aligned with the table's column order.
	Rows(name string) (RowIterator, error)

	Close() error
}

// RowIterator streams one table's rows. Callers loop with Next and Row,
// then check Err, and must Close the iterator on every path.
type RowIterator interface {
	Next() bool
	Row() models.Row
	Err() error
	Close() error
}

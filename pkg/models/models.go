package models

import "time"

// TypeTag identifies a source column type as reported by the Access file.
type TypeTag string

// Source type tags. Anything outside this set has no storage category and
// aborts the export before schema creation.
const (
	TypeBinary        TypeTag = "BINARY"
	TypeBoolean       TypeTag = "BOOLEAN"
	TypeByte          TypeTag = "BYTE"
	TypeDouble        TypeTag = "DOUBLE"
	TypeFloat         TypeTag = "FLOAT"
	TypeGUID          TypeTag = "GUID"
	TypeInt           TypeTag = "INT"
	TypeLong          TypeTag = "LONG"
	TypeMemo          TypeTag = "MEMO"
	TypeMoney         TypeTag = "MONEY"
	TypeNumeric       TypeTag = "NUMERIC"
	TypeOLE           TypeTag = "OLE"
	TypeShortDateTime TypeTag = "SHORT_DATE_TIME"
	TypeText          TypeTag = "TEXT"
)

// StorageCategory is the destination storage class a column maps to.
type StorageCategory string

const (
	StorageBlob    StorageCategory = "BLOB"
	StorageInteger StorageCategory = "INTEGER"
	StorageReal    StorageCategory = "REAL"
	StorageText    StorageCategory = "TEXT"
)

// Column represents a source column with its declared type
type Column struct {
	Name string
	Type TypeTag
}

// Index represents a source index definition
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table represents a source table with its columns in declared order
type Table struct {
	Name    string
	Columns []Column
	Indexes []Index
}

// Row holds one record's values positionally, aligned with the owning
// table's declared column order. A nil element is a NULL.
type Row []any

// ExportResult represents the outcome of an export run
type ExportResult struct {
	CompletedTables []string
	RowCounts       map[string]int64
	TotalRows       int64
	IndexCount      int
	Duration        time.Duration
}

// VerificationResult represents the result of the post-export check
type VerificationResult struct {
	Success       bool
	MissingTables []string
	Mismatches    map[string]CountMismatch
}

// CountMismatch records a table whose destination row count differs from
// the number of rows the export reported copying.
type CountMismatch struct {
	Expected int64
	Actual   int64
}

package translator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mbrigl/mdb2sqlite/pkg/models"
)

// UnsupportedTypeError reports a source column whose type tag has no
// destination storage category.
type UnsupportedTypeError struct {
	Table  string
	Column string
	Tag    models.TypeTag
}

func (e *UnsupportedTypeError) Error() string {
	if e.Table == "" && e.Column == "" {
		return fmt.Sprintf("unhandled MS Access datatype: %s", e.Tag)
	}
	return fmt.Sprintf("unhandled MS Access datatype: %s (column %s.%s)", e.Tag, e.Table, e.Column)
}

// ColumnDef pairs a column name with its resolved storage category.
type ColumnDef struct {
	Name     string
	Category models.StorageCategory
}

// CategoryFor resolves a source type tag to its destination storage
// category. Unknown tags are an error, never a fallback category.
func CategoryFor(tag models.TypeTag) (models.StorageCategory, error) {
	switch tag {
	case models.TypeBinary, models.TypeOLE:
		return models.StorageBlob, nil
	case models.TypeBoolean, models.TypeByte, models.TypeInt, models.TypeLong:
		return models.StorageInteger, nil
	case models.TypeDouble, models.TypeFloat, models.TypeNumeric:
		return models.StorageReal, nil
	case models.TypeText, models.TypeGUID, models.TypeMemo, models.TypeMoney, models.TypeShortDateTime:
		return models.StorageText, nil
	}
	return "", &UnsupportedTypeError{Tag: tag}
}

// Escape quotes an identifier for use in destination SQL, doubling any
// embedded single quotes.
func Escape(identifier string) string {
	return "'" + strings.ReplaceAll(identifier, "'", "''") + "'"
}

// ResolveColumns resolves every column of a table to a storage category,
// preserving declared order. The first unmapped type fails the whole
// table, naming the table, column and offending tag.
func ResolveColumns(table *models.Table) ([]ColumnDef, error) {
	defs := make([]ColumnDef, 0, len(table.Columns))
	for _, column := range table.Columns {
		category, err := CategoryFor(column.Type)
		if err != nil {
			var unsupported *UnsupportedTypeError
			if errors.As(err, &unsupported) {
				unsupported.Table = table.Name
				unsupported.Column = column.Name
			}
			return nil, err
		}
		defs = append(defs, ColumnDef{Name: column.Name, Category: category})
	}
	return defs, nil
}

// CreateTableStatement builds the CREATE TABLE statement for a table
// whose columns have already been resolved to storage categories.
func CreateTableStatement(table string, defs []ColumnDef) string {
	columns := make([]string, len(defs))
	for i, def := range defs {
		columns[i] = fmt.Sprintf("%s %s", Escape(def.Name), def.Category)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", Escape(table), strings.Join(columns, ", "))
}

// CreateIndexStatement builds the CREATE INDEX statement for one source
// index. The destination index name is <table>_<index> so that per-table
// index names stay unique in the destination's global namespace.
func CreateIndexStatement(table string, index models.Index) string {
	columns := make([]string, len(index.Columns))
	for i, column := range index.Columns {
		columns[i] = Escape(column)
	}
	keyword := "INDEX"
	if index.Unique {
		keyword = "UNIQUE INDEX"
	}
	name := fmt.Sprintf("%s_%s", table, index.Name)
	return fmt.Sprintf("CREATE %s %s ON %s(%s)", keyword, Escape(name), Escape(table), strings.Join(columns, ", "))
}

// TableStatements resolves a table and returns its full DDL: the CREATE
// TABLE statement followed by one CREATE INDEX statement per index.
func TableStatements(table *models.Table) ([]string, error) {
	defs, err := ResolveColumns(table)
	if err != nil {
		return nil, err
	}
	statements := make([]string, 0, 1+len(table.Indexes))
	statements = append(statements, CreateTableStatement(table.Name, defs))
	for _, index := range table.Indexes {
		statements = append(statements, CreateIndexStatement(table.Name, index))
	}
	return statements, nil
}

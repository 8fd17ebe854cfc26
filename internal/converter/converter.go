package converter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mbrigl/mdb2sqlite/pkg/models"
)

// ConversionError reports a value whose dynamic type does not match what
// its column's type tag requires.
type ConversionError struct {
	Table  string
	Column string
	Tag    models.TypeTag
	Value  any
}

func (e *ConversionError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("cannot convert %T value for %s column %s", e.Value, e.Tag, e.Column)
	}
	return fmt.Sprintf("cannot convert %T value for %s column %s.%s", e.Value, e.Tag, e.Table, e.Column)
}

// Value converts one source value for insertion into the destination.
// NULL passes through before any type handling. Currency becomes its
// decimal text so no precision is lost, booleans become the integers 1
// and 0, and every other value is handed to the driver untouched.
func Value(column models.Column, value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch column.Type {
	case models.TypeMoney:
		return moneyText(column, value)

	case models.TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, &ConversionError{Column: column.Name, Tag: column.Type, Value: value}
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	}

	return value, nil
}

// moneyText renders a currency value as the text that will be stored.
// String forms pass through so the source's decimal rendering survives.
func moneyText(column models.Column, value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	}
	return nil, &ConversionError{Column: column.Name, Tag: column.Type, Value: value}
}

// Values converts a whole row positionally against the table's declared
// column order, enforcing that the row has exactly one value per column.
func Values(table *models.Table, row models.Row) ([]any, error) {
	if len(row) != len(table.Columns) {
		return nil, fmt.Errorf("table %s: row has %d values, expected %d", table.Name, len(row), len(table.Columns))
	}

	converted := make([]any, len(row))
	for i, column := range table.Columns {
		value, err := Value(column, row[i])
		if err != nil {
			var conversion *ConversionError
			if errors.As(err, &conversion) {
				conversion.Table = table.Name
			}
			return nil, err
		}
		converted[i] = value
	}
	return converted, nil
}

package mdbtools

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/mbrigl/mdb2sqlite/pkg/models"
)

// rowIterator decodes mdb-json output one object at a time, so a table
// is never materialized in memory.
type rowIterator struct {
	table   *models.Table
	stream  io.ReadCloser
	wait    func() error
	decoder *json.Decoder
	current models.Row
	err     error
	done    bool
}

func newRowIterator(table *models.Table, stream io.ReadCloser, wait func() error) *rowIterator {
	decoder := json.NewDecoder(stream)
	decoder.UseNumber()
	return &rowIterator{table: table, stream: stream, wait: wait, decoder: decoder}
}

// Next advances to the next row. The first failure ends the stream.
func (it *rowIterator) Next() bool {
	if it.done || it.err != nil {
		return false
	}

	var record map[string]any
	if err := it.decoder.Decode(&record); err != nil {
		if errors.Is(err, io.EOF) {
			it.finish()
		} else {
			it.err = fmt.Errorf("table %s: decoding row: %w", it.table.Name, err)
			it.teardown()
		}
		return false
	}

	row, err := alignRow(it.table, record)
	if err != nil {
		it.err = err
		it.teardown()
		return false
	}
	it.current = row
	return true
}

func (it *rowIterator) Row() models.Row { return it.current }

func (it *rowIterator) Err() error { return it.err }

// Close abandons the stream early. Safe on every path.
func (it *rowIterator) Close() error {
	it.teardown()
	return nil
}

// finish is the natural end of the stream. The process exit status is
// checked here because some read failures only surface there.
func (it *rowIterator) finish() {
	if it.done {
		return
	}
	it.done = true
	it.stream.Close()
	if err := it.wait(); err != nil && it.err == nil {
		it.err = fmt.Errorf("table %s: %w", it.table.Name, err)
	}
}

// teardown reaps the process without treating its exit status as the
// iterator's error; the caller already has one.
func (it *rowIterator) teardown() {
	if it.done {
		return
	}
	it.done = true
	it.stream.Close()
	if it.wait != nil {
		it.wait()
	}
}

// alignRow projects a decoded JSON object onto the table's declared
// column order. A missing key and an explicit null are both NULL.
func alignRow(table *models.Table, record map[string]any) (models.Row, error) {
	row := make(models.Row, len(table.Columns))
	for i, column := range table.Columns {
		raw, ok := record[column.Name]
		if !ok || raw == nil {
			row[i] = nil
			continue
		}
		value, err := coerceValue(column, raw)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", table.Name, err)
		}
		row[i] = value
	}
	return row, nil
}

// coerceValue turns the JSON rendering of a value into the Go type its
// column tag calls for, tolerating the rendering differences between
// mdbtools versions.
func coerceValue(column models.Column, raw any) (any, error) {
	switch column.Type {
	case models.TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case json.Number:
			switch v.String() {
			case "0":
				return false, nil
			case "1":
				return true, nil
			}
		}

	case models.TypeByte, models.TypeInt, models.TypeLong:
		switch v := raw.(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return n, nil
			}
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n, nil
			}
		}

	case models.TypeFloat, models.TypeDouble, models.TypeNumeric:
		switch v := raw.(type) {
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, nil
			}
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, nil
			}
		}

	case models.TypeMoney:
		// The tool's decimal token is kept verbatim; it becomes the
		// stored text without a float round trip.
		switch v := raw.(type) {
		case json.Number:
			return v.String(), nil
		case string:
			return v, nil
		}

	case models.TypeText, models.TypeMemo, models.TypeGUID, models.TypeShortDateTime:
		switch v := raw.(type) {
		case string:
			return v, nil
		case json.Number:
			return v.String(), nil
		}

	case models.TypeBinary, models.TypeOLE:
		if v, ok := raw.(string); ok {
			return []byte(v), nil
		}

	default:
		return raw, nil
	}

	return nil, fmt.Errorf("column %s (%s): unexpected %T value", column.Name, column.Type, raw)
}

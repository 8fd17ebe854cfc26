package mdbtools

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mbrigl/mdb2sqlite/internal/reader"
	"github.com/mbrigl/mdb2sqlite/pkg/models"
)

// fakeRunner serves canned tool output keyed by the full command line.
type fakeRunner struct {
	outputs  map[string]string
	failures map[string]error
	streams  map[string]string
	waitErrs map[string]error
	calls    []string
}

func commandKey(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func (f *fakeRunner) Output(name string, args ...string) ([]byte, error) {
	key := commandKey(name, args)
	f.calls = append(f.calls, key)
	if err, ok := f.failures[key]; ok {
		return nil, err
	}
	out, ok := f.outputs[key]
	if !ok {
		return nil, fmt.Errorf("unexpected command: %s", key)
	}
	return []byte(out), nil
}

func (f *fakeRunner) Start(name string, args ...string) (io.ReadCloser, func() error, error) {
	key := commandKey(name, args)
	f.calls = append(f.calls, key)
	if err, ok := f.failures[key]; ok {
		return nil, nil, err
	}
	data, ok := f.streams[key]
	if !ok {
		return nil, nil, fmt.Errorf("unexpected command: %s", key)
	}
	waitErr := f.waitErrs[key]
	return io.NopCloser(strings.NewReader(data)), func() error { return waitErr }, nil
}

// Helper function to create a test logger
func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

// writeSourceFile puts a placeholder source file on disk so the stat
// check in load passes.
func writeSourceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.mdb")
	if err := os.WriteFile(path, []byte("placeholder"), 0o644); err != nil {
		t.Fatalf("Expected source fixture to be written, got error: %v", err)
	}
	return path
}

func testDatabase(path string, run runner) *Database {
	return &Database{
		Path:   path,
		Logger: createTestLogger(),
		run:    run,
	}
}

func TestLoad(t *testing.T) {
	path := writeSourceFile(t)

	run := &fakeRunner{
		outputs: map[string]string{
			"mdb-ver " + path:                            "JET4\n",
			"mdb-tables -1 " + path:                      "Orders\nCustomers\n",
			"mdb-schema --indexes --no-relations " + path: sampleSchema,
		},
	}

	db := testDatabase(path, run)
	if err := db.load(); err != nil {
		t.Fatalf("Expected load to succeed, got error: %v", err)
	}

	// Table names come back sorted ascending regardless of tool order
	names := db.TableNames()
	if len(names) != 2 || names[0] != "Customers" || names[1] != "Orders" {
		t.Errorf("Expected sorted [Customers Orders], got %v", names)
	}

	table, err := db.Table("Customers")
	if err != nil {
		t.Fatalf("Expected Customers definition, got error: %v", err)
	}
	if len(table.Columns) != 7 {
		t.Errorf("Expected 7 columns on Customers, got %d", len(table.Columns))
	}

	if _, err := db.Table("Nope"); err == nil {
		t.Error("Expected an unknown table to fail")
	}
}

func TestLoadMissingFile(t *testing.T) {
	db := testDatabase(filepath.Join(t.TempDir(), "absent.mdb"), &fakeRunner{})

	err := db.load()
	if err == nil {
		t.Fatal("Expected a missing source to fail, got nil")
	}

	var open *reader.OpenError
	if !errors.As(err, &open) {
		t.Fatalf("Expected an OpenError, got %T", err)
	}
}

func TestLoadRejectsInvalidFormat(t *testing.T) {
	path := writeSourceFile(t)

	run := &fakeRunner{
		failures: map[string]error{
			"mdb-ver " + path: errors.New("mdb-ver: Unable to locate database"),
		},
	}

	db := testDatabase(path, run)
	err := db.load()
	if err == nil {
		t.Fatal("Expected an invalid source to fail, got nil")
	}

	// The format check failure is an open failure with the cause kept
	var open *reader.OpenError
	if !errors.As(err, &open) {
		t.Fatalf("Expected an OpenError, got %T", err)
	}
	if open.Path != path {
		t.Errorf("Expected error path to be %s, got %s", path, open.Path)
	}
	if !strings.Contains(err.Error(), "Unable to locate database") {
		t.Errorf("Expected the tool diagnostic to be kept, got %q", err.Error())
	}
}

func TestToolDirOverride(t *testing.T) {
	path := writeSourceFile(t)

	run := &fakeRunner{
		outputs: map[string]string{
			"/opt/mdbtools/bin/mdb-ver " + path:                            "JET4\n",
			"/opt/mdbtools/bin/mdb-tables -1 " + path:                      "Customers\n",
			"/opt/mdbtools/bin/mdb-schema --indexes --no-relations " + path: sampleSchema,
		},
	}

	db := testDatabase(path, run)
	db.toolDir = "/opt/mdbtools/bin"
	if err := db.load(); err != nil {
		t.Fatalf("Expected load with a tool dir to succeed, got error: %v", err)
	}
}

func TestRows(t *testing.T) {
	path := writeSourceFile(t)

	rows := `{"ID":1,"Name":"Ada","Balance":12.5000,"Active":1,"Notes":null,"Photo":"\u0001\u0002","Joined":"2014-03-01 00:00:00"}
{"ID":2,"Name":"Bob","Active":0}
`
	run := &fakeRunner{
		outputs: map[string]string{
			"mdb-ver " + path:                            "JET4\n",
			"mdb-tables -1 " + path:                      "Customers\n",
			"mdb-schema --indexes --no-relations " + path: sampleSchema,
		},
		streams: map[string]string{
			"mdb-json " + path + " Customers": rows,
		},
	}

	db := testDatabase(path, run)
	if err := db.load(); err != nil {
		t.Fatalf("Expected load to succeed, got error: %v", err)
	}

	iterator, err := db.Rows("Customers")
	if err != nil {
		t.Fatalf("Expected row stream to open, got error: %v", err)
	}
	defer iterator.Close()

	if !iterator.Next() {
		t.Fatalf("Expected a first row, got none (err: %v)", iterator.Err())
	}
	first := iterator.Row()
	if len(first) != 7 {
		t.Fatalf("Expected 7 values, got %d", len(first))
	}
	if first[0] != int64(1) {
		t.Errorf("Expected ID 1 as int64, got %v (%T)", first[0], first[0])
	}
	if first[1] != "Ada" {
		t.Errorf("Expected Name Ada, got %v", first[1])
	}
	// Currency keeps the tool's decimal token
	if first[2] != "12.5000" {
		t.Errorf("Expected Balance 12.5000, got %v", first[2])
	}
	if first[3] != true {
		t.Errorf("Expected Active true, got %v", first[3])
	}
	if first[4] != nil {
		t.Errorf("Expected explicit null to be nil, got %v", first[4])
	}
	if blob, ok := first[5].([]byte); !ok || len(blob) != 2 || blob[0] != 0x01 {
		t.Errorf("Expected OLE bytes, got %v (%T)", first[5], first[5])
	}
	if first[6] != "2014-03-01 00:00:00" {
		t.Errorf("Expected Joined timestamp text, got %v", first[6])
	}

	if !iterator.Next() {
		t.Fatalf("Expected a second row, got none (err: %v)", iterator.Err())
	}
	second := iterator.Row()
	// Keys absent from the JSON object are NULLs
	if second[2] != nil || second[4] != nil || second[5] != nil || second[6] != nil {
		t.Errorf("Expected absent keys to be nil, got %v", second)
	}
	if second[3] != false {
		t.Errorf("Expected Active false, got %v", second[3])
	}

	if iterator.Next() {
		t.Error("Expected the stream to end after two rows")
	}
	if err := iterator.Err(); err != nil {
		t.Errorf("Expected a clean end, got error: %v", err)
	}
}

func TestRowsProcessFailure(t *testing.T) {
	path := writeSourceFile(t)

	run := &fakeRunner{
		outputs: map[string]string{
			"mdb-ver " + path:                            "JET4\n",
			"mdb-tables -1 " + path:                      "Customers\n",
			"mdb-schema --indexes --no-relations " + path: sampleSchema,
		},
		streams: map[string]string{
			"mdb-json " + path + " Customers": `{"ID":1}` + "\n",
		},
		waitErrs: map[string]error{
			"mdb-json " + path + " Customers": errors.New("mdb-json: exit status 1"),
		},
	}

	db := testDatabase(path, run)
	if err := db.load(); err != nil {
		t.Fatalf("Expected load to succeed, got error: %v", err)
	}

	iterator, err := db.Rows("Customers")
	if err != nil {
		t.Fatalf("Expected row stream to open, got error: %v", err)
	}
	defer iterator.Close()

	if !iterator.Next() {
		t.Fatalf("Expected the buffered row first, got none (err: %v)", iterator.Err())
	}
	if iterator.Next() {
		t.Error("Expected the stream to end")
	}

	// A failed process exit surfaces as the iterator error
	if err := iterator.Err(); err == nil || !strings.Contains(err.Error(), "exit status 1") {
		t.Errorf("Expected the process failure to surface, got %v", err)
	}
}

func TestRowsBadValue(t *testing.T) {
	path := writeSourceFile(t)

	run := &fakeRunner{
		outputs: map[string]string{
			"mdb-ver " + path:                            "JET4\n",
			"mdb-tables -1 " + path:                      "Customers\n",
			"mdb-schema --indexes --no-relations " + path: sampleSchema,
		},
		streams: map[string]string{
			"mdb-json " + path + " Customers": `{"ID":1,"Active":"maybe"}` + "\n",
		},
	}

	db := testDatabase(path, run)
	if err := db.load(); err != nil {
		t.Fatalf("Expected load to succeed, got error: %v", err)
	}

	iterator, err := db.Rows("Customers")
	if err != nil {
		t.Fatalf("Expected row stream to open, got error: %v", err)
	}
	defer iterator.Close()

	if iterator.Next() {
		t.Error("Expected the bad row to stop the stream")
	}
	err = iterator.Err()
	if err == nil {
		t.Fatal("Expected an error for the bad value, got nil")
	}
	if !strings.Contains(err.Error(), "Active") {
		t.Errorf("Expected the error to name the column, got %q", err.Error())
	}
}

func TestRowsUnknownTable(t *testing.T) {
	path := writeSourceFile(t)

	run := &fakeRunner{
		outputs: map[string]string{
			"mdb-ver " + path:                            "JET4\n",
			"mdb-tables -1 " + path:                      "Customers\n",
			"mdb-schema --indexes --no-relations " + path: sampleSchema,
		},
	}

	db := testDatabase(path, run)
	if err := db.load(); err != nil {
		t.Fatalf("Expected load to succeed, got error: %v", err)
	}

	if _, err := db.Rows("Nope"); err == nil {
		t.Error("Expected rows of an unknown table to fail")
	}
}

func TestCoerceValueIntegerKinds(t *testing.T) {
	column := models.Column{Name: "Qty", Type: models.TypeInt}

	// Numbers and numeric strings both land as int64
	value, err := coerceValue(column, json.Number("7"))
	if err != nil {
		t.Fatalf("Expected number to coerce, got error: %v", err)
	}
	if value != int64(7) {
		t.Errorf("Expected int64 7, got %v (%T)", value, value)
	}

	value, err = coerceValue(column, "8")
	if err != nil {
		t.Fatalf("Expected numeric string to coerce, got error: %v", err)
	}
	if value != int64(8) {
		t.Errorf("Expected int64 8, got %v (%T)", value, value)
	}

	// A fractional number is not an integer value
	if _, err := coerceValue(column, json.Number("1.5")); err == nil {
		t.Error("Expected a fractional integer value to fail")
	}
}

func TestCoerceValueFloatKinds(t *testing.T) {
	column := models.Column{Name: "Weight", Type: models.TypeDouble}

	value, err := coerceValue(column, json.Number("3.25"))
	if err != nil {
		t.Fatalf("Expected number to coerce, got error: %v", err)
	}
	if value != float64(3.25) {
		t.Errorf("Expected 3.25, got %v (%T)", value, value)
	}
}

func TestCoerceValueRejectsMismatches(t *testing.T) {
	_, err := coerceValue(models.Column{Name: "Photo", Type: models.TypeOLE}, json.Number("1"))
	if err == nil {
		t.Error("Expected a numeric blob to fail")
	}
	_, err = coerceValue(models.Column{Name: "Active", Type: models.TypeBoolean}, json.Number("2"))
	if err == nil {
		t.Error("Expected an out-of-range boolean to fail")
	}
}

// Package mdbtools reads MS Access files by shelling out to the mdbtools
// suite (mdb-ver, mdb-tables, mdb-schema, mdb-json). The binaries must be
// on PATH, or in the directory passed to Open.
package mdbtools

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mbrigl/mdb2sqlite/internal/reader"
	"github.com/mbrigl/mdb2sqlite/pkg/models"
)

// runner executes the mdbtools binaries. Tests substitute canned output.
type runner interface {
	Output(name string, args ...string) ([]byte, error)
	Start(name string, args ...string) (io.ReadCloser, func() error, error)
}

// execRunner runs real processes via os/exec.
type execRunner struct{}

func (execRunner) Output(name string, args ...string) ([]byte, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) && len(exit.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(exit.Stderr)))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (execRunner) Start(name string, args ...string) (io.ReadCloser, func() error, error) {
	cmd := exec.Command(name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}

	wait := func() error {
		if err := cmd.Wait(); err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("%s: %w: %s", name, err, msg)
			}
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
	return stdout, wait, nil
}

// Database reads one Access file through the mdbtools suite. The table
// list and schema are loaded once at Open; rows stream on demand.
type Database struct {
	Path   string
	Logger *logrus.Logger

	toolDir string
	run     runner

	tables []string
	schema map[string]*models.Table
}

// Open validates the source file and loads its table list and schema.
// toolDir overrides PATH lookup of the mdbtools binaries when not empty.
func Open(path, toolDir string, logger *logrus.Logger) (*Database, error) {
	db := &Database{
		Path:    path,
		Logger:  logger,
		toolDir: toolDir,
		run:     execRunner{},
	}
	if err := db.load(); err != nil {
		return nil, err
	}
	return db, nil
}

func (d *Database) load() error {
	if _, err := os.Stat(d.Path); err != nil {
		return &reader.OpenError{Path: d.Path, Cause: err}
	}

	// mdb-ver doubles as the format check: it fails on anything that is
	// not a Jet database.
	version, err := d.run.Output(d.tool("mdb-ver"), d.Path)
	if err != nil {
		return &reader.OpenError{Path: d.Path, Cause: err}
	}
	d.Logger.Debugf("Source file format: %s", strings.TrimSpace(string(version)))

	names, err := d.run.Output(d.tool("mdb-tables"), "-1", d.Path)
	if err != nil {
		return &reader.OpenError{Path: d.Path, Cause: err}
	}
	for _, line := range strings.Split(string(names), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			d.tables = append(d.tables, name)
		}
	}
	sort.Strings(d.tables)

	ddl, err := d.run.Output(d.tool("mdb-schema"), "--indexes", "--no-relations", d.Path)
	if err != nil {
		return &reader.OpenError{Path: d.Path, Cause: err}
	}
	schema, err := parseSchema(string(ddl))
	if err != nil {
		return &reader.OpenError{Path: d.Path, Cause: err}
	}
	d.schema = schema

	d.Logger.Infof("Source opened: %d tables", len(d.tables))
	return nil
}

// TableNames returns the user tables in ascending name order
func (d *Database) TableNames() []string {
	return d.tables
}

// Table returns the definition loaded for one table
func (d *Database) Table(name string) (*models.Table, error) {
	table, ok := d.schema[name]
	if !ok {
		return nil, fmt.Errorf("source has no table %s", name)
	}
	return table, nil
}

// Rows starts an mdb-json process for the table and streams its output
func (d *Database) Rows(name string) (reader.RowIterator, error) {
	table, err := d.Table(name)
	if err != nil {
		return nil, err
	}

	stream, wait, err := d.run.Start(d.tool("mdb-json"), d.Path, name)
	if err != nil {
		return nil, fmt.Errorf("reading rows of table %s: %w", name, err)
	}
	d.Logger.Debugf("Streaming rows for table %s", name)
	return newRowIterator(table, stream, wait), nil
}

// Close releases the source. Schema and table list are plain memory and
// row streams hold their own process, so there is nothing to tear down.
func (d *Database) Close() error {
	return nil
}

func (d *Database) tool(name string) string {
	if d.toolDir == "" {
		return name
	}
	return filepath.Join(d.toolDir, name)
}

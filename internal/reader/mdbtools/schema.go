package mdbtools

import (
	"fmt"
	"strings"

	"github.com/mbrigl/mdb2sqlite/pkg/models"
)

// typeNames maps the type names mdb-schema's access backend emits onto
// source type tags. Unknown names pass through verbatim so the failure
// surfaces later with the original name attached.
var typeNames = map[string]models.TypeTag{
	"boolean":          models.TypeBoolean,
	"byte":             models.TypeByte,
	"integer":          models.TypeInt,
	"long integer":     models.TypeLong,
	"currency":         models.TypeMoney,
	"single":           models.TypeFloat,
	"double":           models.TypeDouble,
	"datetime":         models.TypeShortDateTime,
	"datetime (short)": models.TypeShortDateTime,
	"text":             models.TypeText,
	"memo/hyperlink":   models.TypeMemo,
	"binary":           models.TypeBinary,
	"ole":              models.TypeOLE,
	"replication id":   models.TypeGUID,
	"numeric":          models.TypeNumeric,
}

func typeTagFor(name string) models.TypeTag {
	if tag, ok := typeNames[strings.ToLower(name)]; ok {
		return tag
	}
	return models.TypeTag(name)
}

// parseSchema extracts table and index definitions from mdb-schema
// output. CREATE TABLE blocks are read column by column; CREATE INDEX
// and ADD CONSTRAINT ... PRIMARY KEY statements attach to the table they
// name. Comment and blank lines are skipped.
func parseSchema(ddl string) (map[string]*models.Table, error) {
	schema := make(map[string]*models.Table)
	var current *models.Table

	for _, rawLine := range strings.Split(ddl, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		if current != nil {
			if line == "(" {
				continue
			}
			if strings.HasPrefix(line, ")") {
				schema[current.Name] = current
				current = nil
				continue
			}
			column, err := parseColumnLine(line)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", current.Name, err)
			}
			current.Columns = append(current.Columns, column)
			continue
		}

		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "CREATE TABLE"):
			name, _, err := readIdentifier(line[len("CREATE TABLE"):])
			if err != nil {
				return nil, fmt.Errorf("parsing CREATE TABLE: %w", err)
			}
			current = &models.Table{Name: name}
		case strings.HasPrefix(upper, "CREATE INDEX"), strings.HasPrefix(upper, "CREATE UNIQUE INDEX"):
			if err := parseIndexStatement(schema, line); err != nil {
				return nil, err
			}
		case strings.HasPrefix(upper, "ALTER TABLE"):
			if err := parsePrimaryKeyStatement(schema, line); err != nil {
				return nil, err
			}
		}
	}

	if current != nil {
		return nil, fmt.Errorf("unterminated CREATE TABLE %s", current.Name)
	}
	return schema, nil
}

// parseColumnLine reads one "[Name]  Long Integer," body line of a
// CREATE TABLE block. Size suffixes and NOT NULL markers are dropped;
// only the type name matters here.
func parseColumnLine(line string) (models.Column, error) {
	name, rest, err := readIdentifier(line)
	if err != nil {
		return models.Column{}, fmt.Errorf("parsing column line %q: %w", line, err)
	}

	typeText := strings.TrimSuffix(strings.TrimSpace(rest), ",")
	if idx := strings.Index(typeText, "("); idx >= 0 {
		typeText = typeText[:idx]
	}
	typeText = strings.TrimSpace(typeText)
	if upper := strings.ToUpper(typeText); strings.HasSuffix(upper, " NOT NULL") {
		typeText = strings.TrimSpace(typeText[:len(typeText)-len(" NOT NULL")])
	}
	if typeText == "" {
		return models.Column{}, fmt.Errorf("column %s has no type in %q", name, line)
	}
	return models.Column{Name: name, Type: typeTagFor(typeText)}, nil
}

// parseIndexStatement reads one
// "CREATE [UNIQUE] INDEX [name] ON [table] ([c1], [c2]);" line.
func parseIndexStatement(schema map[string]*models.Table, line string) error {
	upper := strings.ToUpper(line)
	unique := strings.HasPrefix(upper, "CREATE UNIQUE")

	rest := line[strings.Index(upper, "INDEX")+len("INDEX"):]
	name, rest, err := readIdentifier(rest)
	if err != nil {
		return fmt.Errorf("parsing CREATE INDEX: %w", err)
	}

	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(strings.ToUpper(rest), "ON") {
		return fmt.Errorf("parsing index %s: missing ON clause", name)
	}
	table, rest, err := readIdentifier(rest[len("ON"):])
	if err != nil {
		return fmt.Errorf("parsing index %s: %w", name, err)
	}

	columns, err := readColumnList(rest)
	if err != nil {
		return fmt.Errorf("parsing index %s: %w", name, err)
	}

	target, ok := schema[table]
	if !ok {
		return fmt.Errorf("index %s references unknown table %s", name, table)
	}
	target.Indexes = append(target.Indexes, models.Index{Name: name, Columns: columns, Unique: unique})
	return nil
}

// parsePrimaryKeyStatement reads one
// "ALTER TABLE [table] ADD CONSTRAINT [name] PRIMARY KEY ([c1]);" line.
// Some mdbtools versions emit primary keys this way instead of as a
// unique index; they land in the same place either way.
func parsePrimaryKeyStatement(schema map[string]*models.Table, line string) error {
	upper := strings.ToUpper(line)
	keyAt := strings.Index(upper, "PRIMARY KEY")
	if keyAt < 0 {
		return nil
	}

	table, _, err := readIdentifier(line[len("ALTER TABLE"):])
	if err != nil {
		return fmt.Errorf("parsing ALTER TABLE: %w", err)
	}

	name := "PrimaryKey"
	if at := strings.Index(upper, "CONSTRAINT"); at >= 0 && at < keyAt {
		name, _, err = readIdentifier(line[at+len("CONSTRAINT"):])
		if err != nil {
			return fmt.Errorf("parsing primary key of table %s: %w", table, err)
		}
	}

	columns, err := readColumnList(line[keyAt+len("PRIMARY KEY"):])
	if err != nil {
		return fmt.Errorf("parsing primary key of table %s: %w", table, err)
	}

	target, ok := schema[table]
	if !ok {
		return fmt.Errorf("primary key %s references unknown table %s", name, table)
	}
	target.Indexes = append(target.Indexes, models.Index{Name: name, Columns: columns, Unique: true})
	return nil
}

// readIdentifier reads one identifier off the front of s, tolerating the
// bracket, double-quote, backquote and bare forms the different
// mdb-schema backends emit. It returns the identifier and the remainder.
func readIdentifier(s string) (string, string, error) {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return "", "", fmt.Errorf("missing identifier")
	}

	switch s[0] {
	case '[':
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return "", "", fmt.Errorf("unterminated [identifier] in %q", s)
		}
		return s[1:end], s[end+1:], nil

	case '"', '`':
		quote := s[0]
		var name strings.Builder
		for i := 1; i < len(s); i++ {
			if s[i] != quote {
				name.WriteByte(s[i])
				continue
			}
			if i+1 < len(s) && s[i+1] == quote {
				name.WriteByte(quote)
				i++
				continue
			}
			return name.String(), s[i+1:], nil
		}
		return "", "", fmt.Errorf("unterminated quoted identifier in %q", s)

	default:
		end := strings.IndexAny(s, " \t,();")
		if end < 0 {
			return s, "", nil
		}
		return s[:end], s[end:], nil
	}
}

// readColumnList reads the "([c1], [c2])" tail of an index statement.
func readColumnList(s string) ([]string, error) {
	open := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return nil, fmt.Errorf("missing column list in %q", s)
	}

	inner := s[open+1 : end]
	var columns []string
	for {
		inner = strings.TrimLeft(inner, " \t,")
		if inner == "" {
			break
		}
		name, rest, err := readIdentifier(inner)
		if err != nil {
			return nil, err
		}
		columns = append(columns, name)
		inner = rest
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("empty column list in %q", s)
	}
	return columns, nil
}

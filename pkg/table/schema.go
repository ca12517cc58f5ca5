package table

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/layersync/pkg/errors"
)

// ColumnType is the scalar type of a column.
type ColumnType string

// Column types.
const (
	TypeString  ColumnType = "string"
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
)

// String returns the type name.
func (t ColumnType) String() string {
	return string(t)
}

// Valid reports whether t is a known column type.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeFloat:
		return true
	}
	return false
}

func (t ColumnType) numeric() bool {
	return t == TypeInteger || t == TypeFloat
}

// ParseColumnType parses a type name. Common aliases are accepted.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str", "text":
		return TypeString, nil
	case "integer", "int", "int64":
		return TypeInteger, nil
	case "float", "double", "float64", "number":
		return TypeFloat, nil
	}
	return "", errors.NewValidationError("type", s, "unknown column type")
}

// Column is a named, typed column.
type Column struct {
	Name string     `yaml:"name" json:"name"`
	Type ColumnType `yaml:"type" json:"type"`
}

// Schema is the fixed column layout shared by every batch in a merge.
type Schema struct {
	Key     string   `yaml:"key" json:"key"`
	Columns []Column `yaml:"columns" json:"columns"`
}

// NewSchema creates a validated schema.
func NewSchema(key string, columns ...Column) (*Schema, error) {
	s := &Schema{Key: key, Columns: columns}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that the schema has at least one column, that column
// names are unique and non-empty, that every type is known and that the key
// names one of the columns.
func (s *Schema) Validate() error {
	if s == nil || len(s.Columns) == 0 {
		return errors.NewValidationError("columns", nil, "schema has no columns")
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for i, c := range s.Columns {
		if c.Name == "" {
			return errors.NewValidationError("columns", i, "column name is empty")
		}
		if _, dup := seen[c.Name]; dup {
			return errors.NewValidationError("columns", c.Name, "duplicate column name")
		}
		seen[c.Name] = struct{}{}
		if !c.Type.Valid() {
			return errors.NewValidationError("type", c.Type, fmt.Sprintf("column %s has unknown type", c.Name))
		}
	}
	if s.Key == "" {
		return errors.NewValidationError("key", s.Key, "key column is required")
	}
	if _, ok := seen[s.Key]; !ok {
		return errors.NewValidationError("key", s.Key, "key column is not in the schema")
	}
	return nil
}

// Index returns the position of the named column, or -1.
func (s *Schema) Index(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// KeyIndex returns the position of the key column.
func (s *Schema) KeyIndex() int {
	return s.Index(s.Key)
}

// KeyType returns the type of the key column.
func (s *Schema) KeyType() ColumnType {
	if i := s.KeyIndex(); i >= 0 {
		return s.Columns[i].Type
	}
	return TypeString
}

// Names returns column names in order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Equal reports whether both schemas have the same key and the same columns
// with the same types in the same order.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Key == other.Key && slices.Equal(s.Columns, other.Columns)
}

// Compatible reports whether both schemas have the same key and the same
// column names in the same order. Column types may differ; see Widen.
func (s *Schema) Compatible(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Key == other.Key && s.SameColumns(other.Names())
}

// Widen returns a schema whose column types hold the values of both s and
// other: equal types are kept, integer and float become float, and any
// other pair becomes string. It returns false when the schemas are not
// Compatible.
func (s *Schema) Widen(other *Schema) (*Schema, bool) {
	if !s.Compatible(other) {
		return nil, false
	}
	if s.Equal(other) {
		return s, true
	}
	cols := make([]Column, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = Column{Name: c.Name, Type: joinTypes(c.Type, other.Columns[i].Type)}
	}
	return &Schema{Key: s.Key, Columns: cols}, true
}

func joinTypes(a, b ColumnType) ColumnType {
	switch {
	case a == b:
		return a
	case a.numeric() && b.numeric():
		return TypeFloat
	default:
		return TypeString
	}
}

// SameColumns reports whether header lists exactly the schema's column
// names in order. Types are not considered.
func (s *Schema) SameColumns(header []string) bool {
	return slices.Equal(s.Names(), header)
}

// LoadSchema reads a YAML schema file:
//
//	key: id
//	columns:
//	  - name: id
//	    type: integer
//	  - name: name
//	    type: string
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied schema path
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, errors.NewParseError("yaml", path, "invalid schema", err)
	}
	return s, nil
}

// ParseSchema decodes and validates a YAML schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	for i, c := range s.Columns {
		t, err := ParseColumnType(string(c.Type))
		if err != nil {
			return nil, err
		}
		s.Columns[i].Type = t
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// YAML encodes the schema in the format LoadSchema reads.
func (s *Schema) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}

package table

import (
	"strconv"
	"strings"

	"github.com/agentstation/layersync/pkg/errors"
)

// InferSchema builds a schema from a header and sample rows. Each column
// gets the narrowest of integer, float and string that parses every
// non-empty cell; a column with no non-empty cells is a string. Rows with
// the wrong number of fields are ignored here and rejected later by
// ParseRecord.
func InferSchema(key string, header []string, rows [][]string) (*Schema, error) {
	if len(header) == 0 {
		return nil, errors.NewValidationError("header", nil, "header row is empty")
	}
	types := make([]ColumnType, len(header))
	seen := make([]bool, len(header))
	for i := range types {
		types[i] = TypeInteger
	}
	for _, row := range rows {
		if len(row) != len(header) {
			continue
		}
		for i, cell := range row {
			if cell == "" || types[i] == TypeString {
				continue
			}
			seen[i] = true
			types[i] = widen(types[i], strings.TrimSpace(cell))
		}
	}
	columns := make([]Column, len(header))
	for i, name := range header {
		t := types[i]
		if !seen[i] {
			t = TypeString
		}
		columns[i] = Column{Name: name, Type: t}
	}
	return NewSchema(key, columns...)
}

// widen returns the narrowest type at least as wide as t that parses cell.
func widen(t ColumnType, cell string) ColumnType {
	if t == TypeInteger {
		if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return TypeInteger
		}
		t = TypeFloat
	}
	if t == TypeFloat {
		if _, err := strconv.ParseFloat(cell, 64); err == nil {
			return TypeFloat
		}
	}
	return TypeString
}

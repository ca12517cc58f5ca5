package csvio

import (
	"path/filepath"
	"strings"

	"github.com/agentstation/layersync/pkg/errors"
)

// OutputName returns the file name the merged batch must be written under.
// The portal only accepts an overwrite whose file name matches the name the
// layer was originally published from, so the name is used verbatim.
func OutputName(publishedName string) (string, error) {
	name := strings.TrimSpace(publishedName)
	switch {
	case name == "":
		return "", errors.NewValidationError("output_name", publishedName, "published file name is empty")
	case strings.ContainsAny(name, `/\`):
		return "", errors.NewValidationError("output_name", publishedName, "published file name contains a path separator")
	case name == "." || name == "..":
		return "", errors.NewValidationError("output_name", publishedName, "published file name is not a file")
	}
	return name, nil
}

// ResolveOutputPath joins dir and the published file name.
func ResolveOutputPath(dir, publishedName string) (string, error) {
	name, err := OutputName(publishedName)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name), nil
}

// ParseDelimiter parses a delimiter setting. Names "comma", "tab",
// "semicolon" and "pipe" and the escape \t are accepted along with any
// single character.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", ",", "comma":
		return ',', nil
	case "\t", `\t`, "tab":
		return '\t', nil
	case ";", "semicolon":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, errors.NewValidationError("delimiter", s, "must be a single character other than quote or newline")
	}
	return r[0], nil
}

// Package lookup checks decoded codes against a list of known products.
package lookup

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/width"
)

// Store answers membership queries for decoded codes.
type Store interface {
	Contains(code string) (bool, error)
	Close() error
}

// Open picks the store type from the file extension: .db and .bolt open a
// BoltStore, anything else is read as a text list.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".bolt":
		return OpenBolt(path)
	default:
		return LoadTextList(path)
	}
}

// Normalize folds full-width characters to ASCII and trims whitespace.
func Normalize(code string) string {
	return strings.TrimSpace(width.Fold.String(code))
}

// scanCodes calls fn for every code line of r. Blank lines and lines
// starting with # are skipped.
func scanCodes(r io.Reader, fn func(code string) error) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		code := Normalize(sc.Text())
		if code == "" || strings.HasPrefix(code, "#") {
			continue
		}
		if err := fn(code); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}

package lookup

import (
	"fmt"
	"io"
	"os"
)

// TextList is an in-memory set read from a newline-delimited file.
type TextList struct {
	codes map[string]struct{}
}

// ReadTextList parses a list from r.
func ReadTextList(r io.Reader) (*TextList, error) {
	l := &TextList{codes: make(map[string]struct{})}
	err := scanCodes(r, func(code string) error {
		l.codes[code] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// LoadTextList reads the list stored at path.
func LoadTextList(path string) (*TextList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lookup list: %w", err)
	}
	defer func() { _ = f.Close() }()
	l, err := ReadTextList(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return l, nil
}

func (l *TextList) Contains(code string) (bool, error) {
	_, ok := l.codes[Normalize(code)]
	return ok, nil
}

// Len returns the number of distinct codes.
func (l *TextList) Len() int { return len(l.codes) }

func (l *TextList) Close() error { return nil }

package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ToJSON serializes a single Result to pretty JSON.
func ToJSON(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONResults serializes multiple results to pretty JSON.
func ToJSONResults(results []*Result) (string, error) {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToText renders the code with a short status line.
func ToText(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var sb strings.Builder
	sb.WriteString(res.Code)
	switch {
	case res.LookupError != "":
		sb.WriteString(" (lookup failed)")
	case res.Known != nil && *res.Known:
		sb.WriteString(" (known)")
	case res.Known != nil:
		sb.WriteString(" (unknown)")
	}
	mode := "autonomous"
	if res.Manual {
		mode = "manual"
	}
	fmt.Fprintf(&sb, "\n%s, %d attempt(s), ray %s", mode, len(res.Attempts), res.Ray)
	return sb.String(), nil
}

var csvHeader = []string{"source", "code", "known", "attempts", "x1", "y1", "x2", "y2"}

// ToCSV renders one row per result with a header.
func ToCSV(results []*Result) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		known := ""
		if r.Known != nil {
			known = strconv.FormatBool(*r.Known)
		}
		row := []string{
			r.Source,
			r.Code,
			known,
			strconv.Itoa(len(r.Attempts)),
			fmt.Sprintf("%.1f", r.Ray.P1.X),
			fmt.Sprintf("%.1f", r.Ray.P1.Y),
			fmt.Sprintf("%.1f", r.Ray.P2.X),
			fmt.Sprintf("%.1f", r.Ray.P2.Y),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

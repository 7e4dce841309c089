package batch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// formatBatchResults formats items based on the specified format.
func formatBatchResults(items []Item, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		return formatJSON(items)
	case "csv":
		return formatCSV(items)
	case "text", "":
		return formatText(items), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

type jsonItem struct {
	Item
	Error string `json:"error,omitempty"`
}

func formatJSON(items []Item) (string, error) {
	out := make([]jsonItem, len(items))
	for i, it := range items {
		out[i] = jsonItem{Item: it}
		if it.Err != nil {
			out[i].Error = it.Err.Error()
		}
	}
	b, err := json.MarshalIndent(map[string]interface{}{"images": out}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func formatCSV(items []Item) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"file", "page", "code", "known", "attempts", "error"}); err != nil {
		return "", err
	}
	for _, it := range items {
		row := []string{it.Path, "", "", "", "", ""}
		if it.Page > 0 {
			row[1] = strconv.Itoa(it.Page)
		}
		if it.Result != nil {
			row[2] = it.Result.Code
			if it.Result.Known != nil {
				row[3] = strconv.FormatBool(*it.Result.Known)
			}
			row[4] = strconv.Itoa(len(it.Result.Attempts))
		}
		if it.Err != nil {
			row[5] = it.Err.Error()
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func formatText(items []Item) string {
	var sb strings.Builder
	for _, it := range items {
		name := it.Path
		if it.Page > 0 {
			name += "#" + strconv.Itoa(it.Page)
		}
		switch {
		case it.Err != nil:
			fmt.Fprintf(&sb, "%s: error: %v\n", name, it.Err)
		case it.Result != nil:
			code := it.Result.Code
			if it.Result.Known != nil && !*it.Result.Known {
				code += " (unknown)"
			}
			fmt.Fprintf(&sb, "%s: %s\n", name, code)
		}
	}
	return sb.String()
}

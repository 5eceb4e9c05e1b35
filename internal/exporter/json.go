// Package exporter renders inventories and summaries as JSON, Prometheus
// metrics or human readable tables.
package exporter

import (
	"io"

	"github.com/goccy/go-json"
)

// WriteJSON encodes v to w followed by a newline. Pretty output is indented
// with two spaces.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

package report

import (
	"encoding/json"
	"io"

	"lockeye/internal/reference"
)

// Status of one checked occurrence.
type Status string

const (
	StatusSynced    Status = "synced"
	StatusDrift     Status = "drift"
	StatusMalformed Status = "malformed"
)

// Entry is the machine-readable form of one occurrence.
type Entry struct {
	File   string            `json:"file"`
	Line   int               `json:"line"`
	Status Status            `json:"status"`
	Index  *int              `json:"divergence_index,omitempty"`
	Record *reference.Record `json:"record,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// Document is the JSON report of a whole run.
type Document struct {
	Checked   int     `json:"checked"`
	Drifted   int     `json:"drifted"`
	Malformed int     `json:"malformed"`
	Entries   []Entry `json:"entries"`
}

// WriteJSON writes doc to w as indented JSON followed by a newline.
func WriteJSON(w io.Writer, doc Document) error {
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

package checker

import (
	"time"

	"lockeye/internal/reference"
	"lockeye/internal/report"
	"lockeye/internal/search"
)

// Result is the outcome for one occurrence.
type Result struct {
	Hit    search.Hit
	Record *reference.Record // nil when the occurrence is malformed
	Synced bool
	Index  int    // first divergent block line, -1 if synced or malformed
	Report string // rendered text, empty when synced
	Err    error  // why the occurrence is malformed
}

// Malformed reports whether the directive or its block could not be read.
func (r Result) Malformed() bool { return r.Err != nil }

// Failed reports whether the occurrence counts against the run.
func (r Result) Failed() bool { return r.Malformed() || !r.Synced }

// Summary holds the results of one run, in search order.
type Summary struct {
	Results []Result
	Elapsed time.Duration
}

// Failed reports whether any occurrence drifted or was malformed.
func (s *Summary) Failed() bool {
	for _, r := range s.Results {
		if r.Failed() {
			return true
		}
	}
	return false
}

// Failures returns the failed results in order.
func (s *Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// Counts returns the number of occurrences checked, drifted and malformed.
func (s *Summary) Counts() (checked, drifted, malformed int) {
	for _, r := range s.Results {
		switch {
		case r.Malformed():
			malformed++
		case !r.Synced:
			drifted++
		}
	}
	return len(s.Results), drifted, malformed
}

// Document converts the summary to its JSON report form.
func (s *Summary) Document() report.Document {
	checked, drifted, malformed := s.Counts()
	doc := report.Document{
		Checked:   checked,
		Drifted:   drifted,
		Malformed: malformed,
		Entries:   make([]report.Entry, 0, len(s.Results)),
	}
	for _, r := range s.Results {
		e := report.Entry{File: r.Hit.File, Line: r.Hit.Line, Record: r.Record}
		switch {
		case r.Malformed():
			e.Status = report.StatusMalformed
			e.Error = r.Err.Error()
		case !r.Synced:
			e.Status = report.StatusDrift
			idx := r.Index
			e.Index = &idx
		default:
			e.Status = report.StatusSynced
		}
		doc.Entries = append(doc.Entries, e)
	}
	return doc
}

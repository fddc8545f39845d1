package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lockeye/internal/reference"
)

func sample() reference.Record {
	return reference.Record{
		RefFile:  "docs/a.rst",
		RefLine:  3,
		RefCode:  []string{"foo\n", "bar\n", "baz\n"},
		OrigFile: "src/a.py",
		OrigLine: 3,
		OrigCode: []string{"foo\n", "baz\n", "baz\n"},
		Size:     3,
	}
}

func TestDrift_Plain(t *testing.T) {
	r := NewTextRenderer(io.Discard, Options{})

	got := r.Drift(sample(), 1)

	want := `*** "docs/a.rst" +3
--- "src/a.py" +3
***************
*** 3,6 ***
foo
> bar
baz
--- 3,6 ---
foo
baz
baz
`
	assert.Equal(t, want, got)
}

func TestDrift_MarksOnlyFirstDivergence(t *testing.T) {
	rec := sample()
	rec.OrigCode = []string{"x\n", "y\n", "z\n"}

	got := NewTextRenderer(io.Discard, Options{}).Drift(rec, 0)

	assert.Equal(t, 1, strings.Count(got, Marker))
	assert.Contains(t, got, "> foo\n")
}

func TestDrift_EmptySource(t *testing.T) {
	rec := sample()
	rec.OrigFile = "src/gone.py"
	rec.OrigCode = []string{}

	got := NewTextRenderer(io.Discard, Options{}).Drift(rec, 0)

	assert.True(t, strings.HasSuffix(got, "--- 3,6 ---\n"), "source side should be empty:\n%s", got)
}

func TestDrift_AddsMissingNewline(t *testing.T) {
	rec := sample()
	rec.OrigCode = []string{"foo\n", "baz"}

	got := NewTextRenderer(io.Discard, Options{}).Drift(rec, 1)

	assert.True(t, strings.HasSuffix(got, "foo\nbaz\n"))
}

func TestDrift_KeepsRecord(t *testing.T) {
	rec := sample()
	NewTextRenderer(io.Discard, Options{}).Drift(rec, 1)

	assert.Equal(t, "bar\n", rec.RefCode[1])
}

func TestDrift_Explain(t *testing.T) {
	r := NewTextRenderer(io.Discard, Options{Explain: true})

	got := r.Drift(sample(), 1)

	assert.Contains(t, got, "~~~ line 5, column 3\n")
	assert.Contains(t, got, "- ba[-r-]\n")
	assert.Contains(t, got, "+ ba{+z+}\n")
}

func TestDrift_ExplainShortSource(t *testing.T) {
	rec := sample()
	rec.OrigCode = rec.OrigCode[:1]

	got := NewTextRenderer(io.Discard, Options{Explain: true}).Drift(rec, 1)

	assert.Contains(t, got, "source ends before line 4")
}

func TestDrift_ExplainMissingNewline(t *testing.T) {
	rec := sample()
	rec.OrigCode[1] = "bar"

	got := NewTextRenderer(io.Discard, Options{Explain: true}).Drift(rec, 1)

	assert.Contains(t, got, "source line has no trailing newline")
}

func TestDrift_Color(t *testing.T) {
	r := NewTextRenderer(io.Discard, Options{Color: true})

	got := r.Drift(sample(), 1)

	assert.Contains(t, got, "\x1b[")
	assert.Contains(t, got, Marker+"bar")
	assert.Contains(t, got, "***************\n")
	assert.NotContains(t, got, "  \n", "styled lines must not be padded")
}

func TestDrift_ColorExplainHint(t *testing.T) {
	r := NewTextRenderer(io.Discard, Options{Color: true, Explain: true})

	got := r.Drift(sample(), 1)

	assert.Contains(t, got, "\x1b[33m~~~")
}

func TestMalformed(t *testing.T) {
	got := NewTextRenderer(io.Discard, Options{}).Malformed("docs/a.rst", 7, errors.New("no directive header found"))

	assert.Equal(t, "*** \"docs/a.rst\" +7\n!!! no directive header found\n", got)
}

func TestColorEnabled(t *testing.T) {
	assert.True(t, ColorEnabled("always", nil))
	assert.False(t, ColorEnabled("never", nil))
	assert.False(t, ColorEnabled("auto", nil))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	idx := 1
	rec := sample()

	err := WriteJSON(&buf, Document{
		Checked: 2,
		Drifted: 1,
		Entries: []Entry{
			{File: "docs/a.rst", Line: 3, Status: StatusDrift, Index: &idx, Record: &rec},
			{File: "docs/b.rst", Line: 9, Status: StatusSynced},
		},
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.EqualValues(t, 2, decoded["checked"])

	entries := decoded["entries"].([]any)
	require.Len(t, entries, 2)
	first := entries[0].(map[string]any)
	assert.Equal(t, "drift", first["status"])
	assert.EqualValues(t, 1, first["divergence_index"])
	assert.Equal(t, "src/a.py", first["record"].(map[string]any)["orig_file"])

	second := entries[1].(map[string]any)
	assert.NotContains(t, second, "record")
	assert.NotContains(t, second, "divergence_index")
}

func TestWriteJSON_EmptyEntries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Document{}))
	assert.Contains(t, buf.String(), `"entries": []`)
}

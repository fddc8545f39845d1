package search

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"README.md":                 "lockeye: src/a.py +1\n",
		"docs/index.rst":            "intro\n.. lockeye: src/a.py +3\nfoo\n.. lockeye-stop\n",
		"docs/api/calls.rst":        "\n\n  .. lockeye: src/b.py +1\r\n  x\r\n  .. lockeye-stop\r\n",
		"docs/plain.rst":            "no directives here\n",
		"node_modules/pkg/doc.rst":  ".. lockeye: x +1\n",
		".git/info.rst":             ".. lockeye: x +1\n",
		"src/a.py":                  "# lockeye: not a doc +1\n",
		"docs/build/gen/output.rst": ".. lockeye: gen.py +1\n",
	})
	return root
}

func query(root string) Query {
	return Query{
		Root:     root,
		Patterns: []string{"*.rst"},
		Exclude:  DefaultExclude(),
		Needle:   "lockeye:",
		Reject:   "lockeye-stop",
	}
}

func TestWalker_Search(t *testing.T) {
	root := fixture(t)
	q := query(root)
	q.Exclude = append(q.Exclude, "docs/build")

	hits, err := NewWalker(zap.NewNop()).Search(context.Background(), q)
	require.NoError(t, err)

	want := []Hit{
		{File: filepath.Join(root, "docs", "api", "calls.rst"), Line: 3, Content: "  .. lockeye: src/b.py +1"},
		{File: filepath.Join(root, "docs", "index.rst"), Line: 2, Content: ".. lockeye: src/a.py +3"},
	}
	if diff := cmp.Diff(want, hits); diff != "" {
		t.Fatalf("hits mismatch (-want +got):\n%s", diff)
	}
}

func TestWalker_DefaultExcludeKeepsVendoredDocs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"vendor/docs/a.rst":  ".. lockeye: src/a.py +1\n",
		"_build/html/b.rst":  ".. lockeye: src/a.py +1\n",
		".venv/lib/c.rst":    ".. lockeye: src/a.py +1\n",
		"node_modules/d.rst": ".. lockeye: src/a.py +1\n",
	})
	core, logs := observer.New(zapcore.DebugLevel)

	hits, err := NewWalker(zap.New(core)).Search(context.Background(), query(root))
	require.NoError(t, err)

	files := make([]string, 0, len(hits))
	for _, h := range hits {
		files = append(files, h.File)
	}
	assert.ElementsMatch(t, []string{
		filepath.Join(root, ".venv", "lib", "c.rst"),
		filepath.Join(root, "_build", "html", "b.rst"),
		filepath.Join(root, "vendor", "docs", "a.rst"),
	}, files)

	skipped := logs.FilterMessage("skipping excluded directory").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "node_modules", skipped[0].ContextMap()["dir"])
}

func TestWalker_DoubleStarPattern(t *testing.T) {
	root := fixture(t)
	q := query(root)
	q.Patterns = []string{"docs/api/**/*.rst", "*.md"}

	hits, err := NewWalker(nil).Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, filepath.Join(root, "README.md"), hits[0].File)
	assert.Equal(t, filepath.Join(root, "docs", "api", "calls.rst"), hits[1].File)
}

func TestWalker_Paths(t *testing.T) {
	root := fixture(t)
	q := query(root)
	q.Paths = []string{"docs/index.rst", "docs", "src/a.py"}
	q.Exclude = append(q.Exclude, "docs/build")

	hits, err := NewWalker(nil).Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, hits, 2, "index.rst is read once and a.py does not match the patterns")
	assert.Equal(t, filepath.Join(root, "docs", "index.rst"), hits[0].File)
	assert.Equal(t, filepath.Join(root, "docs", "api", "calls.rst"), hits[1].File)
}

func TestWalker_MissingPath(t *testing.T) {
	q := query(t.TempDir())
	q.Paths = []string{"nope"}
	_, err := NewWalker(nil).Search(context.Background(), q)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWalker_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewWalker(nil).Search(ctx, query(fixture(t)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQuery_Accept(t *testing.T) {
	q := Query{Needle: "ref:", Reject: "ref-stop"}
	assert.True(t, q.Accept(".. ref: a.go +1"))
	assert.False(t, q.Accept(".. ref-stop"))
	assert.False(t, q.Accept("ref: a +1 then ref-stop"))
	assert.False(t, q.Accept("reference"))
}

func TestQuery_MatchFileAndExcluded(t *testing.T) {
	q := Query{
		Patterns: []string{"*.rst", "guide/**/*.md"},
		Exclude:  []string{"node_modules", "docs/_build/", "*.tmp.rst"},
	}

	assert.True(t, q.MatchFile("a.rst"))
	assert.True(t, q.MatchFile("deep/down/a.rst"))
	assert.True(t, q.MatchFile("guide/x/y.md"))
	assert.False(t, q.MatchFile("other/y.md"))
	assert.False(t, q.MatchFile("docs.rst/readme.txt"))

	assert.True(t, q.Excluded("node_modules"))
	assert.True(t, q.Excluded("web/node_modules/pkg/a.rst"))
	assert.True(t, q.Excluded("docs/_build"))
	assert.True(t, q.Excluded("docs/_build/html/a.rst"))
	assert.True(t, q.Excluded("x/notes.tmp.rst"))
	assert.False(t, q.Excluded("docs/a.rst"))
}

func TestValidatePatterns(t *testing.T) {
	assert.NoError(t, ValidatePatterns([]string{"*.rst", "docs/**/*.md", "{a,b}.txt"}))
	assert.Error(t, ValidatePatterns([]string{"[unclosed"}))
	assert.Error(t, ValidatePatterns([]string{" "}))
}

func TestParseGrepOutput(t *testing.T) {
	out := "docs/a.rst\x0012:.. lockeye: src/x.py +4\n" +
		"docs/b:c.rst\x003:  lockeye: y.py +1 : with colon\r\n" +
		"\n"

	hits, err := ParseGrepOutput([]byte(out))
	require.NoError(t, err)
	want := []Hit{
		{File: "docs/a.rst", Line: 12, Content: ".. lockeye: src/x.py +4"},
		{File: "docs/b:c.rst", Line: 3, Content: "  lockeye: y.py +1 : with colon"},
	}
	if diff := cmp.Diff(want, hits); diff != "" {
		t.Fatalf("hits mismatch (-want +got):\n%s", diff)
	}

	_, err = ParseGrepOutput([]byte("no separators here\n"))
	assert.Error(t, err)
	_, err = ParseGrepOutput([]byte("f\x00x:content\n"))
	assert.Error(t, err)
}

func TestGrep_AgreesWithWalker(t *testing.T) {
	if _, err := exec.LookPath("grep"); err != nil {
		t.Skip("grep not available")
	}
	root := fixture(t)
	q := query(root)
	q.Exclude = append(q.Exclude, "docs/build")

	walked, err := NewWalker(nil).Search(context.Background(), q)
	require.NoError(t, err)
	grepped, err := NewGrep(zap.NewNop()).Search(context.Background(), q)
	require.NoError(t, err)

	if diff := cmp.Diff(walked, grepped); diff != "" {
		t.Fatalf("grep and walker disagree (-walk +grep):\n%s", diff)
	}
}

func TestGrep_NoMatches(t *testing.T) {
	if _, err := exec.LookPath("grep"); err != nil {
		t.Skip("grep not available")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.rst": "nothing\n"})

	hits, err := NewGrep(nil).Search(context.Background(), query(root))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestGrep_MissingBinary(t *testing.T) {
	g := NewGrep(nil)
	g.Binary = filepath.Join(t.TempDir(), "no-such-grep")
	_, err := g.Search(context.Background(), query(t.TempDir()))
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	s, err := New(KindWalk, nil)
	require.NoError(t, err)
	assert.IsType(t, &Walker{}, s)

	s, err = New(KindGrep, nil)
	require.NoError(t, err)
	assert.IsType(t, &Grep{}, s)

	_, err = New("ripgrep", nil)
	assert.Error(t, err)

	for _, kind := range Kinds {
		_, err := New(kind, nil)
		assert.NoError(t, err, "kind %s", kind)
	}
}

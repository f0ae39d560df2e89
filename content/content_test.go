package content

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestSplit(t *testing.T) {
	fm, body, err := Split([]byte("---\ntitle: Hello\ntags: [go, web]\nquick: true\n---\n# Body\n"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", fm.Title)
	assert.Equal(t, []string{"go", "web"}, fm.Tags)
	assert.True(t, fm.Quick)
	assert.Equal(t, "# Body\n", string(body))
}

func TestSplitWithoutFrontmatter(t *testing.T) {
	fm, body, err := Split([]byte("just text"))
	require.NoError(t, err)
	assert.Empty(t, fm.Title)
	assert.Equal(t, "just text", string(body))
}

func TestSplitCRLF(t *testing.T) {
	fm, body, err := Split([]byte("---\r\ntitle: Windows\r\n---\r\nbody"))
	require.NoError(t, err)
	assert.Equal(t, "Windows", fm.Title)
	assert.Equal(t, "body", string(body))
}

func TestSplitUnterminated(t *testing.T) {
	_, _, err := Split([]byte("---\ntitle: x\nno end"))
	assert.Error(t, err)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"2020-05-01", "2020-05-01", false},
		{"2020-05-01T10:00:00Z", "2020-05-01", false},
		{"2020-05-01 10:00:00", "2020-05-01", false},
		{"", "", false},
		{"May 1st", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeDate(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestSlugFromPath(t *testing.T) {
	root := filepath.FromSlash("/content")
	assert.Equal(t, "hello-world", SlugFromPath(root, filepath.FromSlash("/content/blog/hello-world/index.md")))
	assert.Equal(t, "hello-world", SlugFromPath(root, filepath.FromSlash("/content/blog/Hello World.md")))
	assert.Equal(t, "vue-3", SlugFromPath(root, filepath.FromSlash("/content/vue-3.md")))
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "blog", "older", "index.md"),
		"---\ntitle: Older\ndate: 2019-01-01\ntags: [React, javascript, react]\ncover: cover.png\n---\nOlder body text.\n")
	writeFile(t, filepath.Join(dir, "blog", "newer.md"),
		"---\ntitle: Newer\ndate: 2020-06-01\ndescription: Hand written.\n---\nNewer body.\n")
	writeFile(t, filepath.Join(dir, "blog", "broken.md"), "---\ndate: 2020-01-01\n---\nno title\n")
	writeFile(t, filepath.Join(dir, "blog", "notes.txt"), "ignored")

	entries, problems, err := Loader{Dir: dir}.Load()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Len(t, problems, 1)
	assert.True(t, errors.Is(problems[0], ErrNoTitle))

	assert.Equal(t, "newer", entries[0].Slug)
	assert.Equal(t, "Hand written.", entries[0].Excerpt)

	older := entries[1]
	assert.Equal(t, "older", older.Slug)
	assert.Equal(t, []string{"react", "javascript"}, older.Tags)
	assert.Equal(t, "Older body text.", older.Excerpt)
	assert.Equal(t, filepath.Join(dir, "blog", "older", "cover.png"), older.CoverPath)
}

func TestLoaderDuplicateSlug(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "same.md"), "---\ntitle: A\n---\n")
	writeFile(t, filepath.Join(dir, "b", "same.md"), "---\ntitle: B\n---\n")

	entries, problems, err := Loader{Dir: dir}.Load()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Len(t, problems, 1)
}

func TestLoaderMissingDir(t *testing.T) {
	entries, problems, err := Loader{Dir: filepath.Join(t.TempDir(), "nope")}.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, problems)
}

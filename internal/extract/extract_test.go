package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSplitFrontmatter(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantCategory string
		wantTags     []string
		wantBody     string
	}{
		{
			name:         "flow sequence tags",
			content:      "---\ncategory: finance\ntags: [trading, research]\n---\n# Title\n",
			wantCategory: "finance",
			wantTags:     []string{"trading", "research"},
			wantBody:     "# Title\n",
		},
		{
			name:     "block sequence tags",
			content:  "---\ntags:\n  - health\n  - BP\n---\nbody",
			wantTags: []string{"health", "BP"},
			wantBody: "body",
		},
		{
			name:     "scalar tag",
			content:  "---\ntags: diy\n---\n",
			wantTags: []string{"diy"},
			wantBody: "",
		},
		{
			name:     "no frontmatter",
			content:  "just text",
			wantBody: "just text",
		},
		{
			name:     "unterminated block",
			content:  "---\ncategory: work\nno closing",
			wantBody: "---\ncategory: work\nno closing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body := SplitFrontmatter(tt.content)
			assert.Equal(t, tt.wantCategory, fm.Category)
			assert.Equal(t, tt.wantTags, []string(fm.Tags))
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("  short \n", 10))
	assert.Equal(t, "abcde...", Preview("abcdefghij", 5))
	assert.Equal(t, "héllo...", Preview("héllo wörld", 5))
}

func TestExtractor_Note(t *testing.T) {
	vault := t.TempDir()
	body := strings.Repeat("x", 50)
	path := writeFile(t, vault, "00 - Inbox/idea.md",
		"---\ntitle: Idea\ncategory: projects\ntags: [hobby]\n---\n"+body)

	facts, err := New(WithPreviewChars(10)).Note(path, vault)
	require.NoError(t, err)

	require.NotNil(t, facts.Note)
	assert.Equal(t, "idea.md", facts.Name)
	assert.Equal(t, ".md", facts.Ext)
	assert.Equal(t, "00 - Inbox", facts.Note.Folder)
	assert.Equal(t, "Idea", facts.Note.Title)
	assert.Equal(t, "projects", facts.Note.Category)
	assert.Equal(t, []string{"hobby"}, facts.Note.Tags)
	assert.Equal(t, strings.Repeat("x", 10)+"...", facts.Note.Preview)
}

func TestExtractor_File(t *testing.T) {
	dir := t.TempDir()

	t.Run("plain file has no metadata", func(t *testing.T) {
		path := writeFile(t, dir, "notes.txt", "hello")
		facts, err := New().File(path)
		require.NoError(t, err)
		assert.Equal(t, int64(5), facts.Size)
		assert.Nil(t, facts.Document)
	})

	t.Run("corrupt pdf degrades to no metadata", func(t *testing.T) {
		path := writeFile(t, dir, "broken.pdf", "%PDF-1.4 not really a pdf")
		facts, err := New().File(path)
		require.NoError(t, err)
		assert.Equal(t, ".pdf", facts.Ext)
		assert.Nil(t, facts.Document)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := New().File(filepath.Join(dir, "gone.pdf"))
		require.Error(t, err)
	})
}

func TestPDFDate(t *testing.T) {
	assert.Equal(t, "2024-01-15", pdfDate("D:20240115093000Z"))
	assert.Equal(t, "2023-06-01", pdfDate("20230601"))
	assert.Equal(t, "", pdfDate("D:2024"))
	assert.Equal(t, "", pdfDate("yesterday"))
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// Facts is the cheap signal extracted from one candidate item.
type Facts struct {
	ModTime  time.Time
	Document *DocumentMeta
	Note     *NoteMeta
	Path     string
	Name     string
	Ext      string
	Size     int64
}

// DocumentMeta is shallow metadata read from a document's header.
type DocumentMeta struct {
	Title         string
	Author        string
	Subject       string
	Creator       string
	CreationDate  string
	FirstPageText string
	PageCount     int
}

// IsEmpty reports whether no field was populated.
func (m *DocumentMeta) IsEmpty() bool {
	return m == nil || (m.Title == "" && m.Author == "" && m.Subject == "" &&
		m.Creator == "" && m.CreationDate == "" && m.FirstPageText == "" && m.PageCount == 0)
}

// NoteMeta is the frontmatter and a bounded content preview of a note.
type NoteMeta struct {
	Title    string
	Category string
	Folder   string
	Preview  string
	Tags     []string
}

// SizeMB returns the item size in megabytes.
func (f Facts) SizeMB() float64 {
	return float64(f.Size) / (1024 * 1024)
}

// MetadataBlock renders the optional metadata for a prompt. It returns ""
// when nothing was extracted.
func (f Facts) MetadataBlock() string {
	var b strings.Builder
	if m := f.Document; !m.IsEmpty() {
		writeField(&b, "Title", m.Title)
		writeField(&b, "Author", m.Author)
		writeField(&b, "Subject", m.Subject)
		writeField(&b, "Creator", m.Creator)
		writeField(&b, "Created", m.CreationDate)
		if m.PageCount > 0 {
			writeField(&b, "Pages", fmt.Sprint(m.PageCount))
		}
		writeField(&b, "First page", m.FirstPageText)
	}
	if n := f.Note; n != nil {
		writeField(&b, "Title", n.Title)
		writeField(&b, "Folder", n.Folder)
		writeField(&b, "Category", n.Category)
		if len(n.Tags) > 0 {
			writeField(&b, "Tags", strings.Join(n.Tags, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

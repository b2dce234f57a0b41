package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/Veraticus/sift/internal/model"
)

// readPDF reads the document info dictionary and a prefix of the first
// page. The pdf package panics on some malformed inputs, so panics are
// converted into errors.
func readPDF(path string, textLimit int) (meta *model.DocumentMeta, err error) {
	defer func() {
		if r := recover(); r != nil {
			meta = nil
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	info := r.Trailer().Key("Info")
	meta = &model.DocumentMeta{
		Title:        cleanText(info.Key("Title").Text()),
		Author:       cleanText(info.Key("Author").Text()),
		Subject:      cleanText(info.Key("Subject").Text()),
		Creator:      cleanText(info.Key("Creator").Text()),
		CreationDate: pdfDate(info.Key("CreationDate").Text()),
		PageCount:    r.NumPage(),
	}

	if meta.PageCount > 0 {
		page := r.Page(1)
		if !page.V.IsNull() {
			if text, textErr := page.GetPlainText(nil); textErr == nil {
				meta.FirstPageText = truncateRunes(cleanText(text), textLimit)
			}
		}
	}

	return meta, nil
}

// pdfDate converts "D:20240115093000Z" into "2024-01-15".
func pdfDate(raw string) string {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "D:")
	if len(s) < 8 {
		return ""
	}
	for _, c := range s[:8] {
		if c < '0' || c > '9' {
			return ""
		}
	}
	return s[0:4] + "-" + s[4:6] + "-" + s[6:8]
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

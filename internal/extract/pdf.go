package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ledongthuc/pdf"
)

// pdfText returns the text of every page, one line per text row. Pages
// that cannot be laid out by rows fall back to the plain text stream.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		// ledongthuc/pdf panics on some malformed inputs.
		if rec := recover(); rec != nil {
			text, err = "", errors.Newf("pdf parser panic: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var b strings.Builder
		for _, row := range rows {
			line := joinRow(row.Content)
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			pages = append(pages, s)
		}
	}
	if len(pages) > 0 {
		return strings.Join(pages, "\n\n"), nil
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read plain text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// joinRow concatenates glyph runs, inserting a space where the gap between
// runs is wider than a fraction of the font size.
func joinRow(words pdf.TextHorizontal) string {
	var b strings.Builder
	var prevEnd float64
	for i, w := range words {
		if i > 0 && w.X-prevEnd > w.FontSize*0.15 {
			b.WriteByte(' ')
		}
		b.WriteString(w.S)
		prevEnd = w.X + w.W
	}
	return strings.TrimSpace(b.String())
}

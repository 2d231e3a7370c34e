// Package render converts stored item content into HTML for preview.
package render

import (
	"bytes"

	"github.com/yuin/goldmark"

	apperrors "github.com/kimhsiao/infovault/backend/internal/errors"
)

var markdown = goldmark.New()

// MarkdownToHTML renders markdown source to HTML.
func MarkdownToHTML(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(source, &buf); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrParseFailed, "failed to render markdown", err)
	}
	return buf.Bytes(), nil
}

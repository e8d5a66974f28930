package fetch

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"go.uber.org/zap"
)

// transcriptionLimit caps the bytes of a binary document sent for transcription.
const transcriptionLimit = 10000

var (
	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br\s*/>|<w:tab\s*/>`)
	xmlTag       = regexp.MustCompile(`<[^>]*>`)
	blankLines   = regexp.MustCompile(`\n\s*\n+`)
)

// Extract returns the plain text of doc. Empty text is an error.
func (f *Fetcher) Extract(ctx context.Context, doc *Document) (string, error) {
	var (
		text string
		err  error
	)

	switch doc.MimeType {
	case MimePDF:
		text, err = extractPDF(doc.Data)
	case MimeDOCX:
		text, err = extractDOCX(doc.Data)
		if err == nil && text == "" {
			f.logger.Debug("docx has no text runs, falling back to transcription", zap.String("reference", doc.Reference))
			text, err = f.transcribe(ctx, doc)
		}
	case MimeDOC:
		text, err = f.transcribe(ctx, doc)
	default:
		return "", newError(KindUnsupportedType, doc.Reference, fmt.Sprintf("content type %q is not accepted", doc.MimeType), nil)
	}
	if err != nil {
		return "", asExtractionError(doc.Reference, "extract text", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", genericError(doc.Reference, "no text could be extracted", nil)
	}

	return text, nil
}

func extractPDF(data []byte) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		builder.WriteString(pageText)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return stripXML(doc.Editable().GetContent()), nil
}

// stripXML turns WordprocessingML into text, one paragraph per line.
func stripXML(content string) string {
	content = paragraphEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = blankLines.ReplaceAllString(content, "\n")
	return strings.TrimSpace(content)
}

func (f *Fetcher) transcribe(ctx context.Context, doc *Document) (string, error) {
	if f.transcriber == nil {
		return "", genericError(doc.Reference, fmt.Sprintf("no extractor for %s and transcription is not configured", doc.MimeType), nil)
	}

	prefix := printablePrefix(doc.Data, transcriptionLimit)
	if prefix == "" {
		return "", genericError(doc.Reference, "document has no readable content", nil)
	}

	text, err := f.transcriber.Transcribe(ctx, prefix)
	if err != nil {
		return "", genericError(doc.Reference, "transcription failed", err)
	}
	return text, nil
}

// printablePrefix decodes the first limit bytes, dropping invalid UTF-8 and control characters.
func printablePrefix(data []byte, limit int) string {
	if len(data) > limit {
		data = data[:limit]
	}

	decoded := strings.ToValidUTF8(string(data), "")
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, decoded))
}

// Package extract converts uploaded files into plain text for indexing.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat means the file extension is not one we can ingest.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtraction means the bytes could not be decoded as the declared format.
	ErrExtraction = errors.New("text extraction failed")
)

// Format identifies how a document's bytes should be decoded.
type Format int

const (
	FormatUnknown Format = iota
	FormatPDF
	FormatPlainText
	FormatMarkdown
	FormatHTML
	FormatDOCX
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatPlainText:
		return "text"
	case FormatMarkdown:
		return "markdown"
	case FormatHTML:
		return "html"
	case FormatDOCX:
		return "docx"
	default:
		return "unknown"
	}
}

// Classify maps a filename to a Format by extension.
func Classify(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, nil
	case ".txt", ".text", ".log":
		return FormatPlainText, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".docx":
		return FormatDOCX, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// Extract classifies filename and decodes data into plain text. No partial
// text is returned on failure.
func Extract(filename string, data []byte) (string, error) {
	format, err := Classify(filename)
	if err != nil {
		return "", err
	}
	return ExtractAs(format, data)
}

// ExtractAs decodes data as the given format.
func ExtractAs(format Format, data []byte) (string, error) {
	switch format {
	case FormatPDF:
		return extractPDF(data)
	case FormatPlainText, FormatMarkdown:
		return normalizeText(string(data)), nil
	case FormatHTML:
		return extractHTML(data), nil
	case FormatDOCX:
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
}

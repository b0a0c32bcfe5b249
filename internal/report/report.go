// Package report renders a finished analysis result into shareable
// formats: Markdown, JSON, CSV, and XLSX.
package report

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/brandlens/brandlens-cli/internal/model"
)

// Format identifies a report output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
)

// ParseFormat maps a user-supplied format name onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("report: unknown format %q", s)
	}
}

// Write renders the result in the given format to w. XLSX cannot stream to
// arbitrary writers through this path; use WriteFile for XLSX output.
func Write(w io.Writer, result *model.AnalysisResult, format Format) error {
	switch format {
	case FormatMarkdown:
		return WriteMarkdown(w, result)
	case FormatJSON:
		return WriteJSON(w, result)
	case FormatCSV:
		return WriteCSV(w, result)
	case FormatXLSX:
		return eris.New("report: xlsx output requires a file path")
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}

// WriteFile renders the result to the named file, inferring the format from
// the extension when format is empty.
func WriteFile(path string, result *model.AnalysisResult, format Format) error {
	if format == "" {
		inferred, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
		if err != nil {
			return err
		}
		format = inferred
	}

	if format == FormatXLSX {
		return WriteXLSXFile(path, result)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "report: create file")
	}

	if err := Write(f, result, format); err != nil {
		f.Close()
		return err
	}
	return eris.Wrap(f.Close(), "report: close file")
}

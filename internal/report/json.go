package report

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/brandlens/brandlens-cli/internal/model"
)

// WriteJSON renders the result as indented JSON.
func WriteJSON(w io.Writer, result *model.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(result), "report: write json")
}

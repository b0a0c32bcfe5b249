// Package registry loads question batteries from local files. YAML, CSV,
// and XLSX formats are supported; the format is chosen by file extension.
package registry

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens-cli/internal/model"
)

// Load reads questions from the given file, dispatching on extension.
func Load(path string) ([]model.Question, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAMLFile(path)
	case ".csv":
		return LoadCSVFile(path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, eris.Errorf("registry: unsupported question file format %q", filepath.Ext(path))
	}
}

// finalize validates loaded questions, assigns IDs where missing, and drops
// blank entries. It returns an error when nothing usable remains.
func finalize(questions []model.Question, source string) ([]model.Question, error) {
	var out []model.Question
	for _, q := range questions {
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			continue
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		out = append(out, q)
	}

	if len(out) == 0 {
		return nil, eris.Errorf("registry: no questions found in %s", source)
	}

	zap.L().Debug("loaded questions",
		zap.String("source", source),
		zap.Int("count", len(out)))

	return out, nil
}

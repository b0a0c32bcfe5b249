package registry

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/brandlens/brandlens-cli/internal/model"
)

// LoadCSVFile reads a question battery from a CSV file.
func LoadCSVFile(path string) ([]model.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: open csv file")
	}
	defer f.Close()

	return LoadCSV(f, path)
}

// LoadCSV reads a question battery from CSV. The first row is treated as a
// header when it contains a "text" or "question" column; column order is
// otherwise id, text, category with id and category optional.
func LoadCSV(r io.Reader, source string) ([]model.Question, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "registry: parse csv")
	}
	if len(records) == 0 {
		return nil, eris.Errorf("registry: no questions found in %s", source)
	}

	idCol, textCol, catCol := 0, 1, 2
	start := 0
	if cols, ok := headerColumns(records[0]); ok {
		idCol, textCol, catCol = cols[0], cols[1], cols[2]
		start = 1
	} else if len(records[0]) == 1 {
		// Single-column files are bare question text.
		idCol, textCol, catCol = -1, 0, -1
	}

	var questions []model.Question
	for _, rec := range records[start:] {
		questions = append(questions, model.Question{
			ID:       cellAt(rec, idCol),
			Text:     cellAt(rec, textCol),
			Category: cellAt(rec, catCol),
		})
	}

	return finalize(questions, source)
}

func headerColumns(row []string) ([3]int, bool) {
	cols := [3]int{-1, -1, -1}
	found := false
	for i, cell := range row {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "id":
			cols[0] = i
		case "text", "question":
			cols[1] = i
			found = true
		case "category":
			cols[2] = i
		}
	}
	return cols, found
}

func cellAt(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

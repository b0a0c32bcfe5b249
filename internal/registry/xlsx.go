package registry

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/brandlens/brandlens-cli/internal/model"
)

// LoadXLSX reads a question battery from the first sheet of an XLSX
// workbook, using the same column conventions as CSV.
func LoadXLSX(path string) ([]model.Question, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: open xlsx file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("registry: no sheets in %s", path)
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("registry: no questions found in %s", path)
	}

	idCol, textCol, catCol := 0, 1, 2
	start := 0
	if cols, ok := headerColumns(rows[0]); ok {
		idCol, textCol, catCol = cols[0], cols[1], cols[2]
		start = 1
	} else if len(rows[0]) == 1 {
		idCol, textCol, catCol = -1, 0, -1
	}

	var questions []model.Question
	for _, rec := range rows[start:] {
		questions = append(questions, model.Question{
			ID:       cellAt(rec, idCol),
			Text:     cellAt(rec, textCol),
			Category: cellAt(rec, catCol),
		})
	}

	return finalize(questions, path)
}

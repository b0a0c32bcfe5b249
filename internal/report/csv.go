package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/brandlens/brandlens-cli/internal/model"
)

// WriteCSV renders per-question rows: one line per question with its
// sentiment, confidence, and per-brand mention counts flattened into
// brand=frequency pairs.
func WriteCSV(w io.Writer, result *model.AnalysisResult) error {
	cw := csv.NewWriter(w)

	header := []string{"question_id", "question", "category", "sentiment", "confidence", "summary", "brand_mentions"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}

	for _, qa := range result.Questions {
		row := []string{
			qa.QuestionID,
			qa.Question,
			qa.Category,
			string(qa.Sentiment),
			strconv.FormatFloat(qa.ConfidenceScore, 'f', 2, 64),
			qa.Summary,
			flattenMentions(qa.BrandMentions),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

func flattenMentions(mentions []model.BrandMention) string {
	out := ""
	for i, m := range mentions {
		if i > 0 {
			out += "; "
		}
		out += m.Brand + "=" + strconv.Itoa(m.Frequency)
	}
	return out
}

package report

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/brandlens/brandlens-cli/internal/model"
)

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

// WriteXLSXFile renders the result as an XLSX workbook with a summary
// sheet, a brand sheet, and a per-question sheet.
func WriteXLSXFile(path string, result *model.AnalysisResult) error {
	f := xlsx.NewFile()

	if err := addSummarySheet(f, result); err != nil {
		return err
	}
	if err := addBrandSheet(f, result); err != nil {
		return err
	}
	if err := addQuestionSheet(f, result); err != nil {
		return err
	}

	return eris.Wrap(f.Save(path), "report: save xlsx")
}

func addSummarySheet(f *xlsx.File, result *model.AnalysisResult) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	addRow(sheet, "Analysis ID", result.AnalysisID)
	addRow(sheet, "Generated", result.Timestamp.Format("2006-01-02 15:04 MST"))
	addRow(sheet, "Questions", itoa(len(result.Questions)))
	addRow(sheet, "Failed Questions", itoa(result.FailedQuestions))
	addRow(sheet, "Overall Confidence", ftoa(result.OverallConfidence))
	addRow(sheet, "Total Sources", itoa(result.TotalSources))
	addRow(sheet, "Priority Sources", itoa(result.PrioritySources))
	addRow(sheet, "Input Tokens", itoa(result.TokenUsage.InputTokens))
	addRow(sheet, "Output Tokens", itoa(result.TokenUsage.OutputTokens))
	addRow(sheet, "Cost USD", ftoa(result.TokenUsage.CostUSD))
	return nil
}

func addBrandSheet(f *xlsx.File, result *model.AnalysisResult) error {
	sheet, err := f.AddSheet("Brands")
	if err != nil {
		return eris.Wrap(err, "report: add brand sheet")
	}

	addRow(sheet, "Type", "Brand", "Mentioned", "Frequency", "Context")
	for _, m := range result.BrandSummary.TargetBrands {
		addMentionRow(sheet, "target", m)
	}
	for _, m := range result.BrandSummary.Competitors {
		addMentionRow(sheet, "competitor", m)
	}
	return nil
}

func addQuestionSheet(f *xlsx.File, result *model.AnalysisResult) error {
	sheet, err := f.AddSheet("Questions")
	if err != nil {
		return eris.Wrap(err, "report: add question sheet")
	}

	addRow(sheet, "ID", "Question", "Category", "Sentiment", "Confidence", "Summary")
	for _, qa := range result.Questions {
		addRow(sheet, qa.QuestionID, qa.Question, qa.Category, string(qa.Sentiment), ftoa(qa.ConfidenceScore), qa.Summary)
	}
	return nil
}

func addMentionRow(sheet *xlsx.Sheet, kind string, m model.BrandMention) {
	mentioned := "no"
	if m.Mentioned {
		mentioned = "yes"
	}
	addRow(sheet, kind, m.Brand, mentioned, itoa(m.Frequency), string(m.Context))
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

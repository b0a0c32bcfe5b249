package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/brandlens/brandlens-cli/internal/model"
)

// WriteMarkdown renders the result as a Markdown report.
func WriteMarkdown(w io.Writer, result *model.AnalysisResult) error {
	var b strings.Builder

	b.WriteString("# Brand Visibility Report\n\n")
	fmt.Fprintf(&b, "- **Analysis ID:** %s\n", result.AnalysisID)
	fmt.Fprintf(&b, "- **Generated:** %s\n", result.Timestamp.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "- **Questions:** %d (%d failed)\n", len(result.Questions), result.FailedQuestions)
	fmt.Fprintf(&b, "- **Overall confidence:** %.2f\n", result.OverallConfidence)
	fmt.Fprintf(&b, "- **Sources:** %d (%d priority)\n", result.TotalSources, result.PrioritySources)
	fmt.Fprintf(&b, "- **Tokens:** %d in / %d out ($%.4f)\n", result.TokenUsage.InputTokens, result.TokenUsage.OutputTokens, result.TokenUsage.CostUSD)
	if len(result.Categories) > 0 {
		fmt.Fprintf(&b, "- **Categories:** %s\n", strings.Join(result.Categories, ", "))
	}
	b.WriteString("\n")

	b.WriteString("## Brand Summary\n\n")
	writeMentionTable(&b, "Target Brands", result.BrandSummary.TargetBrands)
	writeMentionTable(&b, "Competitors", result.BrandSummary.Competitors)

	if bt := result.BrandSummaryByType; bt != nil {
		b.WriteString("## By Question Type\n\n")
		b.WriteString("### Generic Questions\n\n")
		writeMentionTable(&b, "Target Brands", bt.Generic.TargetBrands)
		writeMentionTable(&b, "Competitors", bt.Generic.Competitors)
		b.WriteString("### Brand-Specific Questions\n\n")
		writeMentionTable(&b, "Target Brands", bt.Specific.TargetBrands)
		writeMentionTable(&b, "Competitors", bt.Specific.Competitors)
	}

	b.WriteString("## Question Detail\n\n")
	for i, qa := range result.Questions {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, qa.Question)
		if qa.Category != "" {
			fmt.Fprintf(&b, "*Category: %s*\n\n", qa.Category)
		}
		fmt.Fprintf(&b, "%s\n\n", qa.Summary)
		fmt.Fprintf(&b, "Sentiment: %s · Confidence: %.2f\n\n", qa.Sentiment, qa.ConfidenceScore)
	}

	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "report: write markdown")
}

func writeMentionTable(b *strings.Builder, title string, mentions []model.BrandMention) {
	fmt.Fprintf(b, "**%s**\n\n", title)
	if len(mentions) == 0 {
		b.WriteString("_No mentions._\n\n")
		return
	}
	b.WriteString("| Brand | Mentioned | Frequency | Context |\n")
	b.WriteString("|-------|-----------|-----------|--------|\n")
	for _, m := range mentions {
		fmt.Fprintf(b, "| %s | %t | %d | %s |\n", m.Brand, m.Mentioned, m.Frequency, m.Context)
	}
	b.WriteString("\n")
}

package analysis

import (
	"github.com/brandlens/brandlens-cli/internal/model"
)

// Consolidate merges brand mentions across analyses by exact brand name:
// frequencies add, evidence concatenates in encounter order (duplicates
// allowed), and mentioned never reverts to false once set. Accumulated
// brands are then classified against the configured target and competitor
// lists; brands matching neither are dropped, which limits the summary to
// known brands.
func Consolidate(analyses []model.QuestionAnalysis, cfg *model.RunConfiguration) model.BrandSummary {
	acc := make(map[string]*model.BrandMention)
	var order []string

	for _, qa := range analyses {
		for _, bm := range qa.BrandMentions {
			entry, ok := acc[bm.Brand]
			if !ok {
				entry = &model.BrandMention{
					Brand:   bm.Brand,
					Context: model.SentimentNeutral,
				}
				acc[bm.Brand] = entry
				order = append(order, bm.Brand)
			}

			entry.Frequency += bm.Frequency
			entry.Mentioned = entry.Mentioned || bm.Mentioned
			entry.Evidence = append(entry.Evidence, bm.Evidence...)

			// First non-neutral context wins; later readings never flip it.
			if entry.Context == model.SentimentNeutral && bm.Context != model.SentimentNeutral {
				entry.Context = bm.Context
			}
		}
	}

	var summary model.BrandSummary
	for _, name := range order {
		entry := *acc[name]
		switch {
		case cfg.IsTargetBrand(name):
			summary.TargetBrands = append(summary.TargetBrands, entry)
		case cfg.IsCompetitorBrand(name):
			summary.Competitors = append(summary.Competitors, entry)
		}
	}
	return summary
}

// ConsolidateByType consolidates independently over {all, generic,
// specific} question subsets. A question is "specific" when its text names
// any configured brand (case-insensitive substring); every analysis lands
// in exactly one of the two partitions.
func ConsolidateByType(analyses []model.QuestionAnalysis, cfg *model.RunConfiguration) model.BrandSummaryByType {
	brands := cfg.AllBrands()

	var generic, specific []model.QuestionAnalysis
	for _, qa := range analyses {
		q := model.Question{Text: qa.Question}
		if q.MentionsAnyBrand(brands) {
			specific = append(specific, qa)
		} else {
			generic = append(generic, qa)
		}
	}

	return model.BrandSummaryByType{
		All:      Consolidate(analyses, cfg),
		Generic:  Consolidate(generic, cfg),
		Specific: Consolidate(specific, cfg),
	}
}

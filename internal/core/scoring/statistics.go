package scoring

import (
	"cmp"
	"slices"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

// Aggregate summarizes the completed audits that match filter. Drafts are
// ignored. An empty selection yields zero counts, a zero average and four
// empty distribution buckets.
func Aggregate(audits []domain.Audit, filter domain.StatisticsFilter) (domain.Statistics, error) {
	stats := domain.Statistics{
		AnswerDistribution: domain.NewDistribution(),
		ByFacility:         []domain.FacilityStatistics{},
		BySection:          []domain.SectionStatistics{},
	}

	included := make([]*domain.Audit, 0, len(audits))
	answers := make([]domain.Answer, 0)
	for i := range audits {
		audit := &audits[i]
		if !audit.Completed() || !filter.Matches(audit) {
			continue
		}
		included = append(included, audit)
		answers = append(answers, audit.Answers...)
	}

	stats.TotalAudits = len(included)
	stats.AverageScore = averageScore(included)
	stats.AnswerDistribution.Merge(Distribute(answers))

	facilities, err := GroupBy(included, func(a *domain.Audit) (string, error) {
		return a.FacilityID, nil
	})
	if err != nil {
		return domain.Statistics{}, err
	}
	for _, group := range facilities {
		stats.ByFacility = append(stats.ByFacility, domain.FacilityStatistics{
			FacilityID:   group.Key,
			TotalAudits:  len(group.Items),
			AverageScore: averageScore(group.Items),
		})
	}
	slices.SortFunc(stats.ByFacility, func(a, b domain.FacilityStatistics) int {
		return cmp.Compare(a.FacilityID, b.FacilityID)
	})

	sections, err := GroupBy(answers, SectionKey)
	if err != nil {
		return domain.Statistics{}, err
	}
	for _, group := range sections {
		score, err := scoreSection(group.Key, group.Items)
		if err != nil {
			return domain.Statistics{}, err
		}
		stats.BySection = append(stats.BySection, domain.SectionStatistics{
			SectionID:          score.SectionID,
			SectionName:        score.SectionName,
			Position:           score.Position,
			Audits:             distinctAudits(group.Items),
			Earned:             score.Earned,
			Maximum:            score.Maximum,
			Percentage:         Round2(score.Percentage),
			AnswerDistribution: Distribute(group.Items),
		})
	}
	slices.SortStableFunc(stats.BySection, func(a, b domain.SectionStatistics) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.SectionID, b.SectionID)
	})

	return stats, nil
}

// averageScore is the mean stored total score; a missing score counts as 0.
func averageScore(audits []*domain.Audit) float64 {
	if len(audits) == 0 {
		return 0
	}
	sum := 0.0
	for _, audit := range audits {
		if audit.TotalScore != nil {
			sum += *audit.TotalScore
		}
	}
	return Round2(sum / float64(len(audits)))
}

func distinctAudits(answers []domain.Answer) int {
	seen := make(map[string]struct{})
	for _, answer := range answers {
		seen[answer.AuditID] = struct{}{}
	}
	return len(seen)
}

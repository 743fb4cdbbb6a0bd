package scoring

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

// MaxMultiplier is the multiplier of a fully compliant answer and the
// per-weight maximum of every in-scope question.
const MaxMultiplier = 3

// Multiplier returns the earned-points multiplier of kind. inScope is false for
// out-of-scope answers, which count towards neither earned nor maximum points.
func Multiplier(kind domain.AnswerKind) (multiplier int, inScope bool, err error) {
	switch kind {
	case domain.AnswerFullyCompliant:
		return MaxMultiplier, true, nil
	case domain.AnswerPartiallyCompliant:
		return 1, true, nil
	case domain.AnswerNonCompliant:
		return 0, true, nil
	case domain.AnswerOutOfScope:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("multiplier: %w: %q", domain.ErrInvalidAnswerKind, string(kind))
	}
}

// Result is the outcome of scoring one answer set.
type Result struct {
	Sections []domain.SectionScore
	Overall  float64
}

// Score computes per-section scores and the rounded overall score.
func Score(answers []domain.Answer) (Result, error) {
	sections, err := SectionScores(answers)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Sections: sections,
		Overall:  OverallScore(sections),
	}, nil
}

// SectionScores groups answers by section id and scores every group.
// Sections are ordered by position, then id.
func SectionScores(answers []domain.Answer) ([]domain.SectionScore, error) {
	groups, err := GroupBy(answers, SectionKey)
	if err != nil {
		return nil, err
	}

	scores := make([]domain.SectionScore, 0, len(groups))
	for _, group := range groups {
		score, err := scoreSection(group.Key, group.Items)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	sortSections(scores)
	return scores, nil
}

func scoreSection(sectionID string, answers []domain.Answer) (domain.SectionScore, error) {
	score := domain.SectionScore{SectionID: sectionID}
	if len(answers) > 0 {
		section := answers[0].Question.Section()
		score.SectionName = section.Name
		score.Position = section.Position
	}

	for _, answer := range answers {
		multiplier, inScope, err := Multiplier(answer.Kind)
		if err != nil {
			return domain.SectionScore{}, err
		}
		score.Answered++
		if !inScope {
			continue
		}
		weight := answer.Question.Weight
		score.InScope++
		score.Maximum += weight * MaxMultiplier
		score.Earned += weight * multiplier
	}
	score.Percentage = percentage(score.Earned, score.Maximum)
	return score, nil
}

// OverallScore is the unweighted mean of the percentages of sections that
// hold at least one in-scope answer, rounded to 2 decimals. It is 0 when no
// section qualifies.
func OverallScore(sections []domain.SectionScore) float64 {
	sum := 0.0
	n := 0
	for _, section := range sections {
		if !section.Scored() {
			continue
		}
		sum += section.Percentage
		n++
	}
	if n == 0 {
		return 0
	}
	return Round2(sum / float64(n))
}

// RoundedSections returns a copy of sections with display-rounded percentages.
func RoundedSections(sections []domain.SectionScore) []domain.SectionScore {
	out := make([]domain.SectionScore, len(sections))
	for i, section := range sections {
		section.Percentage = Round2(section.Percentage)
		out[i] = section
	}
	return out
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Distribute counts answers per kind. Unknown kinds are not counted.
func Distribute(answers []domain.Answer) domain.Distribution {
	d := domain.NewDistribution()
	for _, answer := range answers {
		if answer.Kind.Valid() {
			d.Add(answer.Kind)
		}
	}
	return d
}

// Shares expands a distribution into per-kind counts and percentages of the total.
func Shares(d domain.Distribution) []domain.DistributionShare {
	total := d.Total()
	out := make([]domain.DistributionShare, 0, len(domain.AnswerKinds))
	for _, kind := range domain.AnswerKinds {
		share := domain.DistributionShare{Kind: kind, Count: d[kind]}
		if total > 0 {
			share.Percentage = Round2(float64(d[kind]) / float64(total) * 100)
		}
		out = append(out, share)
	}
	return out
}

func percentage(earned, maximum int) float64 {
	if maximum <= 0 {
		return 0
	}
	return float64(earned) / float64(maximum) * 100
}

func sortSections(scores []domain.SectionScore) {
	slices.SortStableFunc(scores, func(a, b domain.SectionScore) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.SectionID, b.SectionID)
	})
}

package domain

import "time"

// Distribution counts answers per kind. Every kind is always present.
type Distribution map[AnswerKind]int

func NewDistribution() Distribution {
	d := make(Distribution, len(AnswerKinds))
	for _, kind := range AnswerKinds {
		d[kind] = 0
	}
	return d
}

func (d Distribution) Add(kind AnswerKind) {
	d[kind]++
}

func (d Distribution) Total() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

// Merge adds every bucket of other into d.
func (d Distribution) Merge(other Distribution) {
	for kind, n := range other {
		d[kind] += n
	}
}

type DistributionShare struct {
	Kind       AnswerKind `json:"kind"`
	Count      int        `json:"count"`
	Percentage float64    `json:"percentage"`
}

// StatisticsFilter narrows the audits included in Statistics. Zero values mean "any".
type StatisticsFilter struct {
	FacilityID string     `json:"facility_id,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

// Matches applies the facility and inclusive date bounds to an audit. Bounds
// and audit date are compared as UTC calendar days.
func (f StatisticsFilter) Matches(audit *Audit) bool {
	if audit == nil {
		return false
	}
	if f.FacilityID != "" && audit.FacilityID != f.FacilityID {
		return false
	}
	day := DayOf(audit.AuditDate)
	if f.StartDate != nil && day.Before(DayOf(*f.StartDate)) {
		return false
	}
	if f.EndDate != nil && day.After(DayOf(*f.EndDate)) {
		return false
	}
	return true
}

// DayOf truncates t to midnight of its UTC day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type Statistics struct {
	TotalAudits        int                  `json:"total_audits"`
	AverageScore       float64              `json:"average_score"`
	AnswerDistribution Distribution         `json:"answer_distribution"`
	ByFacility         []FacilityStatistics `json:"by_facility"`
	BySection          []SectionStatistics  `json:"by_section"`
}

type FacilityStatistics struct {
	FacilityID   string  `json:"facility_id"`
	TotalAudits  int     `json:"total_audits"`
	AverageScore float64 `json:"average_score"`
}

type SectionStatistics struct {
	SectionID          string       `json:"section_id"`
	SectionName        string       `json:"section_name"`
	Position           int          `json:"position"`
	Audits             int          `json:"audits"`
	Earned             int          `json:"earned"`
	Maximum            int          `json:"maximum"`
	Percentage         float64      `json:"percentage"`
	AnswerDistribution Distribution `json:"answer_distribution"`
}

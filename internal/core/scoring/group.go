package scoring

import (
	"fmt"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

// Group is one bucket produced by GroupBy.
type Group[K comparable, T any] struct {
	Key   K
	Items []T
}

// GroupBy buckets items by the selected key. Groups keep the order in which
// their keys were first seen. A key selector error aborts the whole grouping.
func GroupBy[K comparable, T any](items []T, key func(T) (K, error)) ([]Group[K, T], error) {
	index := make(map[K]int)
	groups := make([]Group[K, T], 0)
	for _, item := range items {
		k, err := key(item)
		if err != nil {
			return nil, err
		}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K, T]{Key: k})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups, nil
}

// SectionKey selects the section id of an answer. Section names are never
// used as keys since two sections may share a name.
func SectionKey(answer domain.Answer) (string, error) {
	section, err := resolveSection(answer)
	if err != nil {
		return "", err
	}
	return section.ID, nil
}

func resolveSection(answer domain.Answer) (*domain.Section, error) {
	q := answer.Question
	var missing string
	switch {
	case q == nil:
		missing = "question"
	case q.Category == nil:
		missing = "category"
	case q.Category.Section == nil || q.Category.Section.ID == "":
		missing = "section"
	}
	if missing != "" {
		return nil, domain.WrapError(
			domain.ErrBrokenHierarchy,
			"resolve section",
			fmt.Errorf("answer=%s question=%s: %s missing", answer.ID, answer.QuestionID, missing),
		)
	}
	return q.Category.Section, nil
}

package seed

import (
	"strings"
	"testing"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

func TestDefaultCatalogueIsValid(t *testing.T) {
	checklist, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if len(checklist.Sections) != 1 || len(checklist.Categories) != 1 || len(checklist.Questions) != 3 {
		t.Fatalf("unexpected catalogue sizes: %+v", checklist)
	}
	if checklist.Categories[0].SectionID != "fire-safety" {
		t.Fatalf("expected category linked to its section, got %q", checklist.Categories[0].SectionID)
	}
	if checklist.Questions[2].Weight != 9 || checklist.Questions[2].CategoryID != "fire-extinguishing-equipment" {
		t.Fatalf("unexpected question: %+v", checklist.Questions[2])
	}
	if got := checklist.Templates[0].QuestionIDs; len(got) != 3 || got[0] != "extinguishers-in-place" {
		t.Fatalf("unexpected template questions: %v", got)
	}
}

func TestParseRejectsInvalidCatalogues(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name: "weight out of range",
			yaml: `
sections:
  - id: s1
    name: S
    categories:
      - id: c1
        name: C
        questions:
          - {id: q1, text: Q, weight: 11}
`,
			wantMsg: "weight 11 outside [1,10]",
		},
		{
			name: "duplicate question",
			yaml: `
sections:
  - id: s1
    name: S
    categories:
      - id: c1
        name: C
        questions:
          - {id: q1, text: Q, weight: 5}
          - {id: q1, text: Q, weight: 5}
`,
			wantMsg: `question "q1": duplicate id`,
		},
		{
			name: "unknown template question",
			yaml: `
templates:
  - id: t1
    name: T
    questions: [missing]
`,
			wantMsg: `unknown question "missing"`,
		},
		{
			name:    "unknown key",
			yaml:    "sektions: []\n",
			wantMsg: "sektions",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("expected %q in %v", tc.wantMsg, err)
			}
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	checklist, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error = %v", err)
	}
	if len(checklist.Sections) != 0 || len(checklist.Templates) != 0 {
		t.Fatalf("expected empty catalogue, got %+v", checklist)
	}
}

func TestLoadReportsEveryProblem(t *testing.T) {
	_, err := Load(strings.NewReader(`
facilities:
  - {id: f1}
templates:
  - {id: t1, name: T}
`))
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	for _, want := range []string{`facility "f1": name is required`, `template "t1": at least one question is required`} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %v", want, msg)
		}
	}
}

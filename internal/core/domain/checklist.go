package domain

const (
	MinQuestionWeight = 1
	MaxQuestionWeight = 10
)

// Section is the top-level scoring bucket of a questionnaire.
type Section struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Position    int    `json:"position" yaml:"position"`
}

// Category groups questions inside a section. It is never scored on its own.
type Category struct {
	ID        string   `json:"id"`
	SectionID string   `json:"section_id"`
	Name      string   `json:"name"`
	Position  int      `json:"position"`
	Section   *Section `json:"section,omitempty"`
}

// Question is a single checklist item. Weight is the TW score in [1,10].
type Question struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"category_id"`
	Text       string    `json:"text"`
	Weight     int       `json:"weight"`
	Category   *Category `json:"category,omitempty"`
}

// Section returns the resolved section of the question, or nil when the
// category chain is incomplete.
func (q *Question) Section() *Section {
	if q == nil || q.Category == nil {
		return nil
	}
	return q.Category.Section
}

type Template struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
}

// HasQuestion reports whether questionID belongs to the template.
func (t *Template) HasQuestion(questionID string) bool {
	return t.Question(questionID) != nil
}

func (t *Template) Question(questionID string) *Question {
	if t == nil {
		return nil
	}
	for i := range t.Questions {
		if t.Questions[i].ID == questionID {
			return &t.Questions[i]
		}
	}
	return nil
}

type Facility struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	City string `json:"city,omitempty" yaml:"city,omitempty"`
}

// Checklist is a full questionnaire definition used for bulk import.
type Checklist struct {
	Facilities []Facility
	Sections   []Section
	Categories []Category
	Questions  []Question
	Templates  []TemplateDefinition
}

// TemplateDefinition lists template questions by id in display order.
type TemplateDefinition struct {
	ID          string
	Name        string
	Description string
	QuestionIDs []string
}

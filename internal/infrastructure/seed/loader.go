// Package seed loads questionnaire catalogues from YAML files.
package seed

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/hse-audit/internal/core/domain"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

type File struct {
	Facilities []domain.Facility `yaml:"facilities"`
	Sections   []SectionEntry    `yaml:"sections"`
	Templates  []TemplateEntry   `yaml:"templates"`
}

type SectionEntry struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Position    int             `yaml:"position"`
	Categories  []CategoryEntry `yaml:"categories"`
}

type CategoryEntry struct {
	ID        string          `yaml:"id"`
	Name      string          `yaml:"name"`
	Position  int             `yaml:"position"`
	Questions []QuestionEntry `yaml:"questions"`
}

type QuestionEntry struct {
	ID     string `yaml:"id"`
	Text   string `yaml:"text"`
	Weight int    `yaml:"weight"`
}

type TemplateEntry struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Questions   []string `yaml:"questions"`
}

// Default returns the built-in sample catalogue.
func Default() (domain.Checklist, error) {
	data, err := builtinFS.ReadFile("builtin/default.yaml")
	if err != nil {
		return domain.Checklist{}, fmt.Errorf("seed.Default: %w", err)
	}
	return Parse(data)
}

func LoadFile(path string) (domain.Checklist, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Checklist{}, fmt.Errorf("seed.LoadFile: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (domain.Checklist, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Checklist{}, fmt.Errorf("seed.Load: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalogue. Unknown keys are rejected.
func Parse(data []byte) (domain.Checklist, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return domain.Checklist{}, domain.WrapError(domain.ErrInvalidInput, "seed.Parse", err)
	}

	checklist, err := file.Checklist()
	if err != nil {
		return domain.Checklist{}, domain.WrapError(domain.ErrInvalidInput, "seed.Parse", err)
	}
	return checklist, nil
}

// Checklist flattens the nested file into import order and validates ids,
// weights and template references.
func (f File) Checklist() (domain.Checklist, error) {
	var (
		out  domain.Checklist
		errs []error
	)
	ids := newIDSet()

	for _, facility := range f.Facilities {
		if err := ids.add("facility", facility.ID); err != nil {
			errs = append(errs, err)
		}
		if strings.TrimSpace(facility.Name) == "" {
			errs = append(errs, fmt.Errorf("facility %q: name is required", facility.ID))
		}
		out.Facilities = append(out.Facilities, facility)
	}

	questions := make(map[string]struct{})
	for _, s := range f.Sections {
		if err := ids.add("section", s.ID); err != nil {
			errs = append(errs, err)
		}
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, fmt.Errorf("section %q: name is required", s.ID))
		}
		out.Sections = append(out.Sections, domain.Section{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Position:    s.Position,
		})

		for _, c := range s.Categories {
			if err := ids.add("category", c.ID); err != nil {
				errs = append(errs, err)
			}
			out.Categories = append(out.Categories, domain.Category{
				ID:        c.ID,
				SectionID: s.ID,
				Name:      c.Name,
				Position:  c.Position,
			})

			for _, q := range c.Questions {
				if err := ids.add("question", q.ID); err != nil {
					errs = append(errs, err)
				}
				if q.Weight < domain.MinQuestionWeight || q.Weight > domain.MaxQuestionWeight {
					errs = append(errs, fmt.Errorf("question %q: weight %d outside [%d,%d]",
						q.ID, q.Weight, domain.MinQuestionWeight, domain.MaxQuestionWeight))
				}
				if strings.TrimSpace(q.Text) == "" {
					errs = append(errs, fmt.Errorf("question %q: text is required", q.ID))
				}
				questions[q.ID] = struct{}{}
				out.Questions = append(out.Questions, domain.Question{
					ID:         q.ID,
					CategoryID: c.ID,
					Text:       q.Text,
					Weight:     q.Weight,
				})
			}
		}
	}

	for _, t := range f.Templates {
		if err := ids.add("template", t.ID); err != nil {
			errs = append(errs, err)
		}
		if len(t.Questions) == 0 {
			errs = append(errs, fmt.Errorf("template %q: at least one question is required", t.ID))
		}
		seen := make(map[string]struct{}, len(t.Questions))
		for _, questionID := range t.Questions {
			if _, ok := questions[questionID]; !ok {
				errs = append(errs, fmt.Errorf("template %q: unknown question %q", t.ID, questionID))
			}
			if _, dup := seen[questionID]; dup {
				errs = append(errs, fmt.Errorf("template %q: question %q listed twice", t.ID, questionID))
			}
			seen[questionID] = struct{}{}
		}
		out.Templates = append(out.Templates, domain.TemplateDefinition{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			QuestionIDs: t.Questions,
		})
	}

	if err := errors.Join(errs...); err != nil {
		return domain.Checklist{}, err
	}
	return out, nil
}

// idSet tracks ids per entity kind.
type idSet map[string]map[string]struct{}

func newIDSet() idSet {
	return make(idSet)
}

func (s idSet) add(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s: id is required", kind)
	}
	if s[kind] == nil {
		s[kind] = make(map[string]struct{})
	}
	if _, dup := s[kind][id]; dup {
		return fmt.Errorf("%s %q: duplicate id", kind, id)
	}
	s[kind][id] = struct{}{}
	return nil
}

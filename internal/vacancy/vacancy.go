package vacancy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/hr-screener/internal/utils"
)

// ErrNotFound is returned when the requested vacancy id is absent from the collection.
var ErrNotFound = errors.New("vacancy not found")

type Vacancies struct {
	Items []*Vacancy
}

// Vacancy is a job requisition. It is read-only for the duration of a session.
type Vacancy struct {
	ID           string   `json:"id" validate:"required"`
	Title        string   `json:"title" validate:"required"`
	Requirements []string `json:"requirements,omitempty" validate:"dive,required"`
	Duties       []string `json:"duties,omitempty"`
	Questions    []string `json:"questions,omitempty" validate:"dive,required"`
}

// Summary is a short description used when listing vacancies.
type Summary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Requirements int    `json:"requirements"`
	Questions    int    `json:"questions"`
}

// LoadFromFile reads the vacancy collection (a JSON array) from path.
func LoadFromFile(path string) (*Vacancies, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vacancies file: %w", err)
	}
	defer file.Close()

	vacancies, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vacancies, nil
}

// Parse decodes and validates a vacancy collection.
func Parse(r io.Reader) (*Vacancies, error) {
	var items []*Vacancy
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode vacancies: %w", err)
	}

	vacancies := &Vacancies{Items: items}
	if err := vacancies.Validate(); err != nil {
		return nil, err
	}
	return vacancies, nil
}

// Validate checks every vacancy and rejects duplicate ids.
func (v *Vacancies) Validate() error {
	validate := validator.New()
	seen := make(map[string]struct{}, len(v.Items))

	for idx, vacancy := range v.Items {
		if vacancy == nil {
			return fmt.Errorf("vacancy #%d is empty", idx)
		}
		if err := validate.Struct(vacancy); err != nil {
			return fmt.Errorf("vacancy #%d (%q): %w", idx, vacancy.ID, err)
		}
		if _, ok := seen[vacancy.ID]; ok {
			return fmt.Errorf("duplicate vacancy id %q", vacancy.ID)
		}
		seen[vacancy.ID] = struct{}{}
	}
	return nil
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

// FindByID returns the vacancy with the given id or ErrNotFound.
func (v *Vacancies) FindByID(id string) (*Vacancy, error) {
	id = strings.TrimSpace(id)
	for _, vacancy := range v.Items {
		if vacancy.ID == id {
			return vacancy, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
}

// Labels returns "id title" for every vacancy, in file order.
func (v *Vacancies) Labels() []string {
	labels := make([]string, 0, len(v.Items))
	for _, vacancy := range v.Items {
		labels = append(labels, vacancy.ID+" "+vacancy.Title)
	}
	return labels
}

func (v *Vacancies) Summaries() []Summary {
	summaries := make([]Summary, 0, len(v.Items))
	for _, vacancy := range v.Items {
		summaries = append(summaries, Summary{
			ID:           vacancy.ID,
			Title:        vacancy.Title,
			Requirements: len(vacancy.DistinctRequirements()),
			Questions:    len(vacancy.Questions),
		})
	}
	return summaries
}

// DistinctRequirements returns requirements without duplicates in their original order.
// A requirement is identified by its original string.
func (va *Vacancy) DistinctRequirements() []string {
	return utils.Unique(va.Requirements)
}

// HasQuestions reports whether the vacancy carries a seed question bank.
func (va *Vacancy) HasQuestions() bool {
	return len(va.Questions) > 0
}

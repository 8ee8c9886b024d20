package vacancy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `[
  {
    "id": "sysadmin",
    "title": "Системный администратор",
    "requirements": ["Linux", "Cisco", "Linux"],
    "duties": ["Поддержка сети"],
    "questions": ["Расскажите о своем опыте с Linux?", "Как вы настраивали VLAN?"]
  },
  {
    "id": "analyst",
    "title": "Аналитик данных",
    "requirements": ["SQL", "Python"]
  }
]`

func TestParseAndFind(t *testing.T) {
	vacancies, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, 2, vacancies.Len())

	found, err := vacancies.FindByID(" sysadmin ")
	require.NoError(t, err)
	assert.Equal(t, "Системный администратор", found.Title)
	assert.True(t, found.HasQuestions())
	assert.Equal(t, []string{"Linux", "Cisco"}, found.DistinctRequirements())

	_, err = vacancies.FindByID("unknown")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSummaries(t *testing.T) {
	vacancies, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"sysadmin Системный администратор", "analyst Аналитик данных"}, vacancies.Labels())
	assert.Equal(t, []Summary{
		{ID: "sysadmin", Title: "Системный администратор", Requirements: 2, Questions: 2},
		{ID: "analyst", Title: "Аналитик данных", Requirements: 2, Questions: 0},
	}, vacancies.Summaries())
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing title": `[{"id": "a"}]`,
		"missing id":    `[{"title": "A"}]`,
		"duplicate id":  `[{"id": "a", "title": "A"}, {"id": "a", "title": "B"}]`,
		"empty item":    `[null]`,
		"blank seed":    `[{"id": "a", "title": "A", "questions": [""]}]`,
		"not an array":  `{"id": "a"}`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(payload))
			require.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vacancies.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	vacancies, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, vacancies.Len())

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

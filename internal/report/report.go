// Package report merges résumé and interview results into the final recommendation.
package report

import (
	"fmt"
	"strings"

	"github.com/spigell/hr-screener/internal/scoring"
	"github.com/spigell/hr-screener/internal/utils"
)

const (
	resumeWeight    = 0.4
	interviewWeight = 0.6

	advanceAbove = 70.0
	rejectBelow  = 50.0
)

type Recommendation string

const (
	Advance      Recommendation = "На следующий этап"
	Reject       Recommendation = "Отказ"
	NeedsClarity Recommendation = "Требуется уточнение"
)

type Report struct {
	Score          float64        `json:"score"`
	ResumeScore    float64        `json:"resume_score"`
	InterviewScore float64        `json:"interview_score"`
	Matched        []string       `json:"matched"`
	Missing        []string       `json:"missing"`
	StrongPoints   []string       `json:"strong_points"`
	Gaps           []string       `json:"gaps"`
	Recommendation Recommendation `json:"recommendation"`
}

// Compose weights the two phases and concatenates their requirement lists.
func Compose(resume scoring.ResumeResult, interview scoring.InterviewResult) Report {
	total := utils.Round1(resumeWeight*resume.Score + interviewWeight*interview.Score)

	return Report{
		Score:          total,
		ResumeScore:    resume.Score,
		InterviewScore: interview.Score,
		Matched:        concat(resume.Matched, interview.Matched),
		Missing:        concat(resume.Missing, interview.Missing),
		StrongPoints:   concat(interview.StrongPoints),
		Gaps:           concat(interview.Gaps),
		Recommendation: Recommend(total),
	}
}

// Recommend maps a total score to a decision. Both bounds are exclusive.
func Recommend(score float64) Recommendation {
	switch {
	case score > advanceAbove:
		return Advance
	case score < rejectBelow:
		return Reject
	default:
		return NeedsClarity
	}
}

// Render produces the human readable summary.
func Render(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Процент соответствия: %.1f%%\n", r.Score)
	section(&b, "Сильные стороны", r.StrongPoints)
	section(&b, "Пробелы", r.Gaps)
	section(&b, "Подтверждено", r.Matched)
	section(&b, "Отсутствует", r.Missing)
	fmt.Fprintf(&b, "\nРекомендация: %s", r.Recommendation)

	return b.String()
}

func section(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "\n%s:\n", title)
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	b.WriteString(strings.Join(lines, "\n"))
}

func concat(lists ...[]string) []string {
	out := []string{}
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

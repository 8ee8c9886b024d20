package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/hr-screener/internal/scoring"
	"github.com/spigell/hr-screener/internal/screening"
	"github.com/spigell/hr-screener/internal/utils"
	"github.com/spigell/hr-screener/internal/vacancy"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <file>",
	Short: "Print how well a résumé covers the vacancy requirements",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		analyzeResume(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().StringP("vacancy", "v", "", "vacancy id. Chosen interactively when empty.")
}

func analyzeResume(cmd *cobra.Command, path string) {
	ctx := context.Background()
	logger, config := setup()

	vacancies, err := loadVacancies(config, logger)
	if err != nil {
		logger.Fatal("loading vacancies", zap.Error(err))
	}

	id := cmd.Flag("vacancy").Value.String()
	if id == "" {
		id, err = selectVacancy(vacancies)
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	provider := newProvider(config, logger)
	service := screening.New(screening.Deps{
		Vacancies: vacancies,
		Resumes:   scoring.NewResumeScorer(newEngine(config, provider, logger), logger),
		Logger:    logger,
	})

	result, text, err := service.AnalyzeResume(ctx, path, id)
	if errors.Is(err, vacancy.ErrNotFound) {
		logger.Fatal("vacancy with given id not found",
			zap.Strings("existing vacancies", vacancies.Labels()),
			zap.String("vacancy id", id),
		)
	}
	if err != nil {
		logger.Fatal("analysing resume", zap.Error(err))
	}

	logger.Debug("resume text", zap.String("text", utils.TruncateForLog(text, 500)))

	fmt.Printf("Вакансия: %s\n", result.Vacancy)
	fmt.Printf("Соответствие резюме: %.1f%%\n", result.Score)
	printList("Совпадения", result.Matched)
	printList("Не найдено", result.Missing)
}

func printList(title string, items []string) {
	fmt.Printf("%s:\n", title)
	if len(items) == 0 {
		fmt.Println("  -")
		return
	}
	for _, item := range items {
		fmt.Printf("  - %s\n", item)
	}
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var vacanciesCmd = &cobra.Command{
	Use:   "vacancies",
	Short: "List the vacancies a candidate can be screened for",
	Run: func(cmd *cobra.Command, _ []string) {
		listVacancies(cmd)
	},
}

func init() {
	rootCmd.AddCommand(vacanciesCmd)

	vacanciesCmd.Flags().Bool("as-json", false, "print the list as json")
}

func listVacancies(cmd *cobra.Command) {
	logger, config := setup()

	vacancies, err := loadVacancies(config, logger)
	if err != nil {
		logger.Fatal("loading vacancies", zap.Error(err))
	}

	summaries := vacancies.Summaries()

	if cmd.Flag("as-json").Value.String() == "true" {
		pretty, _ := json.MarshalIndent(summaries, "", "  ")
		fmt.Println(string(pretty))
		return
	}

	for _, s := range summaries {
		fmt.Printf("%-20s %s (требований: %d, вопросов: %d)\n", s.ID, s.Title, s.Requirements, s.Questions)
	}
}

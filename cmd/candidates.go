package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/hr-screener/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List screened candidates, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		listCandidates(cmd)
	},
}

func init() {
	rootCmd.AddCommand(candidatesCmd)

	candidatesCmd.Flags().IntP("limit", "l", 20, "how many candidates to show. 0 shows all of them.")
	candidatesCmd.Flags().Bool("report", false, "print the full report of every candidate")
}

func listCandidates(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	limit, err := strconv.Atoi(cmd.Flag("limit").Value.String())
	if err != nil {
		logger.Fatal("parsing limit", zap.Error(err))
	}

	store, err := storage.Open(config.Database, logger)
	if err != nil {
		logger.Fatal("opening candidates database", zap.Error(err))
	}
	defer store.Close()

	records, err := store.List(ctx, limit)
	if err != nil {
		logger.Fatal("listing candidates", zap.Error(err))
	}

	if len(records) == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates saved yet"))
		return
	}

	withReport := cmd.Flag("report").Value.String() == "true"
	for _, r := range records {
		fmt.Printf("%s  %-30s %-20s %5.1f%%\n", r.CreatedAt.Format("2006-01-02 15:04"), r.FullName, r.VacancyID, r.Score)
		if withReport {
			fmt.Println(r.ReportText)
			fmt.Println()
		}
	}
}

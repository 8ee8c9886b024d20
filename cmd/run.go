package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/spigell/hr-screener/internal/extract"
	"github.com/spigell/hr-screener/internal/interview"
	"github.com/spigell/hr-screener/internal/scoring"
	"github.com/spigell/hr-screener/internal/screening"
	"github.com/spigell/hr-screener/internal/speech"
	"github.com/spigell/hr-screener/internal/vacancy"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Screen a candidate: analyse the résumé, interview and save the report",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("name", "n", "", "candidate full name. Asked interactively when empty.")
	runCmd.Flags().StringP("resume", "r", "", "résumé file (pdf, docx, rtf or txt). Asked interactively when empty.")
	runCmd.Flags().StringP("vacancy", "v", "", "vacancy id. Chosen interactively when empty.")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger, config := setup()

	logger.Info("starting the hr-screener", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	vacancies, err := loadVacancies(config, logger)
	if err != nil {
		logger.Fatal("loading vacancies", zap.Error(err))
	}

	input, err := sessionInput(cmd, vacancies)
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	if device, err := speech.Probe(); err != nil {
		logger.Warn("microphone is not available, answers will be empty", zap.Error(err))
	} else {
		logger.Info("microphone found", zap.String("device", device))
	}

	stopper := &answerStopper{}
	// Without voice the console speaker already prints every question.
	s := newSession(config, vacancies, printEvents(os.Stdout, stopper, !config.Speech.Voice), logger)
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("closing session", zap.Error(err))
		}
	}()

	for _, status := range scoring.Describe(s.answers.Signals()) {
		logger.Debug("answer signal",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	stopper.target = s.orchestrator
	go stopper.listen(os.Stdin)

	result, err := s.service.Run(ctx, input)
	if errors.Is(err, vacancy.ErrNotFound) {
		logger.Fatal("vacancy with given id not found",
			zap.Strings("existing vacancies", vacancies.Labels()),
			zap.String("vacancy id", input.VacancyID),
		)
	}
	if err != nil {
		logger.Fatal("screening failed", zap.Error(err))
	}

	fmt.Println()
	fmt.Println(result.Text)

	if result.SaveErr != nil {
		fmt.Printf("\nОшибка сохранения в БД: %v\n", result.SaveErr)
		return
	}
	logger.Info("candidate saved", zap.String("session_id", result.SessionID.String()))
}

// sessionInput completes the flags with interactive prompts.
func sessionInput(cmd *cobra.Command, vacancies *vacancy.Vacancies) (screening.Session, error) {
	input := screening.Session{
		FullName:   strings.TrimSpace(cmd.Flag("name").Value.String()),
		ResumePath: strings.TrimSpace(cmd.Flag("resume").Value.String()),
		VacancyID:  strings.TrimSpace(cmd.Flag("vacancy").Value.String()),
	}

	if input.FullName == "" {
		prompt := promptui.Prompt{
			Label: "ФИО кандидата",
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return screening.ErrNameRequired
				}
				return nil
			},
		}
		name, err := prompt.Run()
		if err != nil {
			return input, err
		}
		input.FullName = strings.TrimSpace(name)
	}

	if input.ResumePath == "" {
		prompt := promptui.Prompt{
			Label:    "Файл резюме (" + strings.Join(extract.Formats(), ", ") + ")",
			Validate: validateResumePath,
		}
		path, err := prompt.Run()
		if err != nil {
			return input, err
		}
		input.ResumePath = strings.TrimSpace(path)
	}

	if input.VacancyID == "" {
		id, err := selectVacancy(vacancies)
		if err != nil {
			return input, err
		}
		input.VacancyID = id
	}

	return input, nil
}

func validateResumePath(path string) error {
	path = strings.TrimSpace(path)
	ext := strings.ToLower(filepath.Ext(path))
	supported := false
	for _, f := range extract.Formats() {
		if f == ext {
			supported = true
		}
	}
	if !supported {
		return fmt.Errorf("%q: %w", ext, extract.ErrUnsupportedFormat)
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return nil
}

func selectVacancy(vacancies *vacancy.Vacancies) (string, error) {
	if vacancies.Len() == 0 {
		return "", errors.New("vacancies file is empty")
	}

	prompt := promptui.Select{
		Label: "Выберите вакансию",
		Items: vacancies.Labels(),
	}
	i, _, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return vacancies.Items[i].ID, nil
}

// answerStopper ends the current answer when Enter is pressed while recording.
type answerStopper struct {
	enabled atomic.Bool
	target  interface{ Stop() }
}

func (a *answerStopper) listen(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if a.enabled.Load() && a.target != nil {
			a.target.Stop()
		}
	}
}

// printEvents shows the live interview log and tracks when Enter may stop an answer.
// Question events are skipped when the speaker prints questions itself.
func printEvents(out io.Writer, stopper *answerStopper, questionsPrinted bool) interview.EventSink {
	return func(e interview.Event) {
		switch e.Kind {
		case interview.EventEnableStop:
			stopper.enabled.Store(true)
			fmt.Fprintln(out, "Говорите... Нажмите Enter, чтобы закончить ответ.")
		case interview.EventDisableStop:
			stopper.enabled.Store(false)
		case interview.EventStopPhrase:
			fmt.Fprintf(out, "Обнаружена фраза завершения: %q\n", e.Message)
		case interview.EventQuestion:
			if !questionsPrinted {
				fmt.Fprintln(out, e.Message)
			}
		default:
			fmt.Fprintln(out, e.Message)
		}
	}
}

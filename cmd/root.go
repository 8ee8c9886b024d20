package cmd

import (
	"errors"
	"log"

	"github.com/spigell/hr-screener/internal/ai/gemini"
	"github.com/spigell/hr-screener/internal/interview"
	"github.com/spigell/hr-screener/internal/scoring"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hr-screener"
)

type Config struct {
	Vacancies string               `mapstructure:"vacancies"`
	Database  string               `mapstructure:"database"`
	AllowList []string             `mapstructure:"allow-list"`
	Interview interview.Config     `mapstructure:"interview"`
	Scoring   scoring.AnswerConfig `mapstructure:"scoring"`
	Speech    *SpeechConfig        `mapstructure:"speech"`
	AI        *AIConfig            `mapstructure:"ai"`
}

type SpeechConfig struct {
	// Voice speaks the questions aloud. When false they are only printed.
	Voice    bool   `mapstructure:"voice"`
	Language string `mapstructure:"language"`
}

type AIConfig struct {
	APIKey     string        `mapstructure:"api-key"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	Gemini     gemini.Config `mapstructure:"gemini"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hr-screener scores résumés against vacancies and runs a short voice interview with the candidate",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	viper.SetDefault("vacancies", "vacancies.json")
	viper.SetDefault("database", "candidates.db")
	viper.SetDefault("speech.voice", true)
	viper.SetDefault("speech.language", "ru-RU")
	viper.SetDefault("interview.turns", 3)
	viper.SetDefault("interview.capture-timeout", "40s")
	viper.SetDefault("interview.chunk", "5s")
	viper.SetDefault("interview.pause", "1s")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hr-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().String("vacancies", "", "vacancies file (default is vacancies.json)")
	rootCmd.PersistentFlags().String("database", "", "candidates database (default is candidates.db)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("vacancies", rootCmd.PersistentFlags().Lookup("vacancies"))
	viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional, every key has a default.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Speech == nil {
		config.Speech = &SpeechConfig{Voice: true}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}

	return config, nil
}

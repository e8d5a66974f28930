package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cv-screener/internal/fetch"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/sheet"
)

const (
	app = "cv-screener"
)

type Config struct {
	// Input is the table exported from the application form.
	Input string `mapstructure:"input"`
	// Updated is written by the download stage.
	Updated string `mapstructure:"updated"`
	// Processed is written by the screening stage.
	Processed  string        `mapstructure:"processed"`
	Sheet      string        `mapstructure:"sheet"`
	ResumesDir string        `mapstructure:"resumes-dir"`
	Columns    sheet.Columns `mapstructure:"columns"`

	Download  *DownloadConfig  `mapstructure:"download"`
	Screening *ScreeningConfig `mapstructure:"screening"`
	Fetch     *FetchConfig     `mapstructure:"fetch"`
	Drive     *DriveConfig     `mapstructure:"drive"`
	S3        fetch.S3Config   `mapstructure:"s3"`
	AI        *AIConfig        `mapstructure:"ai"`
}

type DownloadConfig struct {
	Quota      int           `mapstructure:"quota"`
	QuotaFile  string        `mapstructure:"quota-file"`
	MaxRetries int           `mapstructure:"max-retries"`
	MinDelay   time.Duration `mapstructure:"min-delay"`
	MaxDelay   time.Duration `mapstructure:"max-delay"`
}

type ScreeningConfig struct {
	Mode            string             `mapstructure:"mode"`
	Matching        string             `mapstructure:"matching"`
	CheckpointEvery int                `mapstructure:"checkpoint-every"`
	Delay           time.Duration      `mapstructure:"delay"`
	Affirmative     string             `mapstructure:"affirmative"`
	Criteria        screening.Criteria `mapstructure:"criteria"`
}

type FetchConfig struct {
	MaxSize   int64         `mapstructure:"max-size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user-agent"`
}

type DriveConfig struct {
	CredentialsFile string `mapstructure:"credentials-file"`
	TokenFile       string `mapstructure:"token-file"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	// configErr is reported by the commands that need a config, so that
	// help and version keep working with a broken one.
	configErr error

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "cv-screener downloads candidate resumes listed in a spreadsheet and screens them with Gemini",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().BoolP("interactive", "i", false, "ask for missing secrets and authorization codes")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("interactive", rootCmd.PersistentFlags().Lookup("interactive"))

	setDefaults()
	bindEnv()
}

func setDefaults() {
	viper.SetDefault("input", "aplication.xlsx")
	viper.SetDefault("updated", "aplication_updated.xlsx")
	viper.SetDefault("processed", "aplication_processed.xlsx")
	viper.SetDefault("resumes-dir", "cvs")

	viper.SetDefault("download.quota", 100)
	viper.SetDefault("download.max-retries", 3)
	viper.SetDefault("download.min-delay", "2s")
	viper.SetDefault("download.max-delay", "5s")

	viper.SetDefault("screening.mode", screening.ModeDual)
	viper.SetDefault("screening.matching", "fuzzy")
	viper.SetDefault("screening.checkpoint-every", 5)
	viper.SetDefault("screening.delay", "100ms")

	viper.SetDefault("fetch.max-size", fetch.DefaultMaxSize)
	viper.SetDefault("fetch.timeout", fetch.DefaultTimeout.String())

	viper.SetDefault("drive.credentials-file", "credentials.json")
	viper.SetDefault("drive.token-file", "token.json")

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.0-flash")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)
}

func bindEnv() {
	bindings := map[string]string{
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"drive.credentials-file": "CV_SCREENER_DRIVE_CREDENTIALS",
		"drive.token-file":       "CV_SCREENER_DRIVE_TOKEN",
		"s3.access-key-id":       "CV_SCREENER_S3_ACCESS_KEY_ID",
		"s3.secret-access-key":   "CV_SCREENER_S3_SECRET_ACCESS_KEY",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			panic(fmt.Sprintf("binding %s environment variable: %v", env, err))
		}
	}
}

func initConfig() {
	// A missing .env file is fine, the variables may come from the environment.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless given explicitly.
	configErr = viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if cfgFile == "" && errors.As(configErr, &notFound) {
		configErr = nil
	}
}

func getConfig() (*Config, error) {
	if configErr != nil {
		return nil, fmt.Errorf("reading config: %w", configErr)
	}

	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Download == nil {
		config.Download = &DownloadConfig{}
	}
	if config.Screening == nil {
		config.Screening = &ScreeningConfig{}
	}
	if config.Fetch == nil {
		config.Fetch = &FetchConfig{}
	}
	if config.Drive == nil {
		config.Drive = &DriveConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	config.Columns = config.Columns.WithDefaults()
	config.Screening.Criteria = config.Screening.Criteria.WithDefaults()

	return config, nil
}

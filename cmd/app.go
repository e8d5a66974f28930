package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/ai/gemini"
	"github.com/spigell/cv-screener/internal/fetch"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/secrets"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	quotaLedger = ".cv-screener-quota.json"
)

var errAborted = errors.New("aborted by user")

// env is what every stage needs: the parsed config, a logger tagged with the run ID
// and a context cancelled on SIGINT or SIGTERM.
type env struct {
	ctx    context.Context
	stop   context.CancelFunc
	config *Config
	logger *zap.Logger
}

func newEnv(parent context.Context) (*env, error) {
	log, err := logger.New(logger.Options{JSON: viper.GetBool("json"), Debug: viper.GetBool("debug")})
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, err
	}

	log = logger.WithFields(log, zap.String(logger.FieldRunID, uuid.NewString()))
	log.Info("starting the cv-screener", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)

	return &env{ctx: ctx, stop: stop, config: config, logger: log}, nil
}

func (e *env) close() {
	e.stop()
	_ = e.logger.Sync()
}

func (e *env) interactive() bool {
	return viper.GetBool("interactive")
}

// redacted returns a copy of config that is safe to log.
func redacted(config *Config) Config {
	c := *config
	if c.AI != nil && c.AI.Gemini != nil && c.AI.Gemini.APIKey != "" {
		aiConfig := *c.AI
		geminiConfig := *aiConfig.Gemini
		geminiConfig.APIKey = "***"
		aiConfig.Gemini = &geminiConfig
		c.AI = &aiConfig
	}
	if c.S3.SecretAccessKey != "" {
		c.S3.SecretAccessKey = "***"
	}
	return c
}

// newFetcher wires the document sources that are configured. The Drive fallback needs
// OAuth client credentials on disk and S3 needs an endpoint or keys.
func (e *env) newFetcher(transcriber ai.Transcriber) (*fetch.Fetcher, error) {
	cfg := e.config

	var drive fetch.DriveClient
	if _, err := os.Stat(cfg.Drive.CredentialsFile); err == nil {
		driveConfig := fetch.DriveConfig{
			CredentialsFile: cfg.Drive.CredentialsFile,
			TokenFile:       cfg.Drive.TokenFile,
		}
		if e.interactive() {
			driveConfig.AskCode = askAuthorizationCode
		}
		drive = fetch.NewDriveAPI(driveConfig, e.logger.With(zap.String("source", "drive")))
	} else {
		e.logger.Debug("drive api fallback disabled", zap.String("credentials", cfg.Drive.CredentialsFile))
	}

	var storage fetch.ObjectStorage
	if cfg.S3.Enabled() {
		client, err := fetch.NewS3Client(e.ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("creating s3 client: %w", err)
		}
		storage = client
	}

	return fetch.New(fetch.Options{
		BaseDir:     cfg.ResumesDir,
		MaxSize:     cfg.Fetch.MaxSize,
		Timeout:     cfg.Fetch.Timeout,
		Drive:       drive,
		Storage:     storage,
		Transcriber: transcriber,
		UserAgent:   cfg.Fetch.UserAgent,
		Logger:      e.logger.With(zap.String("component", "fetch")),
	}), nil
}

func (e *env) newJudge() (*gemini.Judge, error) {
	cfg := e.config.AI

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := e.resolveAPIKey()
	if err != nil {
		return nil, err
	}

	genLogger := logger.WithCommonFields(e.logger, "gemini", cfg.Gemini.Model).
		With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(e.ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewJudge(generator, e.config.Screening.Affirmative, cfg.Gemini.MaxLogLength, genLogger), nil
}

func (e *env) resolveAPIKey() (string, error) {
	gcfg := e.config.AI.Gemini

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  gcfg.APIKeyFile,
		Value: gcfg.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err == nil {
		return apiKey, nil
	}

	if !e.interactive() {
		return "", fmt.Errorf("%w (set GEMINI_API_KEY, ai.gemini.api-key-file or run with --interactive)", err)
	}

	prompt := promptui.Prompt{
		Label: "Gemini API key",
		Mask:  '*',
	}
	apiKey, err = prompt.Run()
	if err != nil {
		return "", fmt.Errorf("reading gemini api key: %w", err)
	}
	if apiKey = strings.TrimSpace(apiKey); apiKey == "" {
		return "", errors.New("gemini api key is required")
	}
	return apiKey, nil
}

func (e *env) quotaFile() string {
	if e.config.Download.QuotaFile != "" {
		return e.config.Download.QuotaFile
	}
	return filepath.Join(filepath.Dir(e.config.Updated), quotaLedger)
}

func askAuthorizationCode(authURL string) (string, error) {
	fmt.Printf("Open the following link in your browser and authorize read access to Google Drive:\n%s\n", authURL)

	prompt := promptui.Prompt{Label: "Authorization code"}
	return prompt.Run()
}

// confirm asks whether to continue. It returns errAborted on a negative answer.
func confirm(label string) error {
	prompt := promptui.Select{
		Label: label,
		Items: []string{PromptYes, PromptNo},
	}

	_, answer, err := prompt.Run()
	if err != nil {
		return err
	}
	if answer != PromptYes {
		return errAborted
	}
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func printJSON(v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/matching"
	"github.com/spigell/cv-screener/internal/pipeline"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/sheet"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen the downloaded resumes and write a verdict for every candidate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyFlags(cmd, screenFlags)

		e, err := newEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()

		fromInput, _ := cmd.Flags().GetBool("from-input")
		_, err = screen(e, autoApprove(cmd), fromInput)
		return err
	},
}

var screenFlags = map[string]string{
	"mode":     "screening.mode",
	"matching": "screening.matching",
}

func init() {
	rootCmd.AddCommand(screenCmd)

	addScreenFlags(screenCmd)
	screenCmd.Flags().Bool("from-input", false, "screen the input table when no updated table exists")
}

func addScreenFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before screening")
	cmd.Flags().String("mode", screening.ModeDual, "screening mode: dual or single")
	cmd.Flags().String("matching", matching.StrategyFuzzy, "how local files are matched to candidates: fuzzy or exact")
}

func autoApprove(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("auto-approve")
	return v
}

// screenSource picks the table to screen. A processed table means a previous run is
// being continued.
func screenSource(cfg *Config, fromInput bool) (string, error) {
	switch {
	case exists(cfg.Processed):
		return cfg.Processed, nil
	case exists(cfg.Updated):
		return cfg.Updated, nil
	case fromInput && exists(cfg.Input):
		return cfg.Input, nil
	}
	return "", fmt.Errorf("table %q not found, run the download first or pass --from-input", cfg.Updated)
}

func screen(e *env, skipConfirm, fromInput bool) (candidate.Summary, error) {
	cfg := e.config

	source, err := screenSource(cfg, fromInput)
	if err != nil {
		return candidate.Summary{}, err
	}

	store, err := sheet.Load(source, sheet.Options{
		Sheet:   cfg.Sheet,
		Output:  cfg.Processed,
		Columns: cfg.Columns,
		Logger:  e.logger,
	})
	if err != nil {
		return candidate.Summary{}, err
	}
	defer store.Close()

	before := store.Summarize()
	e.logger.Info("table loaded",
		zap.String("table", source),
		zap.Int("total", before.Total),
		zap.Int("processed", before.Processed),
		zap.Int("remaining", before.Remaining),
	)

	if before.Remaining == 0 {
		e.logger.Info("exiting", zap.String("reason", "every candidate already has a verdict"))
		return before, nil
	}

	if !skipConfirm {
		if err := confirm(fmt.Sprintf("Screen %d candidates?", before.Remaining)); err != nil {
			if errors.Is(err, errAborted) {
				e.logger.Info("exiting", zap.String("reason", "got no from prompt"))
				return before, nil
			}
			return before, err
		}
	}

	judge, err := e.newJudge()
	if err != nil {
		return before, err
	}

	classifier, err := screening.New(cfg.Screening.Mode, judge, cfg.Screening.Criteria, e.logger)
	if err != nil {
		return before, err
	}

	matcher, err := matching.New(cfg.Screening.Matching)
	if err != nil {
		return before, err
	}

	fetcher, err := e.newFetcher(judge)
	if err != nil {
		return before, err
	}

	e.logger.Info("starting screening",
		zap.String("mode", cfg.Screening.Mode),
		zap.Strings("gates", classifier.Gates()),
		zap.String("output", store.Output()),
	)

	runner := pipeline.NewRunner(
		store,
		pipeline.NewLocalResolver(cfg.ResumesDir, matcher, store.Records(), e.logger),
		fetcher,
		classifier,
		pipeline.Options{
			CheckpointEvery: cfg.Screening.CheckpointEvery,
			Delay:           cfg.Screening.Delay,
			Logger:          e.logger,
		},
	)

	return runner.Run(e.ctx)
}

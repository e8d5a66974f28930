package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/pipeline"
	"github.com/spigell/cv-screener/internal/sheet"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the resumes linked in the input table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyFlags(cmd, downloadFlags)

		e, err := newEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()

		_, err = download(e)
		return err
	},
}

// downloadFlags maps flags shared by several commands to their config keys.
var downloadFlags = map[string]string{
	"quota": "download.quota",
	"dir":   "resumes-dir",
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	addDownloadFlags(downloadCmd)
}

func addDownloadFlags(cmd *cobra.Command) {
	cmd.Flags().Int("quota", pipeline.DefaultDailyQuota, "maximum downloads per day, 0 disables the limit")
	cmd.Flags().String("dir", "cvs", "directory the resumes are stored in")
}

// applyFlags copies explicitly set flags into viper. Binding the same key to flags of
// several commands would let only the last binding win.
func applyFlags(cmd *cobra.Command, keys map[string]string) {
	for name, key := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag != nil && flag.Changed {
			viper.Set(key, flag.Value.String())
		}
	}
}

// download runs the download stage. It continues from the updated table when one exists.
func download(e *env) (pipeline.DownloadSummary, error) {
	cfg := e.config

	source := cfg.Input
	if exists(cfg.Updated) {
		e.logger.Info("found existing updated table, continuing from where it stopped", zap.String("table", cfg.Updated))
		source = cfg.Updated
	}
	if !exists(source) {
		return pipeline.DownloadSummary{}, fmt.Errorf("input table %q not found", source)
	}

	store, err := sheet.Load(source, sheet.Options{
		Sheet:   cfg.Sheet,
		Output:  cfg.Updated,
		Columns: cfg.Columns,
		Logger:  e.logger,
	})
	if err != nil {
		return pipeline.DownloadSummary{}, err
	}
	defer store.Close()

	fetcher, err := e.newFetcher(nil)
	if err != nil {
		return pipeline.DownloadSummary{}, err
	}

	quota, err := pipeline.LoadQuota(e.quotaFile(), cfg.Download.Quota, time.Now())
	if err != nil {
		return pipeline.DownloadSummary{}, err
	}
	e.logger.Info("starting downloads",
		zap.String("table", source),
		zap.String("dir", cfg.ResumesDir),
		zap.Int("quota_remaining", quota.Remaining()),
	)

	stage := pipeline.NewDownloadStage(store, fetcher, pipeline.DownloadOptions{
		Dir:        cfg.ResumesDir,
		MaxRetries: cfg.Download.MaxRetries,
		Quota:      quota,
		MinDelay:   cfg.Download.MinDelay,
		MaxDelay:   cfg.Download.MaxDelay,
		Logger:     e.logger,
	})

	summary, err := stage.Run(e.ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			e.logger.Warn("download interrupted, progress is saved up to the last finished row")
		}
		return summary, err
	}

	if summary.QuotaReached {
		e.logger.Warn("daily quota reached, run the download again tomorrow to continue")
	}

	// The screening stage expects the updated table even when nothing was downloaded.
	if err := store.Persist(); err != nil {
		return summary, err
	}

	return summary, nil
}

package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/matching"
	"github.com/spigell/cv-screener/internal/sheet"
	"github.com/spigell/cv-screener/internal/utils"
)

const DefaultDownloadRetries = 3

// DownloadStore is the record set of the download stage.
type DownloadStore interface {
	Records() []*candidate.Record
	SetDownload(rowID int, update sheet.DownloadUpdate) error
	Persist() error
}

// Downloader saves the document behind a reference into dir and returns the file name.
type Downloader interface {
	Download(ctx context.Context, reference, dir, baseName string) (string, error)
}

type DownloadOptions struct {
	// Dir receives the downloaded resumes.
	Dir        string
	MaxRetries int
	// Quota limits downloads per day. Nil means unlimited.
	Quota    *Quota
	MinDelay time.Duration
	MaxDelay time.Duration
	Logger   *zap.Logger
}

// DownloadSummary reports what a download run did.
type DownloadSummary struct {
	Attempted    int  `json:"attempted"`
	Succeeded    int  `json:"succeeded"`
	Retrying     int  `json:"retrying"`
	Failed       int  `json:"failed"`
	Skipped      int  `json:"skipped"`
	QuotaReached bool `json:"quota_reached"`
}

// DownloadStage stores remote resumes locally and tracks the outcome per row.
type DownloadStage struct {
	store      DownloadStore
	downloader Downloader
	opts       DownloadOptions
	logger     *zap.Logger
}

func NewDownloadStage(store DownloadStore, downloader Downloader, opts DownloadOptions) *DownloadStage {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultDownloadRetries
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &DownloadStage{store: store, downloader: downloader, opts: opts, logger: opts.Logger}
}

// Run downloads every pending record and saves the table after each one.
// Reaching the daily quota ends the run early without an error.
func (d *DownloadStage) Run(ctx context.Context) (DownloadSummary, error) {
	var summary DownloadSummary

	for _, rec := range d.store.Records() {
		if !d.pending(rec) {
			summary.Skipped++
			continue
		}

		if d.opts.Quota != nil && !d.opts.Quota.Allow() {
			summary.QuotaReached = true
			d.logger.Warn("daily download quota reached, stopping")
			break
		}

		if summary.Attempted > 0 {
			if err := utils.WaitFor(ctx, utils.RandomDuration(d.opts.MinDelay, d.opts.MaxDelay)); err != nil {
				return summary, err
			}
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Attempted++
		if err := d.download(ctx, rec, &summary); err != nil {
			return summary, err
		}
	}

	d.logger.Info("downloads finished",
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("retrying", summary.Retrying),
		zap.Int("failed", summary.Failed),
		zap.Bool("quota_reached", summary.QuotaReached),
	)

	return summary, nil
}

func (d *DownloadStage) download(ctx context.Context, rec *candidate.Record, summary *DownloadSummary) error {
	log := d.logger.With(logger.RecordFields(rec)...)
	log.Info("downloading resume")

	name, err := d.downloader.Download(ctx, rec.ResumeReference, d.opts.Dir, matching.FileStem(rec))
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if d.opts.Quota != nil {
		if err := d.opts.Quota.Use(); err != nil {
			return err
		}
	}

	update := sheet.DownloadUpdate{RetryCount: rec.RetryCount}
	if err == nil {
		update.FileName = name
		update.Status = candidate.DownloadSuccess
		summary.Succeeded++
		log.Info("resume downloaded", zap.String("file", name))
	} else {
		update.RetryCount++
		update.ErrorMessage = err.Error()
		update.Status = candidate.DownloadRetry
		if update.RetryCount >= d.opts.MaxRetries {
			update.Status = candidate.DownloadFailed
			summary.Failed++
		} else {
			summary.Retrying++
		}
		log.Warn("download failed",
			zap.Int("retry_count", update.RetryCount),
			zap.String("status", string(update.Status)),
			zap.Error(err),
		)
	}

	if err := d.store.SetDownload(rec.RowID, update); err != nil {
		return err
	}
	if err := d.store.Persist(); err != nil {
		return fmt.Errorf("persist row %d: %w", rec.RowID, err)
	}
	return nil
}

// pending reports whether a record still needs its resume downloaded.
func (d *DownloadStage) pending(rec *candidate.Record) bool {
	switch rec.DownloadStatus {
	case candidate.DownloadSuccess, candidate.DownloadFailed:
		return false
	case candidate.DownloadUnset:
		// Tables written before statuses existed only carry the file name.
		if rec.FileName != "" {
			return false
		}
	}

	if rec.RetryCount >= d.opts.MaxRetries {
		return false
	}
	return isRemote(rec.ResumeReference)
}

func isRemote(reference string) bool {
	lower := strings.ToLower(strings.TrimSpace(reference))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "s3://")
}

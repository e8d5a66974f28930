package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/candidate"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/utils"
)

const (
	DefaultCheckpointEvery = 5
	DefaultDelay           = 100 * time.Millisecond
)

// Store is the record set the runner works on.
type Store interface {
	Records() []*candidate.Record
	SetVerdict(rowID int, verdict candidate.Verdict) error
	Persist() error
	Summarize() candidate.Summary
}

// Fetcher turns a resume reference into text.
type Fetcher interface {
	Fetch(ctx context.Context, reference string) (string, error)
}

// Classifier decides on a resume text.
type Classifier interface {
	Classify(ctx context.Context, text string) (candidate.Verdict, []screening.Outcome)
}

// Resolver picks the reference the fetcher should read for a record.
type Resolver interface {
	Resolve(r *candidate.Record) (string, error)
}

type Options struct {
	// CheckpointEvery is the number of successes between saves.
	CheckpointEvery int
	// Delay is observed after every classified record. Zero disables it.
	Delay  time.Duration
	Logger *zap.Logger
}

// Runner screens every unprocessed record of a store, one at a time.
type Runner struct {
	store      Store
	resolver   Resolver
	fetcher    Fetcher
	classifier Classifier

	every  int
	delay  time.Duration
	logger *zap.Logger
}

func NewRunner(store Store, resolver Resolver, fetcher Fetcher, classifier Classifier, opts Options) *Runner {
	every := opts.CheckpointEvery
	if every <= 0 {
		every = DefaultCheckpointEvery
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Runner{
		store:      store,
		resolver:   resolver,
		fetcher:    fetcher,
		classifier: classifier,
		every:      every,
		delay:      opts.Delay,
		logger:     log,
	}
}

// Run processes records in load order and skips the ones that already have a verdict.
// Errors on a record are written as Erro and saved right away. A cancelled context
// stops the run without recording the record in flight.
func (r *Runner) Run(ctx context.Context) (candidate.Summary, error) {
	unsaved := 0

	for _, rec := range r.store.Records() {
		if rec.Verdict.IsSet() {
			continue
		}

		if ctx.Err() != nil {
			return r.interrupt(ctx)
		}

		log := r.logger.With(logger.RecordFields(rec)...)
		log.Info("processing candidate")

		verdict, err := r.process(ctx, rec)
		if ctx.Err() != nil {
			return r.interrupt(ctx)
		}

		if err != nil {
			log.Warn("candidate failed", zap.Error(err))
			if err := r.store.SetVerdict(rec.RowID, candidate.VerdictError); err != nil {
				return r.store.Summarize(), err
			}
			if err := r.store.Persist(); err != nil {
				return r.store.Summarize(), fmt.Errorf("persist after error on row %d: %w", rec.RowID, err)
			}
			unsaved = 0
			continue
		}

		if err := r.store.SetVerdict(rec.RowID, verdict); err != nil {
			return r.store.Summarize(), err
		}
		log.Info("candidate classified", zap.String("verdict", verdict.String()))

		unsaved++
		if unsaved >= r.every {
			if err := r.store.Persist(); err != nil {
				return r.store.Summarize(), fmt.Errorf("checkpoint: %w", err)
			}
			unsaved = 0
		}

		if err := utils.WaitFor(ctx, r.delay); err != nil {
			return r.interrupt(ctx)
		}
	}

	if unsaved > 0 {
		if err := r.store.Persist(); err != nil {
			return r.store.Summarize(), fmt.Errorf("final persist: %w", err)
		}
	}

	summary := r.store.Summarize()
	r.logger.Info("screening finished",
		zap.Int("total", summary.Total),
		zap.Int("approved", summary.Approved),
		zap.Int("rejected", summary.Rejected),
		zap.Int("errors", summary.Errors),
		zap.Int("remaining", summary.Remaining),
	)

	return summary, nil
}

// process isolates one record: panics become errors so the loop can move on.
func (r *Runner) process(ctx context.Context, rec *candidate.Record) (verdict candidate.Verdict, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	reference, err := r.resolver.Resolve(rec)
	if err != nil {
		return candidate.VerdictUnset, err
	}

	text, err := r.fetcher.Fetch(ctx, reference)
	if err != nil {
		return candidate.VerdictUnset, err
	}

	verdict, outcomes := r.classifier.Classify(ctx, text)
	for _, o := range outcomes {
		r.logger.Debug("gate outcome",
			zap.Int(logger.FieldRow, rec.RowID),
			zap.String("gate", o.Gate),
			zap.Bool("pass", o.Pass),
			zap.String("reason", o.Reason),
		)
	}

	if !verdict.IsSet() {
		return candidate.VerdictUnset, errors.New("classifier returned no verdict")
	}
	return verdict, nil
}

func (r *Runner) interrupt(ctx context.Context) (candidate.Summary, error) {
	r.logger.Warn("interrupted, saving progress")
	if err := r.store.Persist(); err != nil {
		r.logger.Error("could not save progress", zap.Error(err))
	}
	return r.store.Summarize(), ctx.Err()
}

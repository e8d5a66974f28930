package screening

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/candidate"
)

const (
	// ModeDual runs the eligibility gate first and the experience gate only if it passes.
	ModeDual = "dual"
	// ModeSingle asks the whole rubric in one request.
	ModeSingle = "single"
)

// Classifier runs gates in order and stops at the first failing one.
type Classifier struct {
	gates  []Gate
	logger *zap.Logger
}

func NewClassifier(logger *zap.Logger, gates ...Gate) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{gates: gates, logger: logger}
}

// New builds the classifier for the given mode.
func New(mode string, judge ai.Judge, criteria Criteria, logger *zap.Logger) (*Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeDual:
		return NewClassifier(logger,
			NewEligibilityGate(judge, criteria, logger),
			NewExperienceGate(judge, criteria, logger),
		), nil
	case ModeSingle:
		return NewClassifier(logger, NewCriteriaGate(judge, criteria, logger)), nil
	default:
		return nil, fmt.Errorf("unsupported screening mode: %s", mode)
	}
}

// Classify returns Approved only when every gate passes. Gates after the first
// failure are not invoked.
func (c *Classifier) Classify(ctx context.Context, text string) (candidate.Verdict, []Outcome) {
	if len(c.gates) == 0 {
		return candidate.VerdictRejected, nil
	}

	outcomes := make([]Outcome, 0, len(c.gates))
	for _, gate := range c.gates {
		outcome := gate.Check(ctx, text)
		outcomes = append(outcomes, outcome)

		c.logger.Debug("gate checked",
			zap.String("gate", gate.Name()),
			zap.Bool("pass", outcome.Pass),
			zap.String("reason", outcome.Reason),
		)

		if !outcome.Pass {
			return candidate.VerdictRejected, outcomes
		}
	}

	return candidate.VerdictApproved, outcomes
}

// Gates returns the gate names in evaluation order.
func (c *Classifier) Gates() []string {
	names := make([]string, 0, len(c.gates))
	for _, gate := range c.gates {
		names = append(names, gate.Name())
	}
	return names
}

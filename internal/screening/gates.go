package screening

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
)

const (
	GateEligibility = "eligibility"
	GateExperience  = "experience"
	GateCriteria    = "criteria"
)

var (
	//go:embed prompts/system.md
	systemInstruction string
	//go:embed prompts/eligibility.md
	eligibilityTemplate string
	//go:embed prompts/experience.md
	experienceTemplate string
	//go:embed prompts/criteria.md
	criteriaTemplate string
)

// Outcome is the result of a single gate check.
type Outcome struct {
	Gate   string
	Pass   bool
	Reason string
	Raw    string
}

// Gate is one yes/no check a resume must pass.
type Gate interface {
	Name() string
	Check(ctx context.Context, text string) Outcome
}

type promptGate struct {
	name       string
	template   string
	criteria   Criteria
	judge      ai.Judge
	passReason string
	failReason string
	logger     *zap.Logger
}

// NewEligibilityGate checks current enrollment at a public university.
func NewEligibilityGate(judge ai.Judge, criteria Criteria, logger *zap.Logger) Gate {
	return newPromptGate(GateEligibility, eligibilityTemplate, judge, criteria, logger,
		"candidato atende aos critérios universitários",
		"candidato não atende aos critérios universitários",
	)
}

// NewExperienceGate checks research experience or employment at a recognized company.
func NewExperienceGate(judge ai.Judge, criteria Criteria, logger *zap.Logger) Gate {
	return newPromptGate(GateExperience, experienceTemplate, judge, criteria, logger,
		"candidato atende aos critérios de experiência",
		"candidato não atende aos critérios de experiência",
	)
}

// NewCriteriaGate checks the whole rubric with a single request.
func NewCriteriaGate(judge ai.Judge, criteria Criteria, logger *zap.Logger) Gate {
	return newPromptGate(GateCriteria, criteriaTemplate, judge, criteria, logger,
		"candidato atende a todos os critérios",
		"candidato não atende a pelo menos um critério",
	)
}

func newPromptGate(name, template string, judge ai.Judge, criteria Criteria, logger *zap.Logger, pass, fail string) *promptGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &promptGate{
		name:       name,
		template:   template,
		criteria:   criteria.WithDefaults(),
		judge:      judge,
		passReason: pass,
		failReason: fail,
		logger:     logger.With(zap.String("gate", name)),
	}
}

func (g *promptGate) Name() string { return g.name }

// Check never fails: call errors and replies without the affirmative token are negative outcomes.
func (g *promptGate) Check(ctx context.Context, text string) Outcome {
	if g.judge == nil {
		return Outcome{Gate: g.name, Reason: "judge is not configured"}
	}

	answer, err := g.judge.Ask(ctx, systemInstruction, g.prompt(text))
	if err != nil {
		g.logger.Warn("gate check failed", zap.Error(err))
		return Outcome{Gate: g.name, Reason: fmt.Sprintf("erro na análise: %v", err)}
	}

	if answer == nil || !answer.Affirmative {
		raw := ""
		if answer != nil {
			raw = answer.Raw
		}
		return Outcome{Gate: g.name, Reason: g.failReason, Raw: raw}
	}

	return Outcome{Gate: g.name, Pass: true, Reason: g.passReason, Raw: answer.Raw}
}

func (g *promptGate) prompt(text string) string {
	prompt := strings.TrimSpace(g.template)
	for placeholder, value := range g.criteria.placeholders() {
		prompt = strings.ReplaceAll(prompt, placeholder, value)
	}
	// Resume text goes in last so placeholders inside it stay untouched.
	return strings.ReplaceAll(prompt, "{{RESUME}}", strings.TrimSpace(text))
}

package gemini

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

//go:embed transcribe.md
var transcribeInstruction string

const defaultMaxLogLength = 200

// Judge answers yes/no rubric questions and transcribes documents through Gemini.
type Judge struct {
	generator   contentGenerator
	affirmative string
	logger      *zap.Logger
	maxLogLen   int
}

func NewJudge(generator contentGenerator, affirmative string, maxLogLength int, logger *zap.Logger) *Judge {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if strings.TrimSpace(affirmative) == "" {
		affirmative = ai.DefaultAffirmative
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Judge{
		generator:   generator,
		affirmative: affirmative,
		logger:      logger,
		maxLogLen:   maxLogLength,
	}
}

// Ask sends the prompt and reports whether the reply contains the affirmative token.
func (j *Judge) Ask(ctx context.Context, instruction, prompt string) (*ai.Answer, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt must not be empty")
	}

	j.logger.Debug("gemini judgment request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, j.maxLogLen)),
	)

	raw, err := j.generator.GenerateContent(ctx, instruction, prompt)
	if err != nil {
		return nil, err
	}

	answer := &ai.Answer{
		Affirmative: ai.ContainsAffirmative(raw, j.affirmative),
		Raw:         raw,
	}

	j.logger.Debug("gemini judgment response",
		zap.Bool("affirmative", answer.Affirmative),
		zap.String("response_preview", utils.TruncateForLog(raw, j.maxLogLen)),
	)

	return answer, nil
}

// Transcribe asks the model to return the plain text of a loosely decoded document.
func (j *Judge) Transcribe(ctx context.Context, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errors.New("document content is empty")
	}

	text, err := j.generator.GenerateContent(ctx, transcribeInstruction, "Conteúdo do documento:\n"+content)
	if err != nil {
		return "", err
	}

	j.logger.Debug("gemini transcription",
		zap.Int("input_length", utf8.RuneCountInString(content)),
		zap.Int("output_length", utf8.RuneCountInString(text)),
	)

	return text, nil
}

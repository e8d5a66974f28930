package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type stubGenerator struct {
	response    string
	err         error
	lastSystem  string
	lastMessage string
	calls       int
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.calls++
	s.lastSystem = system
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestJudgeAsk(t *testing.T) {
	tests := []struct {
		name     string
		response string
		token    string
		expect   bool
	}{
		{name: "plain yes", response: "Sim", expect: true},
		{name: "yes inside sentence", response: "Resposta final: SIM", expect: true},
		{name: "no", response: "Não", expect: false},
		{name: "ambiguous reply is a no", response: "Talvez, depende.", expect: false},
		{name: "custom token", response: "YES", token: "yes", expect: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubGenerator{response: tt.response}
			judge := NewJudge(stub, tt.token, 0, zap.NewNop())

			answer, err := judge.Ask(context.Background(), "system", "prompt")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if answer.Affirmative != tt.expect {
				t.Fatalf("expected affirmative=%v for %q", tt.expect, tt.response)
			}

			if answer.Raw != tt.response {
				t.Fatalf("expected raw reply to be kept, got %q", answer.Raw)
			}

			if stub.lastSystem != "system" || stub.lastMessage != "prompt" {
				t.Fatalf("unexpected request: %q / %q", stub.lastSystem, stub.lastMessage)
			}
		})
	}
}

func TestJudgeAskPropagatesErrors(t *testing.T) {
	stub := &stubGenerator{err: errors.New("boom")}
	judge := NewJudge(stub, "", 0, nil)

	if _, err := judge.Ask(context.Background(), "", "prompt"); err == nil {
		t.Fatal("expected error")
	}

	if _, err := judge.Ask(context.Background(), "", "   "); err == nil {
		t.Fatal("expected error for empty prompt")
	}

	if stub.calls != 1 {
		t.Fatalf("expected empty prompt to be rejected before calling the model, got %d calls", stub.calls)
	}
}

func TestJudgeTranscribe(t *testing.T) {
	stub := &stubGenerator{response: "Maria Silva\nUFMG"}
	judge := NewJudge(stub, "", 0, zap.NewNop())

	text, err := judge.Transcribe(context.Background(), "  raw bytes  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text != "Maria Silva\nUFMG" {
		t.Fatalf("unexpected text: %q", text)
	}

	if !strings.Contains(stub.lastSystem, "currículo") {
		t.Fatalf("expected transcription instruction, got %q", stub.lastSystem)
	}

	if !strings.HasSuffix(stub.lastMessage, "raw bytes") {
		t.Fatalf("expected content to be sent, got %q", stub.lastMessage)
	}

	if _, err := judge.Transcribe(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty content")
	}
}

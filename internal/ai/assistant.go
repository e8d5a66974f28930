package ai

import (
	"context"
	"strings"
)

// DefaultAffirmative is the token a judgment reply must contain to count as a yes.
const DefaultAffirmative = "sim"

// Answer is the interpreted reply of a yes/no judgment request.
type Answer struct {
	Affirmative bool
	Raw         string
}

// Judge asks a yes/no question about a document.
type Judge interface {
	Ask(ctx context.Context, instruction, prompt string) (*Answer, error)
}

// Transcriber turns raw document content into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, content string) (string, error)
}

// ContainsAffirmative reports whether reply contains token anywhere, ignoring case.
// Anything else, including an empty token, is a no.
func ContainsAffirmative(reply, token string) bool {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return false
	}
	return strings.Contains(strings.ToLower(reply), token)
}

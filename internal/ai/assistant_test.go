package ai

import "testing"

func TestContainsAffirmative(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reply  string
		token  string
		expect bool
	}{
		{reply: "Sim", token: "sim", expect: true},
		{reply: "  SIM.\n", token: "sim", expect: true},
		{reply: "Resposta: sim, atende", token: "Sim", expect: true},
		{reply: "Não", token: "sim", expect: false},
		{reply: "", token: "sim", expect: false},
		{reply: "yes", token: "sim", expect: false},
		{reply: "Sim", token: " ", expect: false},
	}

	for _, tt := range tests {
		if got := ContainsAffirmative(tt.reply, tt.token); got != tt.expect {
			t.Fatalf("ContainsAffirmative(%q, %q): expected %v, got %v", tt.reply, tt.token, tt.expect, got)
		}
	}
}

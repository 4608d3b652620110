package chunk

import (
	"strings"
	"testing"
)

func TestSplit_Short(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    []string
	}{
		{
			name:    "empty",
			message: "",
			want:    nil,
		},
		{
			name:    "whitespace only",
			message: "   ",
			want:    nil,
		},
		{
			name:    "short message",
			message: "Olá, tudo bem?",
			want:    []string{"Olá, tudo bem?"},
		},
		{
			name:    "exactly at limit",
			message: strings.Repeat("a", MaxSize),
			want:    []string{strings.Repeat("a", MaxSize)},
		},
		{
			name:    "trims surrounding whitespace",
			message: "  mensagem  ",
			want:    []string{"mensagem"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.message)
			if len(got) != len(tt.want) {
				t.Fatalf("Split() = %d chunks, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplit_WordBoundary(t *testing.T) {
	word := strings.Repeat("x", 30)
	message := strings.TrimSpace(strings.Repeat(word+" ", 20)) // 20 words, ~620 chars

	chunks := Split(message)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if n := len([]rune(c)); n > MaxSize {
			t.Errorf("chunk[%d] has %d runes, exceeds %d", i, n, MaxSize)
		}
		// No chunk may split a word
		for _, w := range strings.Fields(c) {
			if len(w) != 30 {
				t.Errorf("chunk[%d] contains broken word %q", i, w)
			}
		}
	}
}

func TestSplit_HardCutLongWord(t *testing.T) {
	message := strings.Repeat("b", 450)

	chunks := Split(message)
	if len(chunks) != 3 {
		t.Fatalf("Split() = %d chunks, want 3", len(chunks))
	}
	if len(chunks[0]) != MaxSize || len(chunks[1]) != MaxSize || len(chunks[2]) != 50 {
		t.Errorf("chunk sizes = %d/%d/%d, want 200/200/50", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	messages := []string{
		"Oi Maria, vi que a sua empresa trabalha com confeitaria artesanal e achei o catálogo de vocês muito bonito. A gente ajuda negócios como o seu a organizar o atendimento no WhatsApp sem perder nenhuma venda.",
		strings.TrimSpace(strings.Repeat("palavra ", 120)),
		"Açaí é ótimo! " + strings.TrimSpace(strings.Repeat("çãõé ", 100)),
	}

	for _, msg := range messages {
		chunks := Split(msg)
		joined := strings.Join(chunks, " ")
		if joined != msg {
			t.Errorf("round trip mismatch:\n got %q\nwant %q", joined, msg)
		}
		for i, c := range chunks {
			if n := len([]rune(c)); n > MaxSize {
				t.Errorf("chunk[%d] has %d runes, exceeds %d", i, n, MaxSize)
			}
		}
	}
}

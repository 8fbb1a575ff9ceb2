package app

import (
	"strings"
	"testing"

	"mirror/internal/types"
)

func TestEscapeMarkdownNeutralizesBlockSyntax(t *testing.T) {
	cases := map[string]string{
		"# not a heading":  "\\# not a heading",
		"> not a quote":    "\\> not a quote",
		"- not a bullet":   "\\- not a bullet",
		"1. not a list":    "\\1. not a list",
		"plain text":       "plain text",
		"run `ls` please":  "run \\`ls\\` please",
		"  - indented":     "  \\- indented",
		"10. double digit": "\\10. double digit",
	}
	for input, want := range cases {
		if got := escapeMarkdown(input); got != want {
			t.Fatalf("escapeMarkdown(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestUserMessageRendersLiterally(t *testing.T) {
	out := plainTranscript(transcriptInput{
		Messages: []*types.Message{
			{ID: "u1", Kind: types.MessageKindUser, Content: "# deploy plan\nrun `make deploy` now"},
		},
		Width: 80,
	})
	if !strings.Contains(out, "# deploy plan") {
		t.Fatalf("leading hash should survive as typed:\n%s", out)
	}
	if !strings.Contains(out, "`make deploy`") {
		t.Fatalf("backticks should survive as typed:\n%s", out)
	}
}

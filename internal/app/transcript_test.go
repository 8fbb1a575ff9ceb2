package app

import (
	"strings"
	"testing"
	"time"

	xansi "github.com/charmbracelet/x/ansi"

	"mirror/internal/types"
)

func plainTranscript(in transcriptInput) string {
	return xansi.Strip(renderTranscript(in))
}

func TestRenderTranscriptFlatShowsMessages(t *testing.T) {
	out := plainTranscript(transcriptInput{
		Messages: []*types.Message{
			{ID: "u1", Kind: types.MessageKindUser, Content: "hello there"},
			{ID: "a1", Kind: types.MessageKindAssistant, Content: "general reply"},
		},
		Width: 80,
	})
	if !strings.Contains(out, "hello there") {
		t.Fatalf("user content missing from output:\n%s", out)
	}
	if !strings.Contains(out, "general reply") {
		t.Fatalf("assistant content missing from output:\n%s", out)
	}
	if !strings.Contains(out, "you") || !strings.Contains(out, "assistant") {
		t.Fatalf("kind labels missing from output:\n%s", out)
	}
}

func TestRenderTranscriptGroupedShowsTurnHeaders(t *testing.T) {
	anchor := &types.Message{ID: "u1", Kind: types.MessageKindUser, Content: "first question"}
	reply := &types.Message{ID: "a1", Kind: types.MessageKindAssistant, Content: "first answer", InProgress: true}
	out := plainTranscript(transcriptInput{
		Messages: []*types.Message{anchor, reply},
		Turns: []*types.Turn{
			{ID: types.TurnID("u1"), Anchor: anchor, Messages: []*types.Message{anchor, reply}, Current: true, DiffStat: "+12 -3"},
		},
		Grouped: true,
		Width:   80,
	})
	if !strings.Contains(out, "first question") {
		t.Fatalf("turn header excerpt missing:\n%s", out)
	}
	if !strings.Contains(out, "[streaming]") {
		t.Fatalf("current turn marker missing:\n%s", out)
	}
	if !strings.Contains(out, "+12 -3") {
		t.Fatalf("diff stat missing:\n%s", out)
	}
}

func TestRenderTranscriptGroupedFallsBackToFlat(t *testing.T) {
	out := plainTranscript(transcriptInput{
		Messages: []*types.Message{
			{ID: "u1", Kind: types.MessageKindUser, Content: "still visible"},
		},
		Turns:   nil,
		Grouped: true,
		Width:   80,
	})
	if !strings.Contains(out, "still visible") {
		t.Fatalf("grouped mode with no turns should render flat, got:\n%s", out)
	}
}

func TestRenderTranscriptHiddenNotice(t *testing.T) {
	out := plainTranscript(transcriptInput{
		Messages: []*types.Message{
			{ID: "u9", Kind: types.MessageKindUser, Content: "latest"},
		},
		Width:  80,
		Hidden: 42,
	})
	if !strings.Contains(out, "42 earlier message(s)") {
		t.Fatalf("hidden-message notice missing:\n%s", out)
	}
}

func TestRenderTranscriptSelectionMarker(t *testing.T) {
	out := plainTranscript(transcriptInput{
		Messages: []*types.Message{
			{ID: "u1", Kind: types.MessageKindUser, Content: "pick me"},
			{ID: "u2", Kind: types.MessageKindUser, Content: "not me"},
		},
		Width:      80,
		SelectedID: "u1",
	})
	lines := strings.Split(out, "\n")
	marked := 0
	for _, line := range lines {
		if strings.Contains(line, "▶") {
			marked++
		}
	}
	if marked != 1 {
		t.Fatalf("expected exactly one selection marker, got %d:\n%s", marked, out)
	}
}

func TestRenderTranscriptToolMetadata(t *testing.T) {
	out := plainTranscript(transcriptInput{
		Messages: []*types.Message{
			{
				ID:           "t1",
				Kind:         types.MessageKindTool,
				ToolName:     "grep",
				ToolOutput:   "match one\nmatch two",
				ToolDuration: 250 * time.Millisecond,
			},
		},
		Width: 80,
	})
	if !strings.Contains(out, "tool · grep") {
		t.Fatalf("tool name missing from meta line:\n%s", out)
	}
	if !strings.Contains(out, "250ms") {
		t.Fatalf("tool duration missing from meta line:\n%s", out)
	}
	if !strings.Contains(out, "match one") {
		t.Fatalf("tool output missing:\n%s", out)
	}
}

func TestPreviewLinesTruncatesLongOutput(t *testing.T) {
	text := strings.Repeat("line\n", 20)
	out := previewLines(text, 3, 40)
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 3 kept lines plus ellipsis, got %d", len(lines))
	}
	if !strings.Contains(lines[3], "more lines") {
		t.Fatalf("ellipsis line missing: %q", lines[3])
	}
}

func TestRenderTranscriptThinkingPreview(t *testing.T) {
	out := plainTranscript(transcriptInput{
		Messages: []*types.Message{
			{ID: "th1", Kind: types.MessageKindThinking, Thinking: "pondering deeply"},
		},
		Width: 80,
	})
	if !strings.Contains(out, "pondering deeply") {
		t.Fatalf("thinking preview missing:\n%s", out)
	}
	if !strings.Contains(out, "thinking") {
		t.Fatalf("thinking label missing:\n%s", out)
	}
}

func TestRenderTranscriptImagesAnnotated(t *testing.T) {
	out := plainTranscript(transcriptInput{
		Messages: []*types.Message{
			{
				ID:      "u1",
				Kind:    types.MessageKindUser,
				Content: "see attached",
				Images:  []types.Image{{MediaType: "image/png", Data: []byte("abcd")}},
			},
		},
		Width: 80,
	})
	if !strings.Contains(out, "[image image/png, 4 bytes]") {
		t.Fatalf("image annotation missing:\n%s", out)
	}
}

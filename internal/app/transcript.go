package app

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"mirror/internal/types"
)

const (
	thinkingPreviewLines   = 3
	toolOutputPreviewLines = 6
	turnExcerptWidth       = 48
	streamingMark          = "▌"
)

type transcriptInput struct {
	Messages   []*types.Message
	Turns      []*types.Turn
	Grouped    bool
	Width      int
	Hidden     int
	SelectedID string
}

// renderTranscript produces the viewport body for the visible window. In
// grouped mode an empty turn list with a non-empty window falls back to the
// flat layout so the pane never goes blank mid-refresh.
func renderTranscript(in transcriptInput) string {
	width := in.Width
	if width <= 0 {
		width = 80
	}
	var lines []string
	if in.Hidden > 0 {
		notice := fmt.Sprintf("… %d earlier message(s), press m to load more", in.Hidden)
		lines = append(lines, helpStyle.Render(notice), "")
	}
	if in.Grouped && len(in.Turns) > 0 {
		for _, turn := range in.Turns {
			lines = append(lines, renderTurn(turn, width, in.SelectedID)...)
		}
	} else {
		for _, msg := range in.Messages {
			lines = append(lines, renderMessageBlock(msg, width, msg.ID == in.SelectedID)...)
		}
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func renderTurn(turn *types.Turn, width int, selectedID string) []string {
	if turn == nil || len(turn.Messages) == 0 {
		return nil
	}
	lines := []string{turnHeader(turn, width), ""}
	for _, msg := range turn.Messages {
		lines = append(lines, renderMessageBlock(msg, width, msg.ID == selectedID)...)
	}
	return lines
}

func turnHeader(turn *types.Turn, width int) string {
	excerpt := ""
	if turn.Anchor != nil {
		excerpt = firstLine(turn.Anchor.Content)
		excerpt = runewidth.Truncate(excerpt, turnExcerptWidth, "…")
	}
	label := "─ " + excerpt + " "
	if excerpt == "" {
		label = "─ (session start) "
	}
	styled := turnHeaderStyle.Render(label)
	if turn.Current {
		styled += currentTurnStyle.Render("[streaming] ")
	}
	if turn.DiffStat != "" {
		styled += turnDiffStyle.Render(turn.DiffStat + " ")
	}
	fill := width - xansi.StringWidth(styled)
	if fill > 0 {
		styled += dividerStyle.Render(strings.Repeat("─", fill))
	}
	return styled
}

func renderMessageBlock(msg *types.Message, width int, selected bool) []string {
	if msg == nil {
		return nil
	}
	innerWidth := width - 4
	if innerWidth < 10 {
		innerWidth = 10
	}

	meta := messageMetaLine(msg)
	if selected {
		meta = selectedMetaStyle.Render("▶ " + meta)
	} else {
		meta = metaStyle.Render("  " + meta)
	}

	body := messageBody(msg, innerWidth)
	if body == "" && len(msg.Images) == 0 {
		return nil
	}
	style := bubbleStyle(msg.Kind)
	bubble := style.Width(innerWidth).Render(body)

	lines := []string{meta}
	lines = append(lines, strings.Split(bubble, "\n")...)
	for _, img := range msg.Images {
		label := fmt.Sprintf("[image %s, %d bytes]", img.MediaType, len(img.Data))
		lines = append(lines, metaStyle.Render("  "+label))
	}
	lines = append(lines, "")
	return lines
}

func messageBody(msg *types.Message, innerWidth int) string {
	switch msg.Kind {
	case types.MessageKindUser, types.MessageKindSteer:
		// User-authored text is escaped so a message starting with "#"
		// or "-" reads back exactly as typed.
		return renderMarkdown(escapeMarkdown(msg.Content), innerWidth)
	case types.MessageKindAssistant:
		body := renderMarkdown(msg.Content, innerWidth)
		if msg.InProgress {
			if body != "" {
				body += " "
			}
			body += streamingMarkStyle.Render(streamingMark)
		}
		return body
	case types.MessageKindThinking:
		return previewLines(msg.Thinking, thinkingPreviewLines, innerWidth)
	case types.MessageKindTool:
		return toolBody(msg, innerWidth)
	case types.MessageKindShell:
		return xansi.Hardwrap(strings.TrimRight(msg.Content, "\n"), innerWidth, true)
	default:
		return xansi.Hardwrap(strings.TrimRight(msg.Content, "\n"), innerWidth, true)
	}
}

func toolBody(msg *types.Message, innerWidth int) string {
	var b strings.Builder
	if msg.Content != "" {
		b.WriteString(xansi.Hardwrap(strings.TrimRight(msg.Content, "\n"), innerWidth, true))
	}
	if msg.ToolOutput != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(previewLines(msg.ToolOutput, toolOutputPreviewLines, innerWidth))
	}
	if msg.InProgress {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(streamingMarkStyle.Render("running " + streamingMark))
	}
	return b.String()
}

func messageMetaLine(msg *types.Message) string {
	label := kindLabel(msg)
	if msg.Kind == types.MessageKindAssistant && (msg.InputTokens > 0 || msg.OutputTokens > 0) {
		label += fmt.Sprintf(" · in %d / out %d tok", msg.InputTokens, msg.OutputTokens)
	}
	if msg.Kind == types.MessageKindTool && msg.ToolDuration > 0 {
		label += " · " + formatToolDuration(msg.ToolDuration)
	}
	return label
}

func kindLabel(msg *types.Message) string {
	switch msg.Kind {
	case types.MessageKindUser:
		return "you"
	case types.MessageKindAssistant:
		return "assistant"
	case types.MessageKindThinking:
		return "thinking"
	case types.MessageKindTool:
		if msg.ToolName != "" {
			return "tool · " + msg.ToolName
		}
		return "tool"
	case types.MessageKindSteer:
		return "steer"
	case types.MessageKindShell:
		return "shell"
	}
	return string(msg.Kind)
}

func formatToolDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func previewLines(text string, maxLines, innerWidth int) string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return ""
	}
	wrapped := xansi.Hardwrap(text, innerWidth, true)
	lines := strings.Split(wrapped, "\n")
	if len(lines) <= maxLines {
		return wrapped
	}
	kept := lines[:maxLines]
	omitted := len(lines) - maxLines
	kept = append(kept, fmt.Sprintf("… (%d more lines)", omitted))
	return strings.Join(kept, "\n")
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

func bubbleStyle(kind types.MessageKind) lipgloss.Style {
	switch kind {
	case types.MessageKindUser:
		return userBubbleStyle
	case types.MessageKindAssistant:
		return agentBubbleStyle
	case types.MessageKindThinking:
		return thinkingBubbleStyle
	case types.MessageKindTool:
		return toolBubbleStyle
	default:
		return systemBubbleStyle
	}
}

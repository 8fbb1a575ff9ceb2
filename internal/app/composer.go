package app

import (
	"strings"
	"unicode/utf8"

	tea "charm.land/bubbletea/v2"
)

// composerController is a one-line input buffer for outgoing messages and
// fork titles. It consumes key and paste events while active and leaves
// everything else to the transcript key handling.
type composerController struct {
	active bool
	prompt string
	buffer []rune
	submit func(text string)
}

func (c *composerController) OpenWith(prompt string, submit func(text string)) {
	if c == nil {
		return
	}
	c.active = true
	c.prompt = prompt
	c.buffer = c.buffer[:0]
	c.submit = submit
}

func (c *composerController) Close() {
	if c == nil {
		return
	}
	c.active = false
	c.prompt = ""
	c.buffer = c.buffer[:0]
	c.submit = nil
}

func (c *composerController) Active() bool {
	return c != nil && c.active
}

func (c *composerController) Text() string {
	if c == nil {
		return ""
	}
	return string(c.buffer)
}

// HandleKey reports whether the event was consumed.
func (c *composerController) HandleKey(msg tea.KeyMsg) bool {
	if c == nil || !c.active {
		return false
	}
	switch msg.String() {
	case "esc":
		c.Close()
		return true
	case "enter":
		text := strings.TrimSpace(string(c.buffer))
		submit := c.submit
		c.Close()
		if text != "" && submit != nil {
			submit(text)
		}
		return true
	case "backspace", "ctrl+h":
		if len(c.buffer) > 0 {
			c.buffer = c.buffer[:len(c.buffer)-1]
		}
		return true
	case "ctrl+u":
		c.buffer = c.buffer[:0]
		return true
	}
	text := keyText(msg)
	if text == "" {
		return true
	}
	c.buffer = append(c.buffer, []rune(text)...)
	return true
}

func (c *composerController) HandlePaste(msg tea.PasteMsg) bool {
	if c == nil || !c.active {
		return false
	}
	text := strings.ReplaceAll(msg.Content, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\n", " ")
	c.buffer = append(c.buffer, []rune(text)...)
	return true
}

func (c *composerController) View(width int) string {
	if c == nil || !c.active {
		return ""
	}
	inner := width - 4
	if inner < 10 {
		inner = 10
	}
	line := c.prompt + string(c.buffer) + "▏"
	return composerFrameStyle.Width(inner).Render(line)
}

func keyText(msg tea.KeyMsg) string {
	key := msg.Key()
	if key.Text != "" {
		return key.Text
	}
	raw := msg.String()
	if raw == "space" {
		return " "
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || utf8.RuneCountInString(raw) != 1 {
		return ""
	}
	return raw
}

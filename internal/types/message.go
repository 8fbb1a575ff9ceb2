package types

import "time"

type MessageKind string

const (
	MessageKindUser      MessageKind = "user"
	MessageKindAssistant MessageKind = "assistant"
	MessageKindTool      MessageKind = "tool"
	MessageKindThinking  MessageKind = "thinking"
	MessageKindSteer     MessageKind = "steer"
	MessageKindShell     MessageKind = "shell"
)

// ValidMessageKind reports whether kind is one of the closed set of kinds
// the authority may produce.
func ValidMessageKind(kind MessageKind) bool {
	switch kind {
	case MessageKindUser, MessageKindAssistant, MessageKindTool,
		MessageKindThinking, MessageKindSteer, MessageKindShell:
		return true
	}
	return false
}

// Image is a binary attachment carried by a message, in attachment order.
type Image struct {
	MediaType string `json:"media_type,omitempty"`
	Data      []byte `json:"data,omitempty"`
}

// Message is one entry in a session transcript. ID is immutable for the
// lifetime of the message; every other field may change only while the
// authority is still producing the message (InProgress true) or across a
// structural rewrite of the log.
type Message struct {
	ID           string        `json:"id"`
	Kind         MessageKind   `json:"kind"`
	Content      string        `json:"content,omitempty"`
	ToolName     string        `json:"tool_name,omitempty"`
	ToolOutput   string        `json:"tool_output,omitempty"`
	ToolDuration time.Duration `json:"tool_duration,omitempty"`
	InputTokens  int           `json:"input_tokens,omitempty"`
	OutputTokens int           `json:"output_tokens,omitempty"`
	Thinking     string        `json:"thinking,omitempty"`
	Images       []Image       `json:"images,omitempty"`
	InProgress   bool          `json:"in_progress,omitempty"`
}

// RenderEquivalent reports whether two messages are interchangeable for
// presentation. Fields that never reach the renderer are ignored.
func (m *Message) RenderEquivalent(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.ID != other.ID || m.Kind != other.Kind || m.Content != other.Content {
		return false
	}
	if m.ToolName != other.ToolName || m.ToolOutput != other.ToolOutput || m.ToolDuration != other.ToolDuration {
		return false
	}
	if m.InputTokens != other.InputTokens || m.OutputTokens != other.OutputTokens {
		return false
	}
	if m.Thinking != other.Thinking || m.InProgress != other.InProgress {
		return false
	}
	if len(m.Images) != len(other.Images) {
		return false
	}
	for i := range m.Images {
		if m.Images[i].MediaType != other.Images[i].MediaType {
			return false
		}
		if string(m.Images[i].Data) != string(other.Images[i].Data) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy. The reconciler hands clones to the mirror so
// that later snapshot mutations on the transport side cannot alias into it.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	if len(m.Images) > 0 {
		out.Images = make([]Image, len(m.Images))
		for i, img := range m.Images {
			out.Images[i] = Image{MediaType: img.MediaType}
			if len(img.Data) > 0 {
				out.Images[i].Data = append([]byte(nil), img.Data...)
			}
		}
	}
	return &out
}

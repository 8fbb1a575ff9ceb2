package types

import (
	"testing"
	"time"
)

func TestValidMessageKind(t *testing.T) {
	for _, kind := range []MessageKind{
		MessageKindUser, MessageKindAssistant, MessageKindTool,
		MessageKindThinking, MessageKindSteer, MessageKindShell,
	} {
		if !ValidMessageKind(kind) {
			t.Fatalf("expected %q valid", kind)
		}
	}
	if ValidMessageKind("system") {
		t.Fatalf("expected unknown kind rejected")
	}
}

func TestRenderEquivalentDetectsContentChange(t *testing.T) {
	a := &Message{ID: "m1", Kind: MessageKindAssistant, Content: "he", InProgress: true}
	b := &Message{ID: "m1", Kind: MessageKindAssistant, Content: "hello", InProgress: true}
	if a.RenderEquivalent(b) {
		t.Fatalf("content change must break equivalence")
	}
	b.Content = "he"
	if !a.RenderEquivalent(b) {
		t.Fatalf("expected equivalence")
	}
	b.InProgress = false
	if a.RenderEquivalent(b) {
		t.Fatalf("in-progress flag affects presentation")
	}
}

func TestRenderEquivalentComparesToolFields(t *testing.T) {
	a := &Message{ID: "m1", Kind: MessageKindTool, ToolName: "grep", ToolDuration: time.Second}
	b := &Message{ID: "m1", Kind: MessageKindTool, ToolName: "grep", ToolDuration: 2 * time.Second}
	if a.RenderEquivalent(b) {
		t.Fatalf("tool duration change must break equivalence")
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := &Message{
		ID:     "m1",
		Kind:   MessageKindUser,
		Images: []Image{{MediaType: "image/png", Data: []byte{1, 2, 3}}},
	}
	clone := original.Clone()
	clone.Images[0].Data[0] = 9
	if original.Images[0].Data[0] != 1 {
		t.Fatalf("clone shares image data with original")
	}
}

func TestTurnIDDerivation(t *testing.T) {
	if TurnID("u1") != "turn:u1" {
		t.Fatalf("unexpected turn id %q", TurnID("u1"))
	}
	if TurnID("") == TurnID("u1") {
		t.Fatalf("anchorless id must differ")
	}
}

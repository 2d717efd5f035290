package message

import (
	"testing"
)

func TestNewMessage(t *testing.T) {
	msg := New(RoleUser, "Hello, world!")

	if msg.Role != RoleUser {
		t.Errorf("Expected role %s, got %s", RoleUser, msg.Role)
	}

	if msg.Content != "Hello, world!" {
		t.Errorf("Expected content 'Hello, world!', got '%s'", msg.Content)
	}
}

func TestHelpers(t *testing.T) {
	if got := User("hi").Role; got != RoleUser {
		t.Errorf("Expected role %s, got %s", RoleUser, got)
	}
	if got := System("rules").Role; got != RoleSystem {
		t.Errorf("Expected role %s, got %s", RoleSystem, got)
	}
}

func TestCloneMessages(t *testing.T) {
	original := []*Message{User("a"), System("b"), nil}

	clones := CloneMessages(original)
	if len(clones) != 2 {
		t.Fatalf("Expected 2 clones, got %d", len(clones))
	}

	clones[0].Content = "changed"
	if original[0].Content != "a" {
		t.Error("Expected clone mutation to leave the original untouched")
	}

	if CloneMessages(nil) != nil {
		t.Error("Expected nil for empty input")
	}
}

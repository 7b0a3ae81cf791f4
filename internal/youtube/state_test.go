package youtube

import (
	"testing"
	"time"
)

func TestPlainState(t *testing.T) {
	var c PlainState
	s, _ := c.Encode("user-1")
	if got, err := c.Decode(s); err != nil || got != "user-1" {
		t.Errorf("Decode = %q, %v", got, err)
	}
	if _, err := c.Decode(""); err == nil {
		t.Error("expected error for empty state")
	}
}

func TestSignedState(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewSignedState("secret", 10*time.Minute)
	c.now = func() time.Time { return now }

	state, err := c.Encode("user-1")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if state == "user-1" {
		t.Fatal("signed state must not expose the raw user id")
	}

	if got, err := c.Decode(state); err != nil || got != "user-1" {
		t.Fatalf("Decode = %q, %v", got, err)
	}

	other := NewSignedState("other-secret", 10*time.Minute)
	other.now = c.now
	if _, err := other.Decode(state); err == nil {
		t.Error("state signed with another secret accepted")
	}

	if _, err := c.Decode(state + "x"); err == nil {
		t.Error("tampered state accepted")
	}

	now = now.Add(11 * time.Minute)
	if _, err := c.Decode(state); err == nil {
		t.Error("expired state accepted")
	}
}

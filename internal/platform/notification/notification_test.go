package notification

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogDispatcher_RecordsNotification(t *testing.T) {
	d := NewLogDispatcher(zerolog.Nop())

	err := d.Notify(context.Background(), PartyEmployer, "plan awaiting approval", "plan 42 is pending your approval")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := d.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(sent))
	}
	if sent[0].Recipient != PartyEmployer {
		t.Errorf("expected employer recipient, got %s", sent[0].Recipient)
	}
	if sent[0].Subject != "plan awaiting approval" {
		t.Errorf("unexpected subject %q", sent[0].Subject)
	}
	if sent[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestLogDispatcher_SentReturnsCopy(t *testing.T) {
	d := NewLogDispatcher(zerolog.Nop())
	d.Notify(context.Background(), PartyAuthority, "verdict", "group 5")

	sent := d.Sent()
	sent[0].Subject = "mutated"

	if d.Sent()[0].Subject != "verdict" {
		t.Error("Sent must return a copy, not the internal slice")
	}
}

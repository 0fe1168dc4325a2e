package store

import "testing"

func TestValidTransition(t *testing.T) {
	cases := []struct {
		action string
		from   string
		valid  bool
	}{
		{"verify", "pending", true},
		{"verify", "verified", false},
		{"verify", "submitted", false},
		{"submit", "verified", true},
		{"submit", "pending", false},
		{"submit", "submitted", false},
		{"unknown", "pending", false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.action, tt.from); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q)=%v, want %v", tt.action, tt.from, got, tt.valid)
		}
	}
}

func TestTransitionTargets(t *testing.T) {
	from, to, ok := Transition(ActionVerify)
	if !ok || from != "pending" || to != "verified" {
		t.Fatalf("verify transition = %q -> %q (%v)", from, to, ok)
	}
	from, to, ok = Transition(ActionSubmit)
	if !ok || from != "verified" || to != "submitted" {
		t.Fatalf("submit transition = %q -> %q (%v)", from, to, ok)
	}
	if _, _, ok := Transition("refund"); ok {
		t.Fatalf("expected unknown action to be rejected")
	}
}

func TestEventType(t *testing.T) {
	if got := EventType(ActionVerify); got != "payment.verified" {
		t.Fatalf("unexpected event type %q", got)
	}
	if got := EventType(ActionSubmit); got != "payment.submitted" {
		t.Fatalf("unexpected event type %q", got)
	}
	if got := EventType("other"); got != "" {
		t.Fatalf("expected empty event type, got %q", got)
	}
}

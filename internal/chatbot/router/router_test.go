package router

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/state"
)

func noopHandler(_ context.Context, _ *state.Context, _ *Event) error { return nil }

func TestRegistrationOrderWins(t *testing.T) {
	r := New()
	r.Register("first", "go", nil, noopHandler)
	r.Register("second", "go", nil, noopHandler)

	_, name, err := r.Route("go", &state.Context{})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if name != "first" {
		t.Fatalf("matched %q, want the earlier registration", name)
	}
}

func TestStatePredicateGatesRule(t *testing.T) {
	r := New()
	r.Register("gated", "go", InState(state.StateQuestion2), noopHandler)
	r.Register("open", "go", nil, noopHandler)

	conv := &state.Context{State: state.StateQuestion2}
	if _, name, _ := r.Route("go", conv); name != "gated" {
		t.Fatalf("matched %q, want gated rule in its state", name)
	}

	conv.State = state.StateIdle
	if _, name, _ := r.Route("go", conv); name != "open" {
		t.Fatalf("matched %q, want fallthrough to ungated rule", name)
	}
}

func TestEmptyIntentMatchesAnything(t *testing.T) {
	r := New()
	r.Register("collector", "", InState(state.StateQuestion1), noopHandler)

	conv := &state.Context{State: state.StateQuestion1}
	for _, intent := range []string{"", "anything", "/cancel"} {
		if _, name, err := r.Route(intent, conv); err != nil || name != "collector" {
			t.Fatalf("intent %q matched %q (%v), want collector", intent, name, err)
		}
	}

	conv.State = state.StateIdle
	if _, _, err := r.Route("anything", conv); !errors.Is(err, ErrNoRule) {
		t.Fatalf("err = %v, want ErrNoRule outside the gated state", err)
	}
}

func TestSpecificRuleBeatsLaterCollector(t *testing.T) {
	// The question flow registers /cancel before the free-text collector:
	// a command typed mid-flow must not be swallowed as question text.
	r := New()
	r.Register("cancel", "/cancel", nil, noopHandler)
	r.Register("collect", "", InState(state.StateQuestion1), noopHandler)

	conv := &state.Context{State: state.StateQuestion1}
	if _, name, _ := r.Route("/cancel", conv); name != "cancel" {
		t.Fatalf("matched %q, want the specific command rule", name)
	}
	if _, name, _ := r.Route("", conv); name != "collect" {
		t.Fatalf("matched %q, want the collector for free text", name)
	}
}

func TestRegexRule(t *testing.T) {
	r := New()
	r.RegisterRegex("similarity", regexp.MustCompile(`^(similar|indifferent|different)$`), nil, noopHandler)

	if _, name, err := r.Route("indifferent", &state.Context{}); err != nil || name != "similarity" {
		t.Fatalf("matched %q (%v), want similarity rule", name, err)
	}
	if _, _, err := r.Route("similarish", &state.Context{}); !errors.Is(err, ErrNoRule) {
		t.Fatalf("err = %v, want ErrNoRule for a non-anchored near miss", err)
	}
}

func TestCatchAllLast(t *testing.T) {
	r := New()
	r.Register("help", "/help", nil, noopHandler)
	r.RegisterRegex("fallback", regexp.MustCompile(`.*`), nil, noopHandler)

	if _, name, _ := r.Route("/help", &state.Context{}); name != "help" {
		t.Fatalf("matched %q, want the specific rule before the catch-all", name)
	}
	if _, name, _ := r.Route("gibberish", &state.Context{}); name != "fallback" {
		t.Fatalf("matched %q, want the catch-all", name)
	}
}

func TestNoRule(t *testing.T) {
	r := New()
	if _, _, err := r.Route("anything", &state.Context{}); !errors.Is(err, ErrNoRule) {
		t.Fatalf("err = %v, want ErrNoRule on empty router", err)
	}
}

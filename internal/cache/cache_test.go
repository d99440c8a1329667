package cache

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return New(time.Hour, zap.NewNop())
}

func TestPutGeneratesKey(t *testing.T) {
	c := newTestCache(t)

	key, err := c.Put("hello", 0, "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if key == "" {
		t.Fatal("expected a generated key")
	}

	var out string
	if !c.Get(key, &out) {
		t.Fatal("expected value under generated key")
	}
	if out != "hello" {
		t.Fatalf("got %q, want %q", out, "hello")
	}
}

func TestPutExplicitKeyOverwrites(t *testing.T) {
	c := newTestCache(t)

	if _, err := c.Put("first", 0, "k"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := c.Put("second", 0, "k"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var out string
	if !c.Get("k", &out) {
		t.Fatal("expected value under key")
	}
	if out != "second" {
		t.Fatalf("got %q, want %q", out, "second")
	}
}

func TestGetMissingKey(t *testing.T) {
	c := newTestCache(t)

	var out string
	if c.Get("nope", &out) {
		t.Fatal("expected miss for unknown key")
	}
}

func TestEntryExpires(t *testing.T) {
	c := newTestCache(t)

	if _, err := c.Put("soon gone", 10*time.Millisecond, "k"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	var out string
	if c.Get("k", &out) {
		t.Fatal("expected entry to have expired")
	}
}

func TestRemove(t *testing.T) {
	c := newTestCache(t)

	if _, err := c.Put("v", 0, "k"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	c.Remove("k")

	var out string
	if c.Get("k", &out) {
		t.Fatal("expected entry to be removed")
	}

	// Removing again is a no-op.
	c.Remove("k")
}

func TestCorruptEntryReportedAsMiss(t *testing.T) {
	c := newTestCache(t)

	// A payload object cannot be decoded into an int; the entry must be
	// dropped and reported as absent rather than erroring.
	if _, err := c.Put(map[string]string{"a": "b"}, 0, "k"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var out int
	if c.Get("k", &out) {
		t.Fatal("expected mismatched entry to be reported as miss")
	}

	var again map[string]string
	if c.Get("k", &again) {
		t.Fatal("expected broken entry to be dropped on first read")
	}
}

func TestButtonPayloadRoundTrip(t *testing.T) {
	c := newTestCache(t)

	p := NewButtonPayload("answer_question", map[string]any{
		"task_id":   "t1",
		"sensitive": true,
	})
	key, err := c.Put(p, 0, "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got ButtonPayload
	if !c.Get(key, &got) {
		t.Fatal("expected payload under key")
	}
	if got.Intent != "answer_question" {
		t.Fatalf("intent = %q, want %q", got.Intent, "answer_question")
	}
	if v, ok := got.String("task_id"); !ok || v != "t1" {
		t.Fatalf("task_id = %q/%v, want t1", v, ok)
	}
	if !got.Bool("sensitive") {
		t.Fatal("sensitive = false, want true")
	}
}

func TestNewButtonPayloadNilData(t *testing.T) {
	p := NewButtonPayload("x", nil)
	if p.Payload == nil {
		t.Fatal("expected non-nil payload map")
	}
	p.Payload["k"] = "v"
}

func TestRelatedButtons(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int
	}{
		{"absent", nil, 0},
		{"string slice", []string{"a", "b"}, 2},
		{"any slice after json round trip", []any{"a", "b", "c"}, 3},
		{"wrong type", 42, 0},
		{"mixed values skipped", []any{"a", 7, "b"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewButtonPayload("x", nil)
			if tt.raw != nil {
				p.Payload[PayloadKeyRelatedButtons] = tt.raw
			}
			if got := len(p.RelatedButtons()); got != tt.want {
				t.Fatalf("got %d keys, want %d", got, tt.want)
			}
		})
	}
}

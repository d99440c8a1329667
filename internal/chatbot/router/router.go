// Package router dispatches incoming events to dialogue handlers.
//
// Rules are evaluated in registration order and the first match wins, so
// order is a load-bearing invariant: state-gated free-text rules must not
// shadow earlier intent+state rules, and regex catch-alls go last.
package router

import (
	"context"
	"errors"
	"regexp"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/cache"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/message"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/state"
)

// ErrNoRule is returned by Route when no registered rule matches. The
// dispatch boundary converts it to a generic error response, never a crash.
var ErrNoRule = errors.New("no rule matches event")

// Event is one incoming occurrence to route: an intent label produced
// upstream plus whatever the transport attached to it.
type Event struct {
	Intent    string
	Text      string
	Recipient message.Recipient

	// Payload is set when the event came from a cached button click.
	Payload *cache.ButtonPayload

	// NonText marks inputs that are neither text nor a classified intent
	// (images, locations, stickers) so text-expecting states can re-prompt.
	NonText bool
}

// Handler is one dialogue step: it reads and mutates the conversation
// context and emits outbound messages through its own dependencies.
type Handler func(ctx context.Context, conv *state.Context, ev *Event) error

// Predicate gates a rule on the conversation context.
type Predicate func(conv *state.Context) bool

// InState returns a predicate matching a specific dialogue state.
func InState(s state.State) Predicate {
	return func(conv *state.Context) bool {
		return conv.State == s
	}
}

type rule struct {
	name      string
	intent    string
	intentRe  *regexp.Regexp
	predicate Predicate
	handler   Handler
}

func (r *rule) matches(intent string, conv *state.Context) bool {
	switch {
	case r.intentRe != nil:
		if !r.intentRe.MatchString(intent) {
			return false
		}
	case r.intent != "":
		if r.intent != intent {
			return false
		}
	}

	if r.predicate != nil && !r.predicate(conv) {
		return false
	}
	return true
}

// Router holds the ordered fulfiller rules.
type Router struct {
	rules []*rule
}

// New creates an empty router.
func New() *Router {
	return &Router{}
}

// Register appends an exact-intent rule. An empty intent matches any
// intent, which combined with a state predicate means "whatever the user
// sends while in this state".
func (r *Router) Register(name, intent string, pred Predicate, h Handler) {
	r.rules = append(r.rules, &rule{
		name:      name,
		intent:    intent,
		predicate: pred,
		handler:   h,
	})
}

// RegisterRegex appends a regex-intent rule.
func (r *Router) RegisterRegex(name string, re *regexp.Regexp, pred Predicate, h Handler) {
	r.rules = append(r.rules, &rule{
		name:      name,
		intentRe:  re,
		predicate: pred,
		handler:   h,
	})
}

// Route selects the first rule matching (intent, context) and returns its
// handler and rule name.
func (r *Router) Route(intent string, conv *state.Context) (Handler, string, error) {
	for _, rl := range r.rules {
		if rl.matches(intent, conv) {
			return rl.handler, rl.name, nil
		}
	}
	return nil, "", ErrNoRule
}

package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/cache"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/message"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/router"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/state"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/entity"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/i18n"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/wenet"
	pkgHTTP "github.com/InternetOfUs/app-telegram-bot-sub000/pkg/http"
	"go.uber.org/zap"
)

// fakeSender records everything the service tries to deliver.
type fakeSender struct {
	mu      sync.Mutex
	err     error
	batches []sentBatch
}

type sentBatch struct {
	to        message.Recipient
	responses []message.Response
}

func (f *fakeSender) Send(_ context.Context, to message.Recipient, responses []message.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, sentBatch{to: to, responses: responses})
	return nil
}

// lastText returns the text of the most recent textual response sent.
func (f *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.batches) - 1; i >= 0; i-- {
		for j := len(f.batches[i].responses) - 1; j >= 0; j-- {
			if txt, ok := f.batches[i].responses[j].(message.TextualResponse); ok {
				return txt.Text
			}
		}
	}
	t.Fatal("no textual response was sent")
	return ""
}

// lastMulti returns the most recent multi-choice response sent.
func (f *fakeSender) lastMulti(t *testing.T) message.MultiChoiceResponse {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.batches) - 1; i >= 0; i-- {
		for j := len(f.batches[i].responses) - 1; j >= 0; j-- {
			if mc, ok := f.batches[i].responses[j].(message.MultiChoiceResponse); ok {
				return mc
			}
		}
	}
	t.Fatal("no multi-choice response was sent")
	return message.MultiChoiceResponse{}
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

// fakeAPI is a scriptable wenet.API. The zero value accepts everything.
type fakeAPI struct {
	createTaskFn        func(ctx context.Context, token string, task *entity.Task) (*entity.Task, error)
	createTransactionFn func(ctx context.Context, token string, tr *entity.Transaction) error
	refreshFn           func(ctx context.Context, refreshToken string) (*wenet.Credentials, error)

	tasks        []*entity.Task
	transactions []*entity.Transaction
	refreshCalls int
}

func (f *fakeAPI) CreateTask(ctx context.Context, token string, task *entity.Task) (*entity.Task, error) {
	if f.createTaskFn != nil {
		created, err := f.createTaskFn(ctx, token, task)
		if err != nil {
			return nil, err
		}
		f.tasks = append(f.tasks, created)
		return created, nil
	}
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeAPI) CreateTaskTransaction(ctx context.Context, token string, tr *entity.Transaction) error {
	if f.createTransactionFn != nil {
		if err := f.createTransactionFn(ctx, token, tr); err != nil {
			return err
		}
	}
	f.transactions = append(f.transactions, tr)
	return nil
}

func (f *fakeAPI) GetTask(_ context.Context, _, taskID string) (*entity.Task, error) {
	return &entity.Task{ID: taskID}, nil
}

func (f *fakeAPI) GetUserProfile(_ context.Context, _, userID string) (*entity.UserProfile, error) {
	return &entity.UserProfile{ID: userID}, nil
}

func (f *fakeAPI) GetAllTasksOfApplication(_ context.Context, _, _ string) ([]entity.Task, error) {
	return nil, nil
}

func (f *fakeAPI) RefreshCredentials(ctx context.Context, refreshToken string) (*wenet.Credentials, error) {
	f.refreshCalls++
	if f.refreshFn != nil {
		return f.refreshFn(ctx, refreshToken)
	}
	return &wenet.Credentials{AccessToken: "fresh-token", RefreshToken: "fresh-refresh"}, nil
}

type testEnv struct {
	service *Service
	sender  *fakeSender
	api     *fakeAPI
	states  *state.Manager
	cache   *cache.Cache
	rcpt    message.Recipient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, Config{
		AppID:           "app1",
		CommunityID:     "community1",
		TaskTypeID:      "tasktype1",
		LoginURL:        "https://example.org/login",
		DefaultLocale:   "en",
		PayloadTTL:      time.Hour,
		AnsweredFlagTTL: time.Hour,
		ReminderWindow:  time.Hour,
	})
}

func newTestEnvWithConfig(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	sender := &fakeSender{}
	api := &fakeAPI{}
	states := state.NewManager(state.NewMemoryStore())
	payloadCache := cache.New(cfg.PayloadTTL, zap.NewNop())
	translator := i18n.NewStaticTranslator("en", nil, zap.NewNop())

	return &testEnv{
		service: NewService(cfg, states, payloadCache, api, translator, sender),
		sender:  sender,
		api:     api,
		states:  states,
		cache:   payloadCache,
		rcpt:    message.Recipient{AppID: "app1", UserID: "user1", ChatID: 100},
	}
}

// seedUser stores a context with working credentials.
func (e *testEnv) seedUser(t *testing.T) {
	t.Helper()
	conv := state.NewContext(e.rcpt.UserID, e.rcpt)
	conv.AccessToken = "token"
	conv.RefreshToken = "refresh"
	if err := e.states.Save(context.Background(), conv); err != nil {
		t.Fatalf("seed context: %v", err)
	}
}

func (e *testEnv) conv(t *testing.T) *state.Context {
	t.Helper()
	conv, err := e.states.Get(context.Background(), e.rcpt.UserID)
	if err != nil {
		t.Fatalf("get context: %v", err)
	}
	return conv
}

func (e *testEnv) sendCommand(intent string) {
	e.service.HandleEvent(context.Background(), &router.Event{Intent: intent, Recipient: e.rcpt})
}

func (e *testEnv) sendText(text string) {
	e.service.HandleEvent(context.Background(), &router.Event{Text: text, Recipient: e.rcpt})
}

func (e *testEnv) sendNonText() {
	e.service.HandleEvent(context.Background(), &router.Event{NonText: true, Recipient: e.rcpt})
}

// click resolves an option against the payload cache and dispatches the
// event, the same way the transport does.
func (e *testEnv) click(t *testing.T, opt message.Option) {
	t.Helper()
	var p cache.ButtonPayload
	if !e.cache.Get(opt.Key, &p) {
		t.Fatalf("button %q has no cached payload", opt.Label)
	}
	e.service.HandleEvent(context.Background(), &router.Event{
		Intent:    p.Intent,
		Recipient: e.rcpt,
		Payload:   &p,
	})
}

// option finds a choice by its label (the translation key under the static
// test translator).
func option(t *testing.T, mc message.MultiChoiceResponse, label string) message.Option {
	t.Helper()
	for _, opt := range mc.Options {
		if opt.Label == label {
			return opt
		}
	}
	t.Fatalf("no option labeled %q in %v", label, mc.Options)
	return message.Option{}
}

func TestHandleEventCreatesContext(t *testing.T) {
	env := newTestEnv(t)

	env.sendCommand(IntentStart)

	conv := env.conv(t)
	if conv.UserID != env.rcpt.UserID {
		t.Fatalf("context user = %q, want %q", conv.UserID, env.rcpt.UserID)
	}
	if got := env.sender.lastText(t); got != msgWelcome {
		t.Fatalf("got %q, want welcome message", got)
	}
}

func TestUnroutableEventGetsGenericError(t *testing.T) {
	env := newTestEnv(t)
	// Strip the catch-all so nothing matches.
	env.service.router = router.New()

	env.sendCommand("whatever")

	if got := env.sender.lastText(t); got != msgErrorGeneric {
		t.Fatalf("got %q, want generic error", got)
	}
}

func TestFallbackAnswersUnknownIntent(t *testing.T) {
	env := newTestEnv(t)

	env.sendCommand("gibberish_intent")

	if got := env.sender.lastText(t); got != msgNotUnderstood {
		t.Fatalf("got %q, want not-understood message", got)
	}
}

func TestRelatedButtonsConsumedOnClick(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	env.sendCommand(IntentQuestion)
	env.sendText("what is the meaning of life?")

	mc := env.sender.lastMulti(t)
	if len(mc.Options) != len(QuestionDomains) {
		t.Fatalf("got %d domain options, want %d", len(mc.Options), len(QuestionDomains))
	}

	env.click(t, mc.Options[0])

	// Every sibling of the clicked button must be gone.
	for _, opt := range mc.Options {
		var p cache.ButtonPayload
		if env.cache.Get(opt.Key, &p) {
			t.Fatalf("button %q still cached after a sibling was clicked", opt.Label)
		}
	}
}

func TestExpiredCredentialsPromptLogin(t *testing.T) {
	env := newTestEnv(t)

	// No stored credentials at all: the first service-API call must surface
	// the login prompt instead of a retry loop.
	conv := state.NewContext(env.rcpt.UserID, env.rcpt)
	conv.State = state.StateQuestion6
	conv.AskedQuestion = state.StringPtr("q")
	conv.QuestionDomain = state.StringPtr("campus_life")
	conv.DomainInterest = state.StringPtr("similar")
	conv.BeliefValuesSimilarity = state.StringPtr("similar")
	conv.SensitiveQuestion = state.BoolPtr(false)
	conv.SocialCloseness = state.StringPtr("similar")
	if err := env.states.Save(context.Background(), conv); err != nil {
		t.Fatalf("seed: %v", err)
	}

	env.sendCommand(IntentAskToAnywhere)

	if got := env.sender.lastText(t); got != msgErrorLogin {
		t.Fatalf("got %q, want login prompt", got)
	}
	if len(env.api.tasks) != 0 {
		t.Fatal("no task should be created without credentials")
	}
}

func TestAuthRefreshRetriesOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	calls := 0
	env.api.createTransactionFn = func(_ context.Context, token string, _ *entity.Transaction) error {
		calls++
		if token != "fresh-token" {
			return &pkgHTTP.HTTPError{StatusCode: 401, Message: "unauthorized"}
		}
		return nil
	}

	conv := env.conv(t)
	conv.State = state.StateAnswering
	conv.QuestionToAnswer = state.StringPtr("task9")
	if err := env.states.Save(context.Background(), conv); err != nil {
		t.Fatalf("save: %v", err)
	}

	env.sendText("my answer")

	if calls != 2 {
		t.Fatalf("transaction attempted %d times, want refresh-and-retry", calls)
	}
	if env.api.refreshCalls != 1 {
		t.Fatalf("refresh called %d times, want once", env.api.refreshCalls)
	}
	got := env.conv(t)
	if got.AccessToken != "fresh-token" || got.RefreshToken != "fresh-refresh" {
		t.Fatalf("credentials not rotated: %+v", got)
	}
	if text := env.sender.lastText(t); text != msgAnswerSubmitted {
		t.Fatalf("got %q, want submitted ack", text)
	}
}

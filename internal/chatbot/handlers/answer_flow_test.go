package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/cache"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/message"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/state"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/entity"
	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/wenet"
)

func notification(taskID, question string, sensitive, nearby bool) *QuestionNotification {
	return &QuestionNotification{
		TaskID:    taskID,
		Question:  question,
		UserID:    "user1",
		Sensitive: sensitive,
		Nearby:    nearby,
	}
}

func TestQuestionNotificationDeliveredWhenIdle(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	if err := env.service.HandleQuestionNotification(context.Background(),
		notification("task1", "can you help?", false, false)); err != nil {
		t.Fatalf("notification: %v", err)
	}

	mc := env.sender.lastMulti(t)
	if len(mc.Options) != 4 {
		t.Fatalf("got %d options, want answer/remind/not-interested/report", len(mc.Options))
	}
	option(t, mc, lblAnswer)
	option(t, mc, lblRemindLater)
	option(t, mc, lblNotInterested)
	option(t, mc, lblReport)
}

func TestNearbyNotificationHasNoReminder(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	if err := env.service.HandleQuestionNotification(context.Background(),
		notification("task1", "anyone around?", false, true)); err != nil {
		t.Fatalf("notification: %v", err)
	}

	mc := env.sender.lastMulti(t)
	if len(mc.Options) != 3 {
		t.Fatalf("got %d options, want 3 for a nearby question", len(mc.Options))
	}
	for _, opt := range mc.Options {
		if opt.Label == lblRemindLater {
			t.Fatal("nearby questions must not offer remind-later")
		}
	}
}

func TestQuestionNotificationQueuedWhenBusy(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	conv := env.conv(t)
	conv.State = state.StateQuestion3
	if err := env.states.Save(context.Background(), conv); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := env.service.HandleQuestionNotification(context.Background(),
		notification("task1", "busy?", false, false)); err != nil {
		t.Fatalf("notification: %v", err)
	}

	if env.sender.count() != 0 {
		t.Fatal("busy user must not be interrupted")
	}
	got := env.conv(t)
	if _, ok := got.PendingWenetMessages["task1"]; !ok {
		t.Fatal("notification must be queued for later delivery")
	}
}

func TestAnswerQuestionEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	if err := env.service.HandleQuestionNotification(context.Background(),
		notification("task1", "how do I enroll?", false, false)); err != nil {
		t.Fatalf("notification: %v", err)
	}

	mc := env.sender.lastMulti(t)
	env.click(t, option(t, mc, lblAnswer))

	conv := env.conv(t)
	if conv.State != state.StateAnswering {
		t.Fatalf("state = %q, want answering", conv.State)
	}
	// First-time answerers get the explainer.
	if got := env.sender.lastText(t); got != msgAnswerPrompt {
		t.Fatalf("got %q, want answer prompt", got)
	}

	env.sendText("at the admissions office")

	if len(env.api.transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(env.api.transactions))
	}
	tr := env.api.transactions[0]
	if tr.Label != entity.TransactionLabelAnswer || tr.TaskID != "task1" {
		t.Fatalf("transaction = %+v", tr)
	}
	if tr.Attributes["answer"] != "at the admissions office" || tr.Attributes["anonymous"] != false {
		t.Fatalf("attributes = %v", tr.Attributes)
	}

	conv = env.conv(t)
	if conv.State != state.StateIdle || conv.QuestionToAnswer != nil || conv.AnswerToQuestion != nil {
		t.Fatalf("answer flow not cleaned up: %+v", conv)
	}
	if got := env.sender.lastText(t); got != msgAnswerSubmitted {
		t.Fatalf("got %q, want submitted ack", got)
	}
}

func TestSensitiveAnswerPublishedAnonymously(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	if err := env.service.HandleQuestionNotification(context.Background(),
		notification("task1", "something personal", true, false)); err != nil {
		t.Fatalf("notification: %v", err)
	}

	env.click(t, option(t, env.sender.lastMulti(t), lblAnswer))
	if got := env.conv(t).State; got != state.StateAnsweringSensitive {
		t.Fatalf("state = %q, want answering_sensitive", got)
	}

	env.sendText("here is my answer")
	if got := env.conv(t).State; got != state.StateAnsweringAnonymously {
		t.Fatalf("state = %q, want the anonymity question", got)
	}

	env.click(t, option(t, env.sender.lastMulti(t), lblPublishAnon))

	if len(env.api.transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(env.api.transactions))
	}
	if env.api.transactions[0].Attributes["anonymous"] != true {
		t.Fatalf("attributes = %v, want anonymous", env.api.transactions[0].Attributes)
	}
	if got := env.conv(t).State; got != state.StateIdle {
		t.Fatalf("state = %q, want idle", got)
	}
}

func TestAnswerSubmissionFailureStillCleansUp(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	env.api.createTransactionFn = func(_ context.Context, _ string, _ *entity.Transaction) error {
		return &wenet.CreationError{Status: 400, Body: "task closed"}
	}

	conv := env.conv(t)
	conv.State = state.StateAnswering
	conv.QuestionToAnswer = state.StringPtr("task1")
	if err := env.states.Save(context.Background(), conv); err != nil {
		t.Fatalf("save: %v", err)
	}

	env.sendText("too late")

	got := env.conv(t)
	if got.State != state.StateIdle || got.QuestionToAnswer != nil || got.AnswerToQuestion != nil {
		t.Fatalf("failed submission must not wedge the user: %+v", got)
	}
	if text := env.sender.lastText(t); text != msgAnswerFailed {
		t.Fatalf("got %q, want failure apology", text)
	}
}

func TestAnswerExplainerShownOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	answerOnce := func(taskID string) {
		t.Helper()
		if err := env.service.HandleQuestionNotification(context.Background(),
			notification(taskID, "q", false, false)); err != nil {
			t.Fatalf("notification: %v", err)
		}
		env.click(t, option(t, env.sender.lastMulti(t), lblAnswer))
		env.sendText("an answer")
	}

	answerOnce("task1")

	countExplainers := func() int {
		n := 0
		for _, b := range env.sender.batches {
			for _, r := range b.responses {
				if txt, ok := r.(message.TextualResponse); ok && txt.Text == msgAnswerExplainer {
					n++
				}
			}
		}
		return n
	}

	if got := countExplainers(); got != 1 {
		t.Fatalf("explainer shown %d times after first answer, want 1", got)
	}

	answerOnce("task2")

	if got := countExplainers(); got != 1 {
		t.Fatalf("explainer shown %d times after second answer, want still 1", got)
	}
}

func TestRemindLaterStoresPendingAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	if err := env.service.HandleQuestionNotification(context.Background(),
		notification("task1", "later?", false, false)); err != nil {
		t.Fatalf("notification: %v", err)
	}

	mc := env.sender.lastMulti(t)
	env.click(t, option(t, mc, lblRemindLater))

	conv := env.conv(t)
	pending, ok := conv.PendingAnswers["task1"]
	if !ok {
		t.Fatal("remind-later must store a pending answer")
	}
	if pending.Sent == nil {
		t.Fatal("pending answer must carry the defer timestamp")
	}
	if pending.Response == nil {
		t.Fatal("pending answer must carry the re-rendered question")
	}
	if got := env.sender.lastText(t); got != msgAnswerRemindSet {
		t.Fatalf("got %q, want remind ack", got)
	}

	// The original buttons are consumed with the click.
	for _, opt := range mc.Options {
		var p cache.ButtonPayload
		if env.cache.Get(opt.Key, &p) {
			t.Fatalf("button %q still cached after remind-later", opt.Label)
		}
	}
}

func TestReminderButtonsOutliveWait(t *testing.T) {
	env := newTestEnvWithConfig(t, Config{
		AppID:           "app1",
		CommunityID:     "community1",
		TaskTypeID:      "tasktype1",
		LoginURL:        "https://example.org/login",
		DefaultLocale:   "en",
		PayloadTTL:      50 * time.Millisecond,
		AnsweredFlagTTL: time.Hour,
		ReminderWindow:  200 * time.Millisecond,
	})
	env.seedUser(t)

	if err := env.service.HandleQuestionNotification(context.Background(),
		notification("task1", "later?", false, false)); err != nil {
		t.Fatalf("notification: %v", err)
	}
	env.click(t, option(t, env.sender.lastMulti(t), lblRemindLater))

	pending := env.conv(t).PendingAnswers["task1"]
	mc, ok := pending.Response.(message.MultiChoiceResponse)
	if !ok {
		t.Fatalf("pending response is %T, want a multi-choice message", pending.Response)
	}

	// Past the plain payload TTL but before the reminder window runs out:
	// the stored buttons must still resolve once the job redelivers them.
	time.Sleep(100 * time.Millisecond)
	for _, opt := range mc.Options {
		var p cache.ButtonPayload
		if !env.cache.Get(opt.Key, &p) {
			t.Fatalf("reminder button %q expired before redelivery", opt.Label)
		}
	}
}

func TestNotInterestedSubmitsTransaction(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	if err := env.service.HandleQuestionNotification(context.Background(),
		notification("task1", "no thanks", false, false)); err != nil {
		t.Fatalf("notification: %v", err)
	}
	env.click(t, option(t, env.sender.lastMulti(t), lblNotInterested))

	if len(env.api.transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(env.api.transactions))
	}
	if env.api.transactions[0].Label != entity.TransactionLabelNotInterested {
		t.Fatalf("label = %q", env.api.transactions[0].Label)
	}
	if got := env.sender.lastText(t); got != msgNotInterestedAck {
		t.Fatalf("got %q, want not-interested ack", got)
	}
}

func TestReportQuestionSubmitsTransaction(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	if err := env.service.HandleQuestionNotification(context.Background(),
		notification("task1", "spam", false, false)); err != nil {
		t.Fatalf("notification: %v", err)
	}
	env.click(t, option(t, env.sender.lastMulti(t), lblReport))

	if len(env.api.transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(env.api.transactions))
	}
	if env.api.transactions[0].Label != entity.TransactionLabelReport {
		t.Fatalf("label = %q", env.api.transactions[0].Label)
	}
}

func TestAnswerButtonWithoutPayloadIsAnError(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	// A typed intent without a cached payload cannot start the answer flow.
	env.sendCommand(IntentAnswerQuestion)

	if got := env.conv(t).State; got != state.StateIdle {
		t.Fatalf("state = %q, want idle", got)
	}
	if got := env.sender.lastText(t); got != msgErrorGeneric {
		t.Fatalf("got %q, want generic error", got)
	}
}

func TestAnsweredNotificationQueuedWhenBusy(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t)

	conv := env.conv(t)
	conv.State = state.StateAnswering
	if err := env.states.Save(context.Background(), conv); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := env.service.HandleAnsweredQuestion(context.Background(),
		"user1", "task7", "here you go"); err != nil {
		t.Fatalf("answered notification: %v", err)
	}

	if env.sender.count() != 0 {
		t.Fatal("busy user must not be interrupted")
	}
	if _, ok := env.conv(t).PendingWenetMessages["task7"]; !ok {
		t.Fatal("answered notification must be queued")
	}
}

package state

import (
	"time"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/message"
)

// Context is the per-user conversation state surviving across messages.
// Optional dialogue fields are pointers so "never answered" is
// distinguishable from an explicit zero value.
type Context struct {
	UserID    string            `json:"user_id"`
	Recipient message.Recipient `json:"social_details"`
	Locale    string            `json:"locale,omitempty"`

	State State `json:"current_state,omitempty"`

	// In-progress question being composed
	AskedQuestion          *string `json:"asked_question,omitempty"`
	QuestionDomain         *string `json:"question_domain,omitempty"`
	DomainInterest         *string `json:"domain_interest,omitempty"`
	BeliefValuesSimilarity *string `json:"belief_values_similarity,omitempty"`
	SensitiveQuestion      *bool   `json:"sensitive_question,omitempty"`
	AnonymousQuestion      *bool   `json:"anonymous_question,omitempty"`
	SocialCloseness        *string `json:"social_closeness,omitempty"`

	// In-progress answer
	QuestionToAnswer *string `json:"question_to_answer,omitempty"`
	AnswerToQuestion *string `json:"answer_to_question,omitempty"`

	// Deferred deliveries, keyed by question/message id
	PendingAnswers       map[string]*PendingQuestionToAnswer `json:"pending_answers,omitempty"`
	PendingWenetMessages map[string]*PendingWenetMessage     `json:"pending_wenet_messages,omitempty"`

	// Credentials for the WeNet service API
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NewContext creates an idle context for a user.
func NewContext(userID string, recipient message.Recipient) *Context {
	return &Context{
		UserID:    userID,
		Recipient: recipient,
	}
}

// ClearQuestionFlow resets the state and every in-progress-question field.
// Credentials and pending-item maps are deliberately left untouched.
func (c *Context) ClearQuestionFlow() {
	c.State = StateIdle
	c.AskedQuestion = nil
	c.QuestionDomain = nil
	c.DomainInterest = nil
	c.BeliefValuesSimilarity = nil
	c.SensitiveQuestion = nil
	c.AnonymousQuestion = nil
	c.SocialCloseness = nil
}

// ClearAnswerFlow resets the state and the in-progress answer fields.
func (c *Context) ClearAnswerFlow() {
	c.State = StateIdle
	c.QuestionToAnswer = nil
	c.AnswerToQuestion = nil
}

// PutPendingAnswer stores a deferred question reminder, overwriting any
// earlier entry for the same question so re-deferring never duplicates.
func (c *Context) PutPendingAnswer(p *PendingQuestionToAnswer) {
	if c.PendingAnswers == nil {
		c.PendingAnswers = make(map[string]*PendingQuestionToAnswer)
	}
	c.PendingAnswers[p.QuestionID] = p
}

// PutPendingWenetMessage queues a notification for delayed delivery.
func (c *Context) PutPendingWenetMessage(p *PendingWenetMessage) {
	if c.PendingWenetMessages == nil {
		c.PendingWenetMessages = make(map[string]*PendingWenetMessage)
	}
	c.PendingWenetMessages[p.ID] = p
}

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }

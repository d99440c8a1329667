package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/chatbot/message"
)

// PendingQuestionToAnswer is a question notification the user deferred with
// "remind me later". Sent is the defer-click timestamp; the reconciliation
// job redelivers once Sent plus the reminder window has elapsed and then
// clears Sent so the item waits for the next defer.
type PendingQuestionToAnswer struct {
	QuestionID string            `json:"question_id"`
	Response   message.Response  `json:"-"`
	Recipient  message.Recipient `json:"social_details"`
	Sent       *time.Time        `json:"sent,omitempty"`
}

type pendingQuestionRepr struct {
	QuestionID string            `json:"question_id"`
	Response   json.RawMessage   `json:"response"`
	Recipient  message.Recipient `json:"social_details"`
	Sent       *time.Time        `json:"sent,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p PendingQuestionToAnswer) MarshalJSON() ([]byte, error) {
	var encoded json.RawMessage
	if p.Response != nil {
		data, err := message.Encode(p.Response)
		if err != nil {
			return nil, fmt.Errorf("encode pending question response: %w", err)
		}
		encoded = data
	}

	return json.Marshal(pendingQuestionRepr{
		QuestionID: p.QuestionID,
		Response:   encoded,
		Recipient:  p.Recipient,
		Sent:       p.Sent,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PendingQuestionToAnswer) UnmarshalJSON(data []byte) error {
	var repr pendingQuestionRepr
	if err := json.Unmarshal(data, &repr); err != nil {
		return fmt.Errorf("decode pending question: %w", err)
	}

	var resp message.Response
	if len(repr.Response) > 0 && string(repr.Response) != "null" {
		decoded, err := message.Decode(repr.Response)
		if err != nil {
			return fmt.Errorf("decode pending question response: %w", err)
		}
		resp = decoded
	}

	*p = PendingQuestionToAnswer{
		QuestionID: repr.QuestionID,
		Response:   resp,
		Recipient:  repr.Recipient,
		Sent:       repr.Sent,
	}
	return nil
}

// IsDue reports whether the reminder window has elapsed since the defer
// click. An item with no Sent timestamp is never due.
func (p *PendingQuestionToAnswer) IsDue(now time.Time, window time.Duration) bool {
	if p.Sent == nil {
		return false
	}
	return now.Sub(*p.Sent) >= window
}

// PendingWenetMessage is a platform notification queued for delayed
// delivery because the recipient was mid-flow when it arrived. It is
// delivered on the next reconciliation pass once the user is idle.
type PendingWenetMessage struct {
	ID        string            `json:"id"`
	Responses message.Responses `json:"responses"`
	Recipient message.Recipient `json:"social_details"`
}

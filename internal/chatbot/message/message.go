package message

import "context"

// Recipient identifies where an outgoing response is delivered: the WeNet
// user the context belongs to and the Telegram chat behind it.
type Recipient struct {
	AppID  string `json:"app_id"`
	UserID string `json:"user_id"`
	ChatID int64  `json:"chat_id"`
}

// Response is one outgoing message. Concrete kinds are TextualResponse,
// MultiChoiceResponse and UrlImageResponse.
type Response interface {
	kind() string
}

// TextualResponse is a plain text message.
type TextualResponse struct {
	Text string `json:"text"`
}

// Option is one inline choice of a multi-choice response. Key is the cache
// key of the button payload describing what clicking it means.
type Option struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}

// MultiChoiceResponse is a message with inline choice buttons laid out
// RowSize per row.
type MultiChoiceResponse struct {
	Text    string   `json:"text"`
	Options []Option `json:"options"`
	RowSize int      `json:"row_size,omitempty"`
}

// UrlImageResponse is an image delivered by URL with an optional caption.
type UrlImageResponse struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

func (TextualResponse) kind() string     { return kindText }
func (MultiChoiceResponse) kind() string { return kindMultiChoice }
func (UrlImageResponse) kind() string    { return kindURLImage }

// Sender delivers responses to the social platform. Implemented by the
// Telegram connector; handlers and the reconciliation job depend only on
// this interface.
type Sender interface {
	Send(ctx context.Context, to Recipient, responses []Response) error
}

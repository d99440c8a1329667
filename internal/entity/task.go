package entity

// Task is a WeNet help-request record. Attributes carry the question
// qualifiers collected during the dialogue (domain, similarity answers,
// sensitivity, anonymity, closeness, position scope).
type Task struct {
	ID           string         `json:"id,omitempty"`
	AppID        string         `json:"appId"`
	RequesterID  string         `json:"requesterId"`
	TaskTypeID   string         `json:"taskTypeId"`
	Goal         TaskGoal       `json:"goal"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	CommunityID  string         `json:"communityId,omitempty"`
	CloseTs      *int64         `json:"closeTs,omitempty"`
	Transactions []Transaction  `json:"transactions,omitempty"`
}

// TaskGoal holds the question text itself.
type TaskGoal struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Transaction is an action taken against a task (an answer, a report,
// a not-interested mark).
type Transaction struct {
	ID         string         `json:"id,omitempty"`
	TaskID     string         `json:"taskId"`
	ActioneeID string         `json:"actioneerId"`
	Label      string         `json:"label"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Transaction labels understood by the ask-for-help task type.
const (
	TransactionLabelAnswer        = "answerTransaction"
	TransactionLabelNotInterested = "notAnswerTransaction"
	TransactionLabelReport        = "reportQuestionTransaction"
)

// UserProfile is the subset of a WeNet profile the bot needs.
type UserProfile struct {
	ID    string      `json:"id"`
	Name  ProfileName `json:"name"`
	Email string      `json:"email,omitempty"`
}

// ProfileName is the structured name block of a profile.
type ProfileName struct {
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
}

// FirstName returns the display name for outgoing messages, falling back
// to the profile id when the name block is empty.
func (p *UserProfile) FirstName() string {
	if p == nil {
		return ""
	}
	if p.Name.First != "" {
		return p.Name.First
	}
	return p.ID
}

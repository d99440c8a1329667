package state

// State is the dialogue position persisted in a user's conversation
// context. The zero value means the user is idle.
type State string

// Dialogue states
const (
	StateIdle State = ""

	// Question-asking flow: the value names the question currently
	// awaiting its answer.
	StateQuestion1  State = "question_1"
	StateQuestion2  State = "question_2"
	StateQuestion3  State = "question_3"
	StateQuestion4  State = "question_4"
	StateQuestion41 State = "question_4_1"
	StateQuestion5  State = "question_5"
	StateQuestion6  State = "question_6"

	// Answer flow
	StateAnswering            State = "answering"
	StateAnsweringSensitive   State = "answering_sensitive"
	StateAnsweringAnonymously State = "answering_anonymously"
)

var busyStates = map[State]bool{
	StateQuestion1:            true,
	StateQuestion2:            true,
	StateQuestion3:            true,
	StateQuestion4:            true,
	StateQuestion41:           true,
	StateQuestion5:            true,
	StateQuestion6:            true,
	StateAnswering:            true,
	StateAnsweringSensitive:   true,
	StateAnsweringAnonymously: true,
}

// IsBusy reports whether the state is mid-dialogue. Busy users are skipped
// by the reconciliation job so a reminder never interrupts a flow.
func (s State) IsBusy() bool {
	return busyStates[s]
}

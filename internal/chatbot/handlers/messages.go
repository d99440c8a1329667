package handlers

// Translation keys resolved against the locale catalogs.
const (
	msgWelcome          = "welcome"
	msgHelp             = "help"
	msgInfo             = "info"
	msgCancelled        = "flow_cancelled"
	msgNothingToCancel  = "nothing_to_cancel"
	msgNotUnderstood    = "not_understood"
	msgErrorGeneric     = "error_generic"
	msgErrorLogin       = "error_login"
	msgTextExpected     = "text_expected"

	msgQuestionPreamble       = "question_preamble"
	msgQuestionAskText        = "question_ask_text"
	msgQuestionAskDomain      = "question_ask_domain"
	msgQuestionAskInterest    = "question_ask_domain_interest"
	msgQuestionAskBeliefs     = "question_ask_belief_similarity"
	msgQuestionAskSensitivity = "question_ask_sensitivity"
	msgQuestionAskAnonymity   = "question_ask_anonymity"
	msgQuestionAskCloseness   = "question_ask_social_closeness"
	msgQuestionAskPlace       = "question_ask_place"
	msgQuestionCreated        = "question_created"
	msgQuestionCreateFailed   = "question_create_failed"

	msgNewQuestion        = "new_question_notification"
	msgAnswerExplainer    = "answer_explainer"
	msgAnswerPrompt       = "answer_prompt"
	msgAnswerAskAnonymity = "answer_ask_anonymity"
	msgAnswerSubmitted    = "answer_submitted"
	msgAnswerFailed       = "answer_failed"
	msgAnswerRemindSet    = "answer_remind_set"
	msgAnswerReceived     = "answered_notification"
	msgNotInterestedAck   = "not_interested_ack"
	msgReportAck          = "report_ack"

	// Button labels
	lblSimilar       = "button_similar"
	lblIndifferent   = "button_indifferent"
	lblDifferent     = "button_different"
	lblSensitive     = "button_sensitive"
	lblNotSensitive  = "button_not_sensitive"
	lblAnonymous     = "button_anonymous"
	lblNotAnonymous  = "button_not_anonymous"
	lblNearby        = "button_nearby"
	lblAnywhere      = "button_anywhere"
	lblAnswer        = "button_answer"
	lblRemindLater   = "button_remind_later"
	lblNotInterested = "button_not_interested"
	lblReport        = "button_report"
	lblPublishAnon   = "button_publish_anonymously"
	lblPublishName   = "button_publish_with_name"
)

// domainLabelKey maps a domain intent to its button label key
// ("domain_academic_skills" and friends).
func domainLabelKey(domain string) string {
	return "domain_" + domain
}

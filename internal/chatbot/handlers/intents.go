package handlers

import "regexp"

// Intents produced upstream (command mapping, button payloads, WeNet
// callbacks). The bot consumes them pre-classified.
const (
	IntentStart    = "/start"
	IntentHelp     = "/help"
	IntentInfo     = "/info"
	IntentCancel   = "/cancel"
	IntentQuestion = "/question"

	// Question domains offered at question_2
	IntentAcademicSkills      = "academic_skills"
	IntentBasicNeeds          = "basic_needs"
	IntentPhysicalActivity    = "physical_activity"
	IntentAppreciatingCulture = "appreciating_culture"
	IntentRandomThoughts      = "random_thoughts"
	IntentProducingMedia      = "producing_media"
	IntentLeisureActivities   = "leisure_activities"
	IntentCampusLife          = "campus_life"
	IntentSenseOfPurpose      = "sense_of_purpose"
	IntentPerformingArts      = "performing_arts"
	IntentLifePonderings      = "life_ponderings"

	// Similarity answers, reused at question_3, question_4 and question_6;
	// only the state disambiguates them.
	IntentSimilar     = "similar"
	IntentIndifferent = "indifferent"
	IntentDifferent   = "different"

	IntentSensitive    = "sensitive"
	IntentNotSensitive = "not_sensitive"

	IntentAnonymous    = "anonymous"
	IntentNotAnonymous = "not_anonymous"

	IntentAskToNearby   = "nearby"
	IntentAskToAnywhere = "anywhere"

	// Answer-flow buttons
	IntentAnswerQuestion      = "answer_question"
	IntentAnswerRemindLater   = "answer_remind_later"
	IntentAnswerNotInterested = "answer_not_interested"
	IntentQuestionReport      = "question_report"

	// Anonymity choice when publishing an answer
	IntentPublishAnonymously = "publish_anonymously"
	IntentPublishWithName    = "publish_with_name"
)

// QuestionDomains lists the 11 domain intents in presentation order.
var QuestionDomains = []string{
	IntentAcademicSkills,
	IntentBasicNeeds,
	IntentPhysicalActivity,
	IntentAppreciatingCulture,
	IntentRandomThoughts,
	IntentProducingMedia,
	IntentLeisureActivities,
	IntentCampusLife,
	IntentSenseOfPurpose,
	IntentPerformingArts,
	IntentLifePonderings,
}

var (
	domainIntentRe     = regexp.MustCompile(`^(academic_skills|basic_needs|physical_activity|appreciating_culture|random_thoughts|producing_media|leisure_activities|campus_life|sense_of_purpose|performing_arts|life_ponderings)$`)
	similarityIntentRe = regexp.MustCompile(`^(similar|indifferent|different)$`)
	anyIntentRe        = regexp.MustCompile(`.*`)
)

// Payload data keys used by cached button payloads.
const (
	payloadKeyTaskID    = "task_id"
	payloadKeyQuestion  = "question"
	payloadKeySensitive = "sensitive"
	payloadKeyNearby    = "nearby"
)

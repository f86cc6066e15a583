package model

import "time"

type Verdict string

const (
	VerdictNotEligible      Verdict = "not_eligible"
	VerdictPossiblyEligible Verdict = "possibly_eligible"
)

// Screening is a finished questionnaire handed to the eligibility consumers.
type Screening struct {
	ID          string       `json:"id"`
	UserID      int64        `json:"userID"`
	Answers     AnswerRecord `json:"answers"`
	Verdict     Verdict      `json:"verdict"`
	AgeParsed   bool         `json:"ageParsed"` // false when the age answer held no leading integer
	CompletedAt time.Time    `json:"completedAt"`
}

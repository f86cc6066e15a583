package model

import "strings"

// Question ids the transition rules are bound to.
const (
	QuestionAge           = "age"
	QuestionGender        = "gender"
	QuestionBloodGroup    = "blood_group"
	QuestionWeight        = "weight"
	QuestionDonatedBefore = "donated_before"
	QuestionDonationCount = "donation_count"
	QuestionLastDonation  = "last_donation"
	QuestionChronic       = "chronic"
	QuestionSurgery       = "surgery"
	QuestionWilling       = "willing"
)

// Question is one entry of the ordered questionnaire.
type Question struct {
	ID     string `json:"id" yaml:"id"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

// AnswerRecord maps a question id to the normalized answer text.
type AnswerRecord map[string]string

// Clone returns a copy that is safe to hand to other goroutines.
func (a AnswerRecord) Clone() AnswerRecord {
	out := make(AnswerRecord, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// DefaultQuestions is the blood donation screening questionnaire.
func DefaultQuestions() []Question {
	return []Question{
		{ID: QuestionAge, Prompt: "What is your age?"},
		{ID: QuestionGender, Prompt: "What is your gender?"},
		{ID: QuestionBloodGroup, Prompt: "What is your blood group?"},
		{ID: QuestionWeight, Prompt: "What is your weight in kg?"},
		{ID: QuestionDonatedBefore, Prompt: "Have you donated blood before? (yes/no)"},
		{ID: QuestionDonationCount, Prompt: "How many times have you donated blood?"},
		{ID: QuestionLastDonation, Prompt: "When was your last blood donation? (days)"},
		{ID: QuestionChronic, Prompt: "Do you have any chronic disease?"},
		{ID: QuestionSurgery, Prompt: "Have you had surgery in last 6 months?"},
		{ID: QuestionWilling, Prompt: "Are you willing to donate blood in future?"},
	}
}

// ValidateQuestions checks that the list is non-empty and every question has
// a unique id and a prompt.
func ValidateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return ErrEmptyQuestionnaire
	}
	seen := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		if strings.TrimSpace(q.ID) == "" || strings.TrimSpace(q.Prompt) == "" {
			return &QuestionError{Index: i, ID: q.ID, Err: ErrInvalidQuestion}
		}
		if _, ok := seen[q.ID]; ok {
			return &QuestionError{Index: i, ID: q.ID, Err: ErrDuplicateQuestion}
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

package flow

import "DonorBot/model"

// SkipHistoryStep moves the cursor past donation_count and last_donation.
const SkipHistoryStep = 3

// Transition is the outcome of answering one question.
type Transition struct {
	Step   int    // how far the cursor moves, at least 1
	Notice string // bot message emitted right away, if any
	Speech string // utterance for the notice
}

// Rule is bound to one question id. Apply reports false to let the next
// rule (or the default single step) decide.
type Rule struct {
	QuestionID string
	Apply      func(answer string) (Transition, bool)
}

// DefaultRules returns the age notice and the donation history skip.
func DefaultRules() []Rule {
	return []Rule{
		{QuestionID: model.QuestionAge, Apply: ageRule},
		{QuestionID: model.QuestionDonatedBefore, Apply: donatedBeforeRule},
	}
}

func ageRule(answer string) (Transition, bool) {
	t := Transition{Step: 1}
	if age, ok := ParseAge(answer); ok && age < MinimumAge {
		t.Notice = msgUnderage
		t.Speech = speechUnderage
	}
	return t, true
}

func donatedBeforeRule(answer string) (Transition, bool) {
	if answer != "no" {
		return Transition{}, false
	}
	return Transition{
		Step:   SkipHistoryStep,
		Notice: msgSkipHistory,
		Speech: speechSkipHistory,
	}, true
}

// evaluate applies the first matching rule for the answered question.
func evaluate(rules []Rule, questionID, answer string) Transition {
	for _, r := range rules {
		if r.QuestionID != questionID || r.Apply == nil {
			continue
		}
		if t, ok := r.Apply(answer); ok {
			if t.Step < 1 {
				t.Step = 1
			}
			return t
		}
	}
	return Transition{Step: 1}
}

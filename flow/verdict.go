package flow

import (
	"DonorBot/model"
	"math"
	"strconv"
	"strings"
)

// MinimumAge is the youngest age allowed to donate.
const MinimumAge = 18

// ParseAge reads the leading integer of s: an optional sign followed by
// digits, ignoring whatever comes after ("25 years" is 25). It reports
// false when s does not start with a number.
func ParseAge(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// only a range error is possible here
		if s[0] == '-' {
			return math.MinInt, true
		}
		return math.MaxInt, true
	}
	return n, true
}

// Decide computes the final verdict from the recorded age. A missing or
// non-numeric age is not "under 18", so it lands on possibly eligible;
// ageParsed tells the consumer when that happened.
func Decide(answers model.AnswerRecord) (verdict model.Verdict, ageParsed bool) {
	age, ok := ParseAge(answers[model.QuestionAge])
	if ok && age < MinimumAge {
		return model.VerdictNotEligible, true
	}
	return model.VerdictPossiblyEligible, ok
}

// Normalize trims and lowercases raw input.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

package model

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput = errors.New("empty input")
	ErrBusy       = errors.New("waiting for the next question")
	ErrFinished   = errors.New("questionnaire already finished")
	ErrNotStarted = errors.New("questionnaire not started")

	ErrEmptyQuestionnaire = errors.New("questionnaire has no questions")
	ErrDuplicateQuestion  = errors.New("duplicate question id")
	ErrInvalidQuestion    = errors.New("question needs an id and a prompt")

	ErrScreeningNotFound = errors.New("screening does not exist")
)

// QuestionError points at the questionnaire entry that failed validation.
type QuestionError struct {
	Index int
	ID    string
	Err   error
}

func (e *QuestionError) Error() string {
	return fmt.Sprintf("question %d (%q): %v", e.Index, e.ID, e.Err)
}

func (e *QuestionError) Unwrap() error {
	return e.Err
}

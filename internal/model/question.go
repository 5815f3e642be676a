package model

const (
	QuestionKindMCQ         = "mcq"
	QuestionKindShortAnswer = "short_answer"
)

// Question is a tagged variant: Kind selects which of the remaining
// fields are meaningful. MCQ questions carry Options and optionally
// CorrectOptionIndex; short-answer questions carry AnswerText.
type Question struct {
	ID                 string   `json:"id"`
	Kind               string   `json:"kind"`
	Text               string   `json:"text"`
	Options            []string `json:"options,omitempty"`
	CorrectOptionIndex *int     `json:"correctOptionIndex,omitempty"`
	AnswerText         string   `json:"answerText,omitempty"`
}

// Clone returns a copy that shares no mutable substructure with q.
func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = append([]string(nil), q.Options...)
	}
	if q.CorrectOptionIndex != nil {
		idx := *q.CorrectOptionIndex
		out.CorrectOptionIndex = &idx
	}
	return out
}

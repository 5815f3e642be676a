package dto

// CreateSubjectRequest creates a new top-level subject.
type CreateSubjectRequest struct {
	Name string `json:"name" binding:"required"`
}

type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}

// DeleteConfirmRequest guards destructive cascade deletes: the client
// must echo the entity name back. A mismatch blocks the action and can
// be re-prompted.
type DeleteConfirmRequest struct {
	Confirm string `json:"confirm" binding:"required"`
}

type CreateLectureRequest struct {
	Name string `json:"name" binding:"required"`
}

// ReorderLectureRequest moves a lecture to sit immediately before the
// target lecture within the same subject.
type ReorderLectureRequest struct {
	MovedID  string `json:"moved_id" binding:"required"`
	TargetID string `json:"target_id" binding:"required"`
}

type UpdateQuestionRequest struct {
	Text               string   `json:"text" binding:"required"`
	Options            []string `json:"options"`
	CorrectOptionIndex *int     `json:"correct_option_index"`
	AnswerText         string   `json:"answer_text"`
}

type SelectQuestionRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
}

// EditStagedQuestionRequest is a partial edit; omitted fields are left
// untouched. A correct_option_index of -1 clears the mark.
type EditStagedQuestionRequest struct {
	Text               *string   `json:"text"`
	Options            *[]string `json:"options"`
	CorrectOptionIndex *int      `json:"correct_option_index"`
	AnswerText         *string   `json:"answer_text"`
}

type CommitStagingRequest struct {
	SubjectID string `json:"subject_id" binding:"required"`
	LectureID string `json:"lecture_id" binding:"required"`
}

type ExportRequest struct {
	LectureIDs  []string `json:"lecture_ids" binding:"required,min=1"`
	BaseSize    float64  `json:"base_size"`
	ShowAnswers bool     `json:"show_answers"`
}

type SetViewRequest struct {
	SubjectID string `json:"subject_id" binding:"required"`
}

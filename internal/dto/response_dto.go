package dto

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// QuestionDTO mirrors the stored question shape for API consumers.
type QuestionDTO struct {
	ID                 string   `json:"id"`
	Kind               string   `json:"kind"`
	Text               string   `json:"text"`
	Options            []string `json:"options,omitempty"`
	CorrectOptionIndex *int     `json:"correct_option_index,omitempty"`
	AnswerText         string   `json:"answer_text,omitempty"`
}

type LectureDTO struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Questions []QuestionDTO `json:"questions"`
}

type SubjectDTO struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Lectures []LectureDTO `json:"lectures"`
}

type LibraryResponse struct {
	Subjects []SubjectDTO `json:"subjects"`
}

// StatusResponse reports the sync engine state plus the navigation
// selection owned by the API layer.
type StatusResponse struct {
	State            string `json:"state"`
	SaveState        string `json:"save_state"`
	LoadWarning      string `json:"load_warning,omitempty"`
	LoadError        string `json:"load_error,omitempty"`
	LastSaveError    string `json:"last_save_error,omitempty"`
	CurrentSubjectID string `json:"current_subject_id,omitempty"`
}

type CommitResponse struct {
	Committed int `json:"committed"`
}

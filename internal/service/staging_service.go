package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/lshigami/Quokkas/internal/model"
	"github.com/rs/zerolog/log"
)

// StagingSession holds freshly extracted, not-yet-committed questions
// for one "add questions" batch, plus the user's selection among them.
type StagingSession struct {
	ID       string                   `json:"id"`
	Results  []model.ExtractionResult `json:"results"`
	Selected map[string]bool          `json:"selected"`
}

// DraftEdit is a partial in-place edit of a staged question. Nil
// fields are left untouched; CorrectOptionIndex of -1 clears the mark.
type DraftEdit struct {
	Text               *string   `json:"text"`
	Options            *[]string `json:"options"`
	CorrectOptionIndex *int      `json:"correct_option_index"`
	AnswerText         *string   `json:"answer_text"`
}

// StagingService manages the review phase between extraction and the
// library: select, edit, then commit into a chosen lecture.
type StagingService interface {
	CreateSession(ctx context.Context, images []StagedImage) (*StagingSession, error)
	Session(id string) (*StagingSession, error)
	ToggleSelect(sessionID, questionID string) error
	SelectAll(sessionID string) error
	DeselectAll(sessionID string) error
	UpdateDraft(sessionID, questionID string, edit DraftEdit) error
	Commit(sessionID, subjectID, lectureID string) (int, error)
	Drop(sessionID string)
}

type stagingService struct {
	extractor ExtractionService
	engine    SyncEngine

	mu       sync.RWMutex
	sessions map[string]*StagingSession
}

func NewStagingService(extractor ExtractionService, engine SyncEngine) StagingService {
	return &stagingService{
		extractor: extractor,
		engine:    engine,
		sessions:  make(map[string]*StagingSession),
	}
}

func (s *stagingService) CreateSession(ctx context.Context, images []StagedImage) (*StagingSession, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images uploaded")
	}

	results := s.extractor.ExtractBatch(ctx, images)

	session := &StagingSession{
		ID:       uuid.NewString(),
		Results:  results,
		Selected: make(map[string]bool),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	log.Info().Str("session", session.ID).Int("images", len(images)).Msg("Staging session created")
	return session, nil
}

func (s *stagingService) Session(id string) (*StagingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("staging session %s not found", id)
	}
	return session, nil
}

func (s *stagingService) ToggleSelect(sessionID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("staging session %s not found", sessionID)
	}
	if findStagedQuestion(session, questionID) == nil {
		return fmt.Errorf("staged question %s not found", questionID)
	}
	if session.Selected[questionID] {
		delete(session.Selected, questionID)
	} else {
		session.Selected[questionID] = true
	}
	return nil
}

func (s *stagingService) SelectAll(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("staging session %s not found", sessionID)
	}
	for _, res := range session.Results {
		for _, q := range res.Questions {
			session.Selected[q.ID] = true
		}
	}
	return nil
}

func (s *stagingService) DeselectAll(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("staging session %s not found", sessionID)
	}
	session.Selected = make(map[string]bool)
	return nil
}

func (s *stagingService) UpdateDraft(sessionID, questionID string, edit DraftEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("staging session %s not found", sessionID)
	}
	q := findStagedQuestion(session, questionID)
	if q == nil {
		return fmt.Errorf("staged question %s not found", questionID)
	}

	if edit.Text != nil {
		q.Text = *edit.Text
	}
	if edit.Options != nil {
		q.Options = append([]string(nil), (*edit.Options)...)
	}
	if edit.AnswerText != nil {
		q.AnswerText = *edit.AnswerText
	}
	if edit.CorrectOptionIndex != nil {
		idx := *edit.CorrectOptionIndex
		switch {
		case idx < 0:
			q.CorrectOptionIndex = nil
		case idx >= len(q.Options):
			return fmt.Errorf("correct option index %d out of range (have %d options)", idx, len(q.Options))
		default:
			q.CorrectOptionIndex = &idx
		}
	}
	return nil
}

// Commit moves the selected questions into the chosen lecture with
// fresh persisted ids and removes them from staging. Results with
// nothing left and no error are dropped; errored results stay visible.
// MCQ drafts with no options fail the commit-time invariant and are
// left staged.
func (s *stagingService) Commit(sessionID, subjectID, lectureID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return 0, fmt.Errorf("staging session %s not found", sessionID)
	}

	var picked []model.Question
	committed := make(map[string]bool)
	for _, res := range session.Results {
		for _, q := range res.Questions {
			if !session.Selected[q.ID] {
				continue
			}
			if q.Kind == model.QuestionKindMCQ && len(q.Options) == 0 {
				log.Warn().Str("question", q.ID).Msg("Skipping MCQ with no options at commit")
				continue
			}
			picked = append(picked, q.Clone())
			committed[q.ID] = true
		}
	}
	if len(picked) == 0 {
		return 0, fmt.Errorf("no committable questions selected")
	}

	applied := s.engine.Apply(func(lib model.Library) (model.Library, bool) {
		return AddQuestions(lib, subjectID, lectureID, picked)
	})
	if !applied {
		return 0, fmt.Errorf("subject %s or lecture %s not found", subjectID, lectureID)
	}

	remaining := session.Results[:0]
	for _, res := range session.Results {
		kept := make([]model.Question, 0, len(res.Questions))
		for _, q := range res.Questions {
			if !committed[q.ID] {
				kept = append(kept, q)
			}
		}
		res.Questions = kept
		if len(kept) == 0 && res.Err == "" {
			continue
		}
		remaining = append(remaining, res)
	}
	session.Results = remaining
	for id := range committed {
		delete(session.Selected, id)
	}

	log.Info().Str("session", sessionID).Int("count", len(picked)).Msg("Staged questions committed")
	return len(picked), nil
}

func (s *stagingService) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func findStagedQuestion(session *StagingSession, questionID string) *model.Question {
	for ri := range session.Results {
		for qi := range session.Results[ri].Questions {
			if session.Results[ri].Questions[qi].ID == questionID {
				return &session.Results[ri].Questions[qi]
			}
		}
	}
	return nil
}

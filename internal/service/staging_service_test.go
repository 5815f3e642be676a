package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/lshigami/Quokkas/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedExtractor returns canned drafts (or failures) per image name.
type scriptedExtractor struct {
	drafts map[string][]model.QuestionDraft
	fail   map[string]bool
}

func (s *scriptedExtractor) Extract(ctx context.Context, data []byte, mimeType string) ([]model.QuestionDraft, error) {
	return nil, fmt.Errorf("not used in tests")
}

func (s *scriptedExtractor) ExtractBatch(ctx context.Context, images []StagedImage) []model.ExtractionResult {
	results := make([]model.ExtractionResult, len(images))
	for i, img := range images {
		if s.fail[img.Name] {
			results[i] = model.ExtractionResult{SourceImage: img.Name, Questions: []model.Question{}, Err: "quota exceeded"}
			continue
		}
		results[i] = model.ExtractionResult{SourceImage: img.Name, Questions: DraftsToQuestions(s.drafts[img.Name])}
	}
	return results
}

func stagingFixture(t *testing.T) (StagingService, SyncEngine, string, string) {
	t.Helper()

	engine := NewSyncEngine(testSyncConfig(), &fakeRemoteStore{}, &fakeCredentials{token: "tok"}, &fakeMirror{})
	engine.Apply(func(lib model.Library) (model.Library, bool) { return AddSubject(lib, "Math") })
	subjectID := engine.Snapshot()[0].ID
	engine.Apply(func(lib model.Library) (model.Library, bool) { return AddLecture(lib, subjectID, "Algebra") })
	lectureID := engine.Snapshot()[0].Lectures[0].ID

	extractor := &scriptedExtractor{
		drafts: map[string][]model.QuestionDraft{
			"page1.png": {
				{Kind: model.QuestionKindMCQ, Question: "2+2?", Options: []string{"3", "4"}},
				{Kind: model.QuestionKindShortAnswer, Question: "Define x.", Answer: "unknown"},
			},
			"page3.png": {
				{Kind: model.QuestionKindShortAnswer, Question: "Simplify 2x+2x.", Answer: "4x"},
			},
		},
		fail: map[string]bool{"page2.png": true},
	}
	return NewStagingService(extractor, engine), engine, subjectID, lectureID
}

func uploadBatch() []StagedImage {
	return []StagedImage{
		{Name: "page1.png", Mime: "image/png"},
		{Name: "page2.png", Mime: "image/png"},
		{Name: "page3.png", Mime: "image/png"},
	}
}

func TestBatchFailureIsPositionalAndIsolated(t *testing.T) {
	staging, _, _, _ := stagingFixture(t)

	session, err := staging.CreateSession(context.Background(), uploadBatch())
	require.NoError(t, err)

	require.Len(t, session.Results, 3)
	assert.Len(t, session.Results[0].Questions, 2)
	assert.Empty(t, session.Results[0].Err)

	assert.Empty(t, session.Results[1].Questions)
	assert.NotEmpty(t, session.Results[1].Err, "the failed image carries its own error")

	assert.Len(t, session.Results[2].Questions, 1)
	assert.Empty(t, session.Results[2].Err)
}

func TestSelectEditCommitFlow(t *testing.T) {
	staging, engine, subjectID, lectureID := stagingFixture(t)

	session, err := staging.CreateSession(context.Background(), uploadBatch())
	require.NoError(t, err)

	require.NoError(t, staging.SelectAll(session.ID))

	// Fix up a draft before committing: mark the right MCQ option.
	mcq := session.Results[0].Questions[0]
	idx := 1
	require.NoError(t, staging.UpdateDraft(session.ID, mcq.ID, DraftEdit{CorrectOptionIndex: &idx}))

	committed, err := staging.Commit(session.ID, subjectID, lectureID)
	require.NoError(t, err)
	assert.Equal(t, 3, committed)

	qs := engine.Snapshot()[0].Lectures[0].Questions
	require.Len(t, qs, 3)
	for _, q := range qs {
		assert.NotEqual(t, mcq.ID, q.ID, "persisted ids are fresh, staged ids are discarded")
	}
	require.NotNil(t, qs[0].CorrectOptionIndex)
	assert.Equal(t, 1, *qs[0].CorrectOptionIndex)

	// Committed questions leave staging; the errored result stays visible.
	after, err := staging.Session(session.ID)
	require.NoError(t, err)
	require.Len(t, after.Results, 1)
	assert.NotEmpty(t, after.Results[0].Err)
	assert.Empty(t, after.Selected)
}

func TestCommitSkipsMCQWithoutOptions(t *testing.T) {
	staging, engine, subjectID, lectureID := stagingFixture(t)

	session, err := staging.CreateSession(context.Background(), uploadBatch())
	require.NoError(t, err)

	mcq := session.Results[0].Questions[0]
	empty := []string{}
	require.NoError(t, staging.UpdateDraft(session.ID, mcq.ID, DraftEdit{Options: &empty}))
	require.NoError(t, staging.SelectAll(session.ID))

	committed, err := staging.Commit(session.ID, subjectID, lectureID)
	require.NoError(t, err)
	assert.Equal(t, 2, committed, "the optionless MCQ fails the commit invariant")

	// It stays staged for the user to repair.
	after, err := staging.Session(session.ID)
	require.NoError(t, err)
	found := false
	for _, res := range after.Results {
		for _, q := range res.Questions {
			if q.ID == mcq.ID {
				found = true
			}
		}
	}
	assert.True(t, found)
	assert.Len(t, engine.Snapshot()[0].Lectures[0].Questions, 2)
}

func TestCommitToMissingLectureFails(t *testing.T) {
	staging, _, subjectID, _ := stagingFixture(t)

	session, err := staging.CreateSession(context.Background(), uploadBatch())
	require.NoError(t, err)
	require.NoError(t, staging.SelectAll(session.ID))

	_, err = staging.Commit(session.ID, subjectID, "missing-lecture")
	assert.Error(t, err)
}

func TestToggleSelect(t *testing.T) {
	staging, _, _, _ := stagingFixture(t)

	session, err := staging.CreateSession(context.Background(), uploadBatch())
	require.NoError(t, err)
	qid := session.Results[0].Questions[0].ID

	require.NoError(t, staging.ToggleSelect(session.ID, qid))
	assert.True(t, session.Selected[qid])
	require.NoError(t, staging.ToggleSelect(session.ID, qid))
	assert.False(t, session.Selected[qid])

	assert.Error(t, staging.ToggleSelect(session.ID, "missing"))
	assert.Error(t, staging.ToggleSelect("missing-session", qid))

	require.NoError(t, staging.SelectAll(session.ID))
	assert.Len(t, session.Selected, 3)
	require.NoError(t, staging.DeselectAll(session.ID))
	assert.Empty(t, session.Selected)
}

func TestUpdateDraftValidatesCorrectIndex(t *testing.T) {
	staging, _, _, _ := stagingFixture(t)

	session, err := staging.CreateSession(context.Background(), uploadBatch())
	require.NoError(t, err)
	mcq := session.Results[0].Questions[0]

	out := 7
	assert.Error(t, staging.UpdateDraft(session.ID, mcq.ID, DraftEdit{CorrectOptionIndex: &out}))

	clear := -1
	require.NoError(t, staging.UpdateDraft(session.ID, mcq.ID, DraftEdit{CorrectOptionIndex: &clear}))
	assert.Nil(t, session.Results[0].Questions[0].CorrectOptionIndex)
}

package service

import (
	"encoding/json"
	"testing"

	"github.com/lshigami/Quokkas/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestLibrary(t *testing.T) model.Library {
	t.Helper()

	lib := model.Library{}
	lib, ok := AddSubject(lib, "Biology")
	require.True(t, ok)
	lib, ok = AddSubject(lib, "History")
	require.True(t, ok)

	bio := lib[0].ID
	lib, ok = AddLecture(lib, bio, "Cells")
	require.True(t, ok)
	lib, ok = AddLecture(lib, bio, "Genetics")
	require.True(t, ok)
	lib, ok = AddLecture(lib, bio, "Evolution")
	require.True(t, ok)

	idx := 1
	lib, ok = AddQuestions(lib, bio, lib[0].Lectures[0].ID, []model.Question{
		{Kind: model.QuestionKindMCQ, Text: "What is the powerhouse of the cell?",
			Options: []string{"Nucleus", "Mitochondria", "Ribosome"}, CorrectOptionIndex: &idx},
		{Kind: model.QuestionKindShortAnswer, Text: "Define osmosis.", AnswerText: "Diffusion of water across a membrane."},
	})
	require.True(t, ok)

	return lib
}

func TestDeleteSubjectCascades(t *testing.T) {
	lib := buildTestLibrary(t)
	bio := lib[0]
	require.NotEmpty(t, bio.Lectures)
	require.NotEmpty(t, bio.Lectures[0].Questions)

	next, ok := DeleteSubject(lib, bio.ID)
	require.True(t, ok)
	require.Len(t, next, 1)
	assert.Equal(t, "History", next[0].Name)

	// Nothing referencing the deleted subject's children survives.
	for _, s := range next {
		for _, l := range s.Lectures {
			assert.NotEqual(t, bio.Lectures[0].ID, l.ID)
			for _, q := range l.Questions {
				assert.NotEqual(t, bio.Lectures[0].Questions[0].ID, q.ID)
			}
		}
	}
}

func TestMutationsLeaveOldSnapshotIntact(t *testing.T) {
	lib := buildTestLibrary(t)
	before, err := json.Marshal(lib)
	require.NoError(t, err)

	_, ok := RenameLecture(lib, lib[0].Lectures[0].ID, "Cell Biology")
	require.True(t, ok)
	_, ok = DeleteSubject(lib, lib[0].ID)
	require.True(t, ok)
	_, ok = AddQuestions(lib, lib[0].ID, lib[0].Lectures[1].ID, []model.Question{
		{Kind: model.QuestionKindShortAnswer, Text: "q", AnswerText: "a"},
	})
	require.True(t, ok)

	after, err := json.Marshal(lib)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after), "reducers must not mutate the input library")
}

func TestReorderLectureIsAPurePermutation(t *testing.T) {
	lib := buildTestLibrary(t)
	bio := lib[0].ID
	ids := func(l model.Library) []string {
		var out []string
		for _, lec := range l[0].Lectures {
			out = append(out, lec.ID)
		}
		return out
	}
	orig := ids(lib)
	require.Len(t, orig, 3)

	// Move the last lecture before the first.
	next, ok := ReorderLecture(lib, bio, orig[2], orig[0])
	require.True(t, ok)
	assert.Equal(t, []string{orig[2], orig[0], orig[1]}, ids(next))
	assert.ElementsMatch(t, orig, ids(next))

	// Moving a lecture before its own position is a no-op.
	same, ok := ReorderLecture(lib, bio, orig[1], orig[1])
	assert.False(t, ok)
	assert.Equal(t, orig, ids(same))

	// Unknown ids are silent no-ops.
	same, ok = ReorderLecture(lib, bio, "nope", orig[0])
	assert.False(t, ok)
	assert.Equal(t, orig, ids(same))
}

func TestReorderLectureMovesForward(t *testing.T) {
	lib := buildTestLibrary(t)
	bio := lib[0].ID
	a, b, c := lib[0].Lectures[0].ID, lib[0].Lectures[1].ID, lib[0].Lectures[2].ID

	next, ok := ReorderLecture(lib, bio, a, c)
	require.True(t, ok)
	got := []string{next[0].Lectures[0].ID, next[0].Lectures[1].ID, next[0].Lectures[2].ID}
	assert.Equal(t, []string{b, a, c}, got)
}

func TestLibraryJSONRoundTrip(t *testing.T) {
	lib := buildTestLibrary(t)

	raw, err := json.Marshal(lib)
	require.NoError(t, err)

	var back model.Library
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, lib, back, "round trip must be id-for-id, order-for-order")
}

func TestMissingIDsAreSilentNoOps(t *testing.T) {
	lib := buildTestLibrary(t)

	cases := []func() (model.Library, bool){
		func() (model.Library, bool) { return RenameSubject(lib, "missing", "x") },
		func() (model.Library, bool) { return DeleteSubject(lib, "missing") },
		func() (model.Library, bool) { return AddLecture(lib, "missing", "x") },
		func() (model.Library, bool) { return RenameLecture(lib, "missing", "x") },
		func() (model.Library, bool) { return DeleteLecture(lib, lib[0].ID, "missing") },
		func() (model.Library, bool) { return DeleteQuestion(lib, lib[0].ID, "missing", "missing") },
		func() (model.Library, bool) {
			return UpdateQuestion(lib, "missing", model.Question{Text: "x"})
		},
		func() (model.Library, bool) {
			return AddQuestions(lib, lib[0].ID, "missing", []model.Question{{Kind: model.QuestionKindShortAnswer, Text: "q"}})
		},
	}
	for i, run := range cases {
		got, changed := run()
		assert.False(t, changed, "case %d should not report a change", i)
		assert.Equal(t, lib, got, "case %d should return the library unchanged", i)
	}
}

func TestUpdateQuestionPreservesIDAndKind(t *testing.T) {
	lib := buildTestLibrary(t)
	q := lib[0].Lectures[0].Questions[0]

	next, ok := UpdateQuestion(lib, q.ID, model.Question{
		ID:   "attacker-chosen",
		Kind: model.QuestionKindShortAnswer,
		Text: "What organelle produces ATP?",
		Options: []string{
			"Nucleus", "Mitochondria", "Ribosome", "Golgi",
		},
	})
	require.True(t, ok)

	got := next[0].Lectures[0].Questions[0]
	assert.Equal(t, q.ID, got.ID)
	assert.Equal(t, q.Kind, got.Kind)
	assert.Equal(t, "What organelle produces ATP?", got.Text)
	assert.Len(t, got.Options, 4)
}

func TestAddQuestionsAssignsFreshIDs(t *testing.T) {
	lib := buildTestLibrary(t)
	staged := model.Question{ID: "staged-id", Kind: model.QuestionKindShortAnswer, Text: "q", AnswerText: "a"}

	next, ok := AddQuestions(lib, lib[0].ID, lib[0].Lectures[1].ID, []model.Question{staged})
	require.True(t, ok)

	qs := next[0].Lectures[1].Questions
	require.Len(t, qs, 1)
	assert.NotEqual(t, "staged-id", qs[0].ID)
	assert.NotEmpty(t, qs[0].ID)
}

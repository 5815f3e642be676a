package service

import (
	"github.com/google/uuid"
	"github.com/lshigami/Quokkas/internal/model"
)

// The library reducer: every operation takes the current Library value
// and returns a fresh one, leaving the input untouched so callers can
// keep old snapshots (the UI renders from them during transitions).
// Lookup misses are silent no-ops; the second return value reports
// whether anything changed so the HTTP layer can still answer 404.

func AddSubject(lib model.Library, name string) (model.Library, bool) {
	next := lib.Clone()
	next = append(next, model.Subject{
		ID:       uuid.NewString(),
		Name:     name,
		Lectures: []model.Lecture{},
	})
	return next, true
}

func RenameSubject(lib model.Library, id, name string) (model.Library, bool) {
	next := lib.Clone()
	for i := range next {
		if next[i].ID == id {
			next[i].Name = name
			return next, true
		}
	}
	return lib, false
}

// DeleteSubject removes the subject and, with it, every lecture and
// question underneath. Nothing is ever orphaned.
func DeleteSubject(lib model.Library, id string) (model.Library, bool) {
	next := lib.Clone()
	for i := range next {
		if next[i].ID == id {
			return append(next[:i], next[i+1:]...), true
		}
	}
	return lib, false
}

func AddLecture(lib model.Library, subjectID, name string) (model.Library, bool) {
	next := lib.Clone()
	for i := range next {
		if next[i].ID == subjectID {
			next[i].Lectures = append(next[i].Lectures, model.Lecture{
				ID:        uuid.NewString(),
				Name:      name,
				Questions: []model.Question{},
			})
			return next, true
		}
	}
	return lib, false
}

func RenameLecture(lib model.Library, lectureID, name string) (model.Library, bool) {
	next := lib.Clone()
	for i := range next {
		for j := range next[i].Lectures {
			if next[i].Lectures[j].ID == lectureID {
				next[i].Lectures[j].Name = name
				return next, true
			}
		}
	}
	return lib, false
}

func DeleteLecture(lib model.Library, subjectID, lectureID string) (model.Library, bool) {
	next := lib.Clone()
	for i := range next {
		if next[i].ID != subjectID {
			continue
		}
		for j := range next[i].Lectures {
			if next[i].Lectures[j].ID == lectureID {
				next[i].Lectures = append(next[i].Lectures[:j], next[i].Lectures[j+1:]...)
				return next, true
			}
		}
	}
	return lib, false
}

// ReorderLecture moves movedID to sit immediately before targetID
// within the subject's lecture sequence. A pure permutation: the
// multiset of lecture ids never changes. No-op when either id is
// absent or they are equal.
func ReorderLecture(lib model.Library, subjectID, movedID, targetID string) (model.Library, bool) {
	if movedID == targetID {
		return lib, false
	}
	next := lib.Clone()
	for i := range next {
		if next[i].ID != subjectID {
			continue
		}
		lectures := next[i].Lectures
		from, to := -1, -1
		for j := range lectures {
			switch lectures[j].ID {
			case movedID:
				from = j
			case targetID:
				to = j
			}
		}
		if from == -1 || to == -1 {
			return lib, false
		}
		moved := lectures[from]
		lectures = append(lectures[:from], lectures[from+1:]...)
		// Index of the target after the removal above.
		to = indexOfLecture(lectures, targetID)
		lectures = append(lectures[:to], append([]model.Lecture{moved}, lectures[to:]...)...)
		next[i].Lectures = lectures
		return next, true
	}
	return lib, false
}

func indexOfLecture(lectures []model.Lecture, id string) int {
	for i := range lectures {
		if lectures[i].ID == id {
			return i
		}
	}
	return -1
}

// AddQuestions appends the given questions to the lecture, assigning
// each a fresh id. The inputs are staged/draft questions; their staged
// ids are discarded.
func AddQuestions(lib model.Library, subjectID, lectureID string, questions []model.Question) (model.Library, bool) {
	if len(questions) == 0 {
		return lib, false
	}
	next := lib.Clone()
	for i := range next {
		if next[i].ID != subjectID {
			continue
		}
		for j := range next[i].Lectures {
			if next[i].Lectures[j].ID == lectureID {
				for _, q := range questions {
					fresh := q.Clone()
					fresh.ID = uuid.NewString()
					next[i].Lectures[j].Questions = append(next[i].Lectures[j].Questions, fresh)
				}
				return next, true
			}
		}
	}
	return lib, false
}

// UpdateQuestion replaces the content of the question with the given
// id. The stored id and kind are preserved; text, options, correct
// option and answer text come from newContent.
func UpdateQuestion(lib model.Library, questionID string, newContent model.Question) (model.Library, bool) {
	next := lib.Clone()
	for i := range next {
		for j := range next[i].Lectures {
			for k := range next[i].Lectures[j].Questions {
				q := &next[i].Lectures[j].Questions[k]
				if q.ID != questionID {
					continue
				}
				updated := newContent.Clone()
				updated.ID = q.ID
				updated.Kind = q.Kind
				*q = updated
				return next, true
			}
		}
	}
	return lib, false
}

func DeleteQuestion(lib model.Library, subjectID, lectureID, questionID string) (model.Library, bool) {
	next := lib.Clone()
	for i := range next {
		if next[i].ID != subjectID {
			continue
		}
		for j := range next[i].Lectures {
			if next[i].Lectures[j].ID != lectureID {
				continue
			}
			qs := next[i].Lectures[j].Questions
			for k := range qs {
				if qs[k].ID == questionID {
					next[i].Lectures[j].Questions = append(qs[:k], qs[k+1:]...)
					return next, true
				}
			}
		}
	}
	return lib, false
}

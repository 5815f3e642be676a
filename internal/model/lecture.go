package model

// Lecture groups questions in user-chosen order. The order is
// significant and must survive every mutation.
type Lecture struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

func (l Lecture) Clone() Lecture {
	out := l
	out.Questions = make([]Question, len(l.Questions))
	for i, q := range l.Questions {
		out.Questions[i] = q.Clone()
	}
	return out
}

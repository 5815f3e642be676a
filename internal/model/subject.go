package model

// Subject is the top level of the library tree.
type Subject struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Lectures []Lecture `json:"lectures"`
}

func (s Subject) Clone() Subject {
	out := s
	out.Lectures = make([]Lecture, len(s.Lectures))
	for i, l := range s.Lectures {
		out.Lectures[i] = l.Clone()
	}
	return out
}

// Library is the whole persisted document: this slice, JSON-serialized,
// is exactly the file content stored on the remote blob store.
type Library []Subject

func (lib Library) Clone() Library {
	out := make(Library, len(lib))
	for i, s := range lib {
		out[i] = s.Clone()
	}
	return out
}

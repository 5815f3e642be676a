package model

// QuestionDraft is the wire shape of one freshly extracted question,
// before it has been given a persisted id.
type QuestionDraft struct {
	Kind     string   `json:"type"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Answer   string   `json:"answer,omitempty"`
}

// ExtractionResult holds the outcome for one uploaded image. Results
// are positional: result i always belongs to image i of the batch,
// regardless of completion order. Never persisted.
type ExtractionResult struct {
	SourceImage string     `json:"sourceImage"`
	Questions   []Question `json:"questions"`
	Err         string     `json:"error,omitempty"`
}

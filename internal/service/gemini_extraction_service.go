package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/lshigami/Quokkas/config"
	"github.com/lshigami/Quokkas/internal/model"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// StagedImage is one uploaded exam-sheet photo awaiting extraction.
type StagedImage struct {
	Name string
	Mime string
	Data []byte
}

// ExtractionService turns exam-sheet images into question drafts via
// the Gemini vision API. A response that does not parse as the
// requested schema degrades to zero questions, not an error; transport
// and quota failures are errors, reported per image.
type ExtractionService interface {
	Extract(ctx context.Context, data []byte, mimeType string) ([]model.QuestionDraft, error)
	ExtractBatch(ctx context.Context, images []StagedImage) []model.ExtractionResult
}

type geminiExtractionService struct {
	client *genai.GenerativeModel
	cfg    *config.Config
}

const extractionInstruction = `You are given a photo of an exam sheet. Extract every exam question visible in the image.
For each question decide whether it is multiple-choice ("mcq") or a free-form question ("short_answer").
For "mcq" questions list all answer options in their printed order.
For "short_answer" questions include the expected answer if it is printed, otherwise an empty string.
Return ONLY the JSON array. If no questions are visible, return an empty array.`

func NewExtractionService(cfg *config.Config) (ExtractionService, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. ExtractionService will be non-functional.")
		return &geminiExtractionService{cfg: cfg, client: nil}, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	m := client.GenerativeModel("gemini-1.5-flash")
	m.GenerationConfig.ResponseMIMEType = "application/json"
	m.GenerationConfig.ResponseSchema = extractionSchema()
	return &geminiExtractionService{client: m, cfg: cfg}, nil
}

func extractionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"type": {
					Type: genai.TypeString,
					Enum: []string{model.QuestionKindMCQ, model.QuestionKindShortAnswer},
				},
				"question": {Type: genai.TypeString},
				"options": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString},
				},
				"answer": {Type: genai.TypeString},
			},
			Required: []string{"type", "question"},
		},
	}
}

func (s *geminiExtractionService) Extract(ctx context.Context, data []byte, mimeType string) ([]model.QuestionDraft, error) {
	if s.client == nil {
		return nil, fmt.Errorf("gemini client not initialized")
	}

	format := strings.TrimPrefix(mimeType, "image/")
	parts := []genai.Part{
		genai.ImageData(format, data),
		genai.Text(extractionInstruction),
	}

	resp, err := s.client.GenerateContent(ctx, parts...)
	if err != nil {
		log.Error().Err(err).Msg("Gemini API error during extraction")
		return nil, fmt.Errorf("gemini extraction failed: %w", err)
	}

	raw := collectText(resp)
	drafts := parseDrafts(raw)
	for i := range drafts {
		drafts[i] = cleanDraft(drafts[i])
	}
	return drafts, nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

// parseDrafts validates the model output against the requested shape.
// Anything that is not a JSON array of drafts means "zero questions
// found" — extraction partial failure is not a hard error.
func parseDrafts(raw string) []model.QuestionDraft {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []model.QuestionDraft{}
	}
	var drafts []model.QuestionDraft
	if err := json.Unmarshal([]byte(raw), &drafts); err != nil {
		log.Warn().Err(err).Msg("Extraction response did not match the requested schema; treating as zero questions")
		return []model.QuestionDraft{}
	}
	out := drafts[:0]
	for _, d := range drafts {
		if d.Kind != model.QuestionKindMCQ && d.Kind != model.QuestionKindShortAnswer {
			continue
		}
		if strings.TrimSpace(d.Question) == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Printed sheets usually carry their own enumeration markers ("A.",
// "b)", "3." ...); strip them so options read cleanly in the library.
var optionMarkerPattern = regexp.MustCompile(`^\s*(?:[A-Za-z]|\d{1,2})[.)]\s*`)

func stripOptionMarker(text string) string {
	return strings.TrimSpace(optionMarkerPattern.ReplaceAllString(text, ""))
}

func cleanDraft(d model.QuestionDraft) model.QuestionDraft {
	d.Question = strings.TrimSpace(d.Question)
	d.Answer = strings.TrimSpace(d.Answer)
	for i := range d.Options {
		d.Options[i] = stripOptionMarker(d.Options[i])
	}
	return d
}

// ExtractBatch fans out one Extract call per image. Results are joined
// by positional index, so one image's failure never disturbs the slots
// of the other images.
func (s *geminiExtractionService) ExtractBatch(ctx context.Context, images []StagedImage) []model.ExtractionResult {
	results := make([]model.ExtractionResult, len(images))

	var wg sync.WaitGroup
	for i := range images {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			img := images[i]
			drafts, err := s.Extract(ctx, img.Data, img.Mime)
			if err != nil {
				results[i] = model.ExtractionResult{
					SourceImage: img.Name,
					Questions:   []model.Question{},
					Err:         err.Error(),
				}
				return
			}
			results[i] = model.ExtractionResult{
				SourceImage: img.Name,
				Questions:   DraftsToQuestions(drafts),
			}
		}(i)
	}
	wg.Wait()

	return results
}

// DraftsToQuestions gives each draft a staged id so it can be selected
// and edited before commit. Commit assigns fresh persisted ids.
func DraftsToQuestions(drafts []model.QuestionDraft) []model.Question {
	qs := make([]model.Question, 0, len(drafts))
	for _, d := range drafts {
		qs = append(qs, model.Question{
			ID:         uuid.NewString(),
			Kind:       d.Kind,
			Text:       d.Question,
			Options:    append([]string(nil), d.Options...),
			AnswerText: d.Answer,
		})
	}
	return qs
}

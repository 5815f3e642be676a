package service

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/lshigami/Quokkas/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportFixture(t *testing.T) (model.Library, []string) {
	t.Helper()

	lib := model.Library{}
	lib, _ = AddSubject(lib, "Geography")
	lib, _ = AddSubject(lib, "Unselected Subject")

	geo := lib[0].ID
	lib, _ = AddLecture(lib, geo, "Capitals")
	lib, _ = AddLecture(lib, geo, "Rivers")
	lib, _ = AddLecture(lib, lib[1].ID, "Should Not Appear")

	correct := 0
	var five []model.Question
	for i := 0; i < 5; i++ {
		five = append(five, model.Question{
			Kind:               model.QuestionKindMCQ,
			Text:               fmt.Sprintf("Capital question %d?", i+1),
			Options:            []string{"Paris", "Rome", "Madrid"},
			CorrectOptionIndex: &correct,
		})
	}
	lib, _ = AddQuestions(lib, geo, lib[0].Lectures[0].ID, five)

	var three []model.Question
	for i := 0; i < 3; i++ {
		three = append(three, model.Question{
			Kind:       model.QuestionKindShortAnswer,
			Text:       fmt.Sprintf("River question %d?", i+1),
			AnswerText: "The Nile",
		})
	}
	lib, _ = AddQuestions(lib, geo, lib[0].Lectures[1].ID, three)

	return lib, []string{lib[0].Lectures[0].ID, lib[0].Lectures[1].ID}
}

func TestBuildBlocksAnswersHidden(t *testing.T) {
	lib, selected := exportFixture(t)
	blocks := buildBlocks(lib, ExportOptions{LectureIDs: selected, BaseSize: 11, ShowAnswers: false})

	tocCount := 0
	for _, b := range blocks {
		if b.level != levelNone {
			tocCount++
		}
		if b.indent > 0 {
			assert.False(t, b.highlight, "no option or answer may be highlighted with answers hidden: %q", b.text)
		}
		assert.NotContains(t, b.text, "Answer:", "answers must be omitted entirely when hidden")
		assert.NotContains(t, b.text, "Should Not Appear")
		assert.NotContains(t, b.text, "Unselected Subject")
	}
	assert.Equal(t, 3, tocCount, "1 subject heading + 2 lecture headings")
}

func TestBuildBlocksAnswersShown(t *testing.T) {
	lib, selected := exportFixture(t)
	blocks := buildBlocks(lib, ExportOptions{LectureIDs: selected, BaseSize: 11, ShowAnswers: true})

	highlightedOptions := 0
	answerBlocks := 0
	for _, b := range blocks {
		if b.indent > 0 && b.highlight {
			if strings.HasPrefix(b.text, "Answer: ") {
				answerBlocks++
			} else {
				highlightedOptions++
			}
		}
	}
	assert.Equal(t, 5, highlightedOptions, "one highlighted option per MCQ")
	assert.Equal(t, 3, answerBlocks, "one highlighted answer line per short-answer question")
}

func TestPaginateAssignsMonotonicPages(t *testing.T) {
	lib, _ := AddSubject(model.Library{}, "Bulk")
	lib, _ = AddLecture(lib, lib[0].ID, "Everything")
	var many []model.Question
	for i := 0; i < 120; i++ {
		many = append(many, model.Question{
			Kind: model.QuestionKindShortAnswer,
			Text: fmt.Sprintf("Long-winded question number %d about a topic that wraps across the line width of the page?", i+1),
		})
	}
	lib, _ = AddQuestions(lib, lib[0].ID, lib[0].Lectures[0].ID, many)

	pdf := gofpdf.New("P", "mm", "A4", "")
	blocks := buildBlocks(lib, ExportOptions{LectureIDs: []string{lib[0].Lectures[0].ID}, BaseSize: 11})
	lines, toc, pages := paginate(pdf, blocks)

	require.Greater(t, pages, 1, "120 questions must not fit a single page")
	require.Len(t, toc, 2)
	assert.Equal(t, 1, toc[0].page, "headings land on the first content page")

	seen := make(map[int]bool)
	prev := 1
	for _, ln := range lines {
		assert.GreaterOrEqual(t, ln.page, prev, "page assignment must never go backwards")
		assert.LessOrEqual(t, ln.page, pages)
		prev = ln.page
		seen[ln.page] = true
	}
	for p := 1; p <= pages; p++ {
		assert.True(t, seen[p], "page %d must not be empty", p)
	}
}

func TestFooterText(t *testing.T) {
	assert.Equal(t, "Page 1 of 9", footerText(1, 9))
	assert.Equal(t, "Page 9 of 9", footerText(9, 9))
}

func TestTOCPageCountSmallListIsOnePage(t *testing.T) {
	assert.Equal(t, 1, tocPageCount(11, 3))
	assert.GreaterOrEqual(t, tocPageCount(11, 500), 2)
}

func TestBuildStudyGuideProducesPDF(t *testing.T) {
	lib, selected := exportFixture(t)
	svc := NewExportService()

	out, err := svc.BuildStudyGuide(lib, ExportOptions{LectureIDs: selected, BaseSize: 11})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "output must be a PDF document")
}

func TestBuildStudyGuideRejectsEmptySelection(t *testing.T) {
	lib, _ := exportFixture(t)
	svc := NewExportService()

	_, err := svc.BuildStudyGuide(lib, ExportOptions{})
	assert.Error(t, err)

	_, err = svc.BuildStudyGuide(lib, ExportOptions{LectureIDs: []string{"unknown"}})
	assert.Error(t, err)
}

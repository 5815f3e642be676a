package service

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/lshigami/Quokkas/internal/model"
	"github.com/rs/zerolog/log"
)

// ExportOptions selects what goes into the study guide and how it is set.
type ExportOptions struct {
	LectureIDs  []string
	BaseSize    float64 // body text size in points
	ShowAnswers bool
}

// ExportService renders a selected slice of the library into a
// paginated PDF study guide with a generated table of contents and a
// running page footer. Entirely in-process, no network involved.
type ExportService interface {
	BuildStudyGuide(lib model.Library, opts ExportOptions) ([]byte, error)
}

type pdfExportService struct{}

func NewExportService() ExportService {
	return &pdfExportService{}
}

// Page geometry, A4 portrait in millimeters.
const (
	pageWidth     = 210.0
	pageHeight    = 297.0
	pageMargin    = 15.0
	footerReserve = 12.0
	contentWidth  = pageWidth - 2*pageMargin
	optionIndent  = 6.0
	tocIndent     = 6.0
	highlightPad  = 1.0
)

// Heading sizes derive multiplicatively from the base size.
const (
	subjectScale = 1.4
	lectureScale = 1.2
)

type tocLevel int

const (
	levelNone tocLevel = iota
	levelSubject
	levelLecture
)

// layoutBlock is one logical run of text: what the content is, before
// any decision about where it lands on a page.
type layoutBlock struct {
	text       string
	size       float64 // points
	style      string  // "B" for bold, "" otherwise
	highlight  bool
	indent     float64 // extra left indent in mm
	spaceAfter float64 // mm
	level      tocLevel
}

// renderLine is one wrapped line with its page assignment.
type renderLine struct {
	text      string
	size      float64
	style     string
	highlight bool
	indent    float64
	page      int // 1-based content page
	y         float64
}

type tocEntry struct {
	title string
	page  int // 1-based content page
	level tocLevel
}

// lineHeightMM converts a font size in points to a line height in mm
// (glyph height times 1.25).
func lineHeightMM(sizePt float64) float64 {
	return sizePt * 25.4 / 72.0 * 1.25
}

// buildBlocks walks subjects in declared order and emits the abstract
// content sequence for the selected lectures.
func buildBlocks(lib model.Library, opts ExportOptions) []layoutBlock {
	selected := make(map[string]bool, len(opts.LectureIDs))
	for _, id := range opts.LectureIDs {
		selected[id] = true
	}

	base := opts.BaseSize
	var blocks []layoutBlock
	for _, subject := range lib {
		var lectures []model.Lecture
		for _, lec := range subject.Lectures {
			if selected[lec.ID] {
				lectures = append(lectures, lec)
			}
		}
		if len(lectures) == 0 {
			continue
		}

		blocks = append(blocks, layoutBlock{
			text:       subject.Name,
			size:       base * subjectScale,
			style:      "B",
			highlight:  true,
			spaceAfter: 3,
			level:      levelSubject,
		})

		for _, lec := range lectures {
			blocks = append(blocks, layoutBlock{
				text:       lec.Name,
				size:       base * lectureScale,
				style:      "B",
				spaceAfter: 2,
				level:      levelLecture,
			})

			for qi, q := range lec.Questions {
				blocks = append(blocks, layoutBlock{
					text:       fmt.Sprintf("%d. %s", qi+1, q.Text),
					size:       base,
					spaceAfter: 1,
				})

				switch q.Kind {
				case model.QuestionKindMCQ:
					for oi, opt := range q.Options {
						correct := opts.ShowAnswers &&
							q.CorrectOptionIndex != nil && *q.CorrectOptionIndex == oi
						blocks = append(blocks, layoutBlock{
							text:       fmt.Sprintf("%c) %s", 'a'+oi, opt),
							size:       base,
							highlight:  correct,
							indent:     optionIndent,
							spaceAfter: 0.5,
						})
					}
				case model.QuestionKindShortAnswer:
					if opts.ShowAnswers && q.AnswerText != "" {
						blocks = append(blocks, layoutBlock{
							text:       "Answer: " + q.AnswerText,
							size:       base,
							highlight:  true,
							indent:     optionIndent,
							spaceAfter: 1,
						})
					}
				}
			}
		}
	}
	return blocks
}

// paginate assigns every wrapped line to a content page by simulating
// cumulative height against the page box. A block that no longer fits
// starts a new page before it is drawn; only a block taller than a
// whole page flows across pages, between lines, so a highlight
// rectangle is never cut mid-line.
func paginate(pdf *gofpdf.Fpdf, blocks []layoutBlock) ([]renderLine, []tocEntry, int) {
	var (
		lines   []renderLine
		toc     []tocEntry
		page    = 1
		y       = pageMargin
		bottom  = pageHeight - pageMargin - footerReserve
		maxBody = bottom - pageMargin
	)

	for _, b := range blocks {
		pdf.SetFont("Helvetica", b.style, b.size)
		width := contentWidth - b.indent
		wrapped := pdf.SplitText(b.text, width)
		if len(wrapped) == 0 {
			wrapped = []string{""}
		}
		lineH := lineHeightMM(b.size)
		blockH := float64(len(wrapped)) * lineH

		if y+blockH > bottom && blockH <= maxBody && y > pageMargin {
			page++
			y = pageMargin
		}

		if b.level != levelNone {
			toc = append(toc, tocEntry{title: b.text, page: page, level: b.level})
		}

		for _, ln := range wrapped {
			if y+lineH > bottom {
				page++
				y = pageMargin
			}
			lines = append(lines, renderLine{
				text:      ln,
				size:      b.size,
				style:     b.style,
				highlight: b.highlight,
				indent:    b.indent,
				page:      page,
				y:         y,
			})
			y += lineH
		}
		y += b.spaceAfter
	}

	return lines, toc, page
}

func footerText(i, n int) string {
	return fmt.Sprintf("Page %d of %d", i, n)
}

// tocPageCount pre-computes how many pages the table of contents will
// occupy, so content page numbers can be shifted before rendering it.
func tocPageCount(base float64, entries int) int {
	usable := pageHeight - 2*pageMargin - lineHeightMM(base*subjectScale) - 4
	perPage := int(usable / lineHeightMM(base))
	if perPage < 1 {
		perPage = 1
	}
	pages := (entries + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	return pages
}

func (s *pdfExportService) BuildStudyGuide(lib model.Library, opts ExportOptions) ([]byte, error) {
	if len(opts.LectureIDs) == 0 {
		return nil, fmt.Errorf("no lectures selected for export")
	}
	if opts.BaseSize <= 0 {
		opts.BaseSize = 11
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Study Guide", false)
	pdf.SetAutoPageBreak(false, 0)

	blocks := buildBlocks(lib, opts)
	if len(blocks) == 0 {
		return nil, fmt.Errorf("selected lectures not found in the library")
	}
	lines, toc, contentPages := paginate(pdf, blocks)

	shift := tocPageCount(opts.BaseSize, len(toc))
	s.renderTOC(pdf, opts.BaseSize, toc, shift)
	s.renderContent(pdf, lines, contentPages)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	log.Info().Int("content_pages", contentPages).Int("toc_entries", len(toc)).Msg("Study guide generated")
	return buf.Bytes(), nil
}

// renderTOC draws the table-of-contents page(s) at the front. Entry
// page numbers are shifted by the TOC's own page count.
func (s *pdfExportService) renderTOC(pdf *gofpdf.Fpdf, base float64, toc []tocEntry, shift int) {
	pdf.AddPage()

	headingH := lineHeightMM(base * subjectScale)
	pdf.SetFont("Helvetica", "B", base*subjectScale)
	pdf.SetXY(pageMargin, pageMargin)
	pdf.CellFormat(contentWidth, headingH, "Table of Contents", "", 0, "L", false, 0, "")

	y := pageMargin + headingH + 4
	lineH := lineHeightMM(base)
	bottom := pageHeight - pageMargin

	pdf.SetFont("Helvetica", "", base)
	for _, e := range toc {
		if y+lineH > bottom {
			pdf.AddPage()
			y = pageMargin
		}

		indent := 0.0
		if e.level == levelLecture {
			indent = tocIndent
		}

		numStr := strconv.Itoa(e.page + shift)
		numW := pdf.GetStringWidth(numStr)
		numX := pageWidth - pageMargin - numW

		// Truncate the title to a single line before the number column.
		maxTitleW := contentWidth - indent - numW - 8
		title := truncateToWidth(pdf, e.title, maxTitleW)

		titleX := pageMargin + indent
		pdf.SetXY(titleX, y)
		pdf.CellFormat(pdf.GetStringWidth(title), lineH, title, "", 0, "L", false, 0, "")

		// Dotted leader between title and page number.
		leaderStart := titleX + pdf.GetStringWidth(title) + 2
		leaderEnd := numX - 2
		if leaderEnd > leaderStart {
			baseline := y + lineH*0.75
			pdf.SetDashPattern([]float64{0.5, 1.2}, 0)
			pdf.Line(leaderStart, baseline, leaderEnd, baseline)
			pdf.SetDashPattern([]float64{}, 0)
		}

		pdf.SetXY(numX, y)
		pdf.CellFormat(numW, lineH, numStr, "", 0, "R", false, 0, "")

		y += lineH
	}
}

func truncateToWidth(pdf *gofpdf.Fpdf, text string, maxW float64) string {
	if pdf.GetStringWidth(text) <= maxW {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > maxW {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// renderContent draws every paginated line on its assigned page and
// stamps each content page with a highlighted right-aligned footer.
func (s *pdfExportService) renderContent(pdf *gofpdf.Fpdf, lines []renderLine, contentPages int) {
	idx := 0
	for p := 1; p <= contentPages; p++ {
		pdf.AddPage()

		for idx < len(lines) && lines[idx].page == p {
			ln := lines[idx]
			pdf.SetFont("Helvetica", ln.style, ln.size)
			lineH := lineHeightMM(ln.size)
			x := pageMargin + ln.indent

			pdf.SetXY(x, ln.y)
			if ln.highlight {
				// Fill rect sized to the measured line, then the glyphs on top.
				pdf.SetFillColor(255, 242, 153)
				w := pdf.GetStringWidth(ln.text) + 2*highlightPad
				pdf.CellFormat(w, lineH, ln.text, "", 0, "L", true, 0, "")
			} else {
				pdf.CellFormat(contentWidth-ln.indent, lineH, ln.text, "", 0, "L", false, 0, "")
			}
			idx++
		}

		s.stampFooter(pdf, p, contentPages)
	}
}

func (s *pdfExportService) stampFooter(pdf *gofpdf.Fpdf, page, total int) {
	footer := footerText(page, total)
	pdf.SetFont("Helvetica", "", 9)
	lineH := lineHeightMM(9)
	w := pdf.GetStringWidth(footer) + 2*highlightPad
	pdf.SetFillColor(255, 242, 153)
	pdf.SetXY(pageWidth-pageMargin-w, pageHeight-pageMargin-lineH)
	pdf.CellFormat(w, lineH, footer, "", 0, "R", true, 0, "")
}

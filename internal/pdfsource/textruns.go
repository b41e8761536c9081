package pdfsource

import (
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/local/pdfextract/internal/reader"
)

const (
	// baselineJitter is the maximum baseline difference for two characters
	// to belong to the same run.
	baselineJitter = 0.5

	// wordGapFactor times the font size is the horizontal gap that splits
	// a run into separate words.
	wordGapFactor = 0.3
)

// textRun is a coalesced sequence of character-level text items sharing a
// baseline, exposed to the extractor as one content object.
type textRun struct {
	text string
	rect reader.Bounds
}

// buildTextRuns groups the parser's character-level text items into word
// runs. The parser emits one item per show-string, frequently one per
// glyph; handing those to line assembly directly would put a space between
// every pair of letters. Items stay in content-stream order; reading order
// is the extractor's job.
func buildTextRuns(texts []pdf.Text) []textRun {
	var runs []textRun
	var cur []pdf.Text

	flush := func() {
		if len(cur) == 0 {
			return
		}
		runs = append(runs, finishRun(cur))
		cur = nil
	}

	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			// Explicit spaces and newlines only delimit words.
			flush()
			continue
		}
		if len(cur) > 0 {
			last := cur[len(cur)-1]
			sameBaseline := abs(t.Y-last.Y) <= baselineJitter
			gap := t.X - (last.X + last.W)
			maxGap := wordGapFactor * last.FontSize
			if maxGap <= 0 {
				maxGap = 1.0
			}
			if !sameBaseline || gap > maxGap || gap < -last.FontSize {
				flush()
			}
		}
		cur = append(cur, t)
	}
	flush()

	return runs
}

func finishRun(items []pdf.Text) textRun {
	var sb strings.Builder
	first := items[0]
	left, right := first.X, first.X+first.W
	bottom, size := first.Y, first.FontSize

	for _, t := range items {
		sb.WriteString(t.S)
		if t.X < left {
			left = t.X
		}
		if t.X+t.W > right {
			right = t.X + t.W
		}
		if t.Y < bottom {
			bottom = t.Y
		}
		if t.FontSize > size {
			size = t.FontSize
		}
	}

	return textRun{
		text: sb.String(),
		rect: reader.Bounds{
			// Baseline plus font size approximates the glyph top.
			Top:    bottom + size,
			Left:   left,
			Bottom: bottom,
			Right:  right,
		},
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

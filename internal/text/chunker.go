package text

import (
	"regexp"
	"strings"
)

// Segment is a bounded contiguous slice of a document, the unit of indexing
// and retrieval. IDs are 0-based and follow document order.
type Segment struct {
	ID         int
	Text       string
	TokenCount int
}

// sentenceRe matches either a run of text up to and including terminal
// punctuation, or a trailing run without one. Every byte of the input is
// covered by exactly one match, so no content is lost by splitting.
var sentenceRe = regexp.MustCompile(`[^.!?]*[.!?]+|[^.!?]+`)

// SplitSentences breaks text on sentence boundaries. Whitespace-only
// fragments are dropped.
func SplitSentences(text string) []string {
	matches := sentenceRe.FindAllString(text, -1)
	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			sentences = append(sentences, m)
		}
	}
	return sentences
}

// Split chunks text into Segments of at most maxTokens whitespace-delimited
// words each, never breaking inside a sentence. A single sentence longer
// than the budget becomes its own oversized Segment rather than being
// force-split. Empty input yields no Segments. The result is a pure
// function of (text, maxTokens).
func Split(text string, maxTokens int) []Segment {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var segments []Segment
	var buf []string
	tokens := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		segments = append(segments, Segment{
			ID:         len(segments),
			Text:       strings.Join(buf, " "),
			TokenCount: tokens,
		})
		buf = buf[:0]
		tokens = 0
	}

	for _, sent := range sentences {
		n := len(strings.Fields(sent))
		if len(buf) > 0 && tokens+n > maxTokens {
			flush()
		}
		buf = append(buf, sent)
		tokens += n
	}
	flush()

	return segments
}

package corpus

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the chunk budget in characters.
const DefaultChunkSize = 500

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

// Chunk splits text into passages of at most budget characters.
//
// Paragraphs (separated by blank lines) are packed together while they fit.
// A paragraph longer than the budget is split on word boundaries; a single
// word longer than the budget becomes its own chunk. No chunk is empty.
func Chunk(text string, budget int) []string {
	if budget <= 0 {
		budget = DefaultChunkSize
	}

	var (
		chunks []string
		buf    strings.Builder
		bufLen int
	)
	flush := func() {
		if bufLen > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
	}
	add := func(s string, n int, sep string) {
		if bufLen > 0 {
			buf.WriteString(sep)
			bufLen += len(sep)
		}
		buf.WriteString(s)
		bufLen += n
	}

	for _, para := range Paragraphs(text) {
		n := utf8.RuneCountInString(para)
		if n > budget {
			flush()
			for _, w := range words(para, budget) {
				wn := utf8.RuneCountInString(w)
				if bufLen > 0 && bufLen+1+wn > budget {
					flush()
				}
				add(w, wn, " ")
			}
			continue
		}
		if bufLen > 0 && bufLen+2+n > budget {
			flush()
		}
		add(para, n, "\n\n")
	}
	flush()
	return chunks
}

// Paragraphs splits text on blank lines, dropping empty paragraphs.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range blankLine.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sentenceEnds break unspaced CJK text into sentence-sized words.
const sentenceEnds = "。！？；"

// words splits a paragraph on whitespace. A field still longer than budget
// is further split after CJK sentence punctuation.
func words(para string, budget int) []string {
	var out []string
	for _, f := range strings.Fields(para) {
		if utf8.RuneCountInString(f) <= budget || !strings.ContainsAny(f, sentenceEnds) {
			out = append(out, f)
			continue
		}
		start := 0
		for i, r := range f {
			if strings.ContainsRune(sentenceEnds, r) {
				end := i + utf8.RuneLen(r)
				out = append(out, f[start:end])
				start = end
			}
		}
		if start < len(f) {
			out = append(out, f[start:])
		}
	}
	return out
}

package stream

import (
	"strings"
	"unicode"
)

// SplitIntoChunks splits text into pacing-friendly chunks on sentence
// boundaries. Sentences accumulate into a chunk until appending the next one
// would exceed maxLen; a sentence longer than 2*maxLen is itself split on
// word boundaries into maxLen-sized pieces. Joining the chunks with single
// spaces and trimming reproduces the whitespace-normalized input, and every
// chunk is at most 2*maxLen long (words longer than maxLen are hard-cut to
// keep the bound).
func SplitIntoChunks(text string, maxLen int) []string {
	if maxLen < 1 {
		maxLen = 1
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}

	for _, sentence := range splitSentences(trimmed) {
		if len(sentence) > 2*maxLen {
			flush()
			chunks = append(chunks, splitWords(sentence, maxLen)...)
			continue
		}
		if cur.Len() > 0 && cur.Len()+1+len(sentence) > maxLen {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(sentence)
	}
	flush()
	return chunks
}

// splitSentences splits on '.', '!' or '?' followed by whitespace (or end of
// input), keeping the punctuation with its sentence. Text without sentence
// punctuation comes back as a single sentence.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// splitWords packs words into pieces of at most maxLen. A single word longer
// than maxLen is cut mid-word.
func splitWords(sentence string, maxLen int) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}

	for _, word := range strings.Fields(sentence) {
		for len(word) > maxLen {
			flush()
			out = append(out, word[:maxLen])
			word = word[maxLen:]
		}
		if cur.Len() > 0 && cur.Len()+1+len(word) > maxLen {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	flush()
	return out
}

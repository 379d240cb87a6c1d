// Package token defines the normalized token stream that all downstream
// stages consume. The stream is produced by an external NLP collaborator
// (or by the fallback tokenizer in this package) and is immutable once
// built: stages reference spans into it, never rewrite it.
package token

import (
	"fmt"
	"strings"
)

// SpanSource declares how a TextSpan's offsets are to be interpreted.
type SpanSource int

const (
	// SourceToken means Start/End are token indices into the stream.
	SourceToken SpanSource = iota
	// SourceChar means Start/End are character offsets into the body text.
	SourceChar
)

// String returns the serialized label for a span source.
func (s SpanSource) String() string {
	if s == SourceChar {
		return "char"
	}
	return "token"
}

// Span is an immutable locator into the canonical token stream of one
// document revision. End is exclusive.
type Span struct {
	DocID  string     `json:"doc_id"`
	RevID  string     `json:"rev_id"`
	Start  int        `json:"start_idx"`
	End    int        `json:"end_idx"`
	Source SpanSource `json:"span_source"`
}

// Contains reports whether other lies fully inside s. Both spans must
// belong to the same document revision and use the same offset source.
func (s Span) Contains(other Span) bool {
	if s.DocID != other.DocID || s.RevID != other.RevID || s.Source != other.Source {
		return false
	}
	return other.Start >= s.Start && other.End <= s.End
}

// Overlaps reports whether the two spans share at least one offset.
func (s Span) Overlaps(other Span) bool {
	if s.DocID != other.DocID || s.RevID != other.RevID || s.Source != other.Source {
		return false
	}
	return s.Start < other.End && other.Start < s.End
}

// Len returns the number of offsets covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Token is a single token as delivered by the NLP collaborator.
type Token struct {
	Text      string `json:"text"`
	Lemma     string `json:"lemma"`
	POS       string `json:"pos"`
	Dep       string `json:"dep_label"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// Sentence is a half-open token-index range [Start, End) within a stream.
type Sentence struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Stream is the ordered token sequence for one document revision,
// grouped into sentences. The collaborator guarantees deterministic
// segmentation for a fixed model/version.
type Stream struct {
	DocID     string     `json:"doc_id"`
	RevID     string     `json:"rev_id"`
	Tokens    []Token    `json:"tokens"`
	Sentences []Sentence `json:"sentences"`
}

// Len returns the number of tokens in the stream.
func (st *Stream) Len() int { return len(st.Tokens) }

// Span builds a token-indexed span over [start, end) for this stream's
// document revision. Bounds are validated immediately: an out-of-range
// span is a contract violation by the caller, not a data-quality issue.
func (st *Stream) Span(start, end int) Span {
	st.checkBounds(start, end)
	return Span{
		DocID:  st.DocID,
		RevID:  st.RevID,
		Start:  start,
		End:    end,
		Source: SourceToken,
	}
}

// Slice returns the tokens covered by a token-sourced span.
// Panics when the span is out of bounds or belongs to another stream:
// such a span indicates an upstream collaborator contract breach.
func (st *Stream) Slice(sp Span) []Token {
	if sp.DocID != st.DocID || sp.RevID != st.RevID {
		panic(fmt.Sprintf("token: span for %s@%s sliced against stream %s@%s",
			sp.DocID, sp.RevID, st.DocID, st.RevID))
	}
	if sp.Source != SourceToken {
		panic("token: Slice requires a token-sourced span")
	}
	st.checkBounds(sp.Start, sp.End)
	return st.Tokens[sp.Start:sp.End]
}

// Text reconstructs the surface text of a token-sourced span with single
// spaces between tokens. Display only; identity never hashes this.
func (st *Stream) Text(sp Span) string {
	toks := st.Slice(sp)
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// SentenceSpan returns the span covering sentence i.
func (st *Stream) SentenceSpan(i int) Span {
	if i < 0 || i >= len(st.Sentences) {
		panic(fmt.Sprintf("token: sentence index %d out of range (have %d)", i, len(st.Sentences)))
	}
	s := st.Sentences[i]
	return st.Span(s.Start, s.End)
}

func (st *Stream) checkBounds(start, end int) {
	if start < 0 || end < start || end > len(st.Tokens) {
		panic(fmt.Sprintf("token: span [%d,%d) out of bounds for stream of %d tokens",
			start, end, len(st.Tokens)))
	}
}

package yomikae

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Reason is a fatal failure code. Any fatal reason discards every pair
// computed for the clause.
type Reason string

const (
	ReasonUnterminatedQuote   Reason = "UnterminatedQuote"
	ReasonMissingReadAsMarker Reason = "MissingReadAsMarker"
	ReasonNoPairsFound        Reason = "NoPairsFound"
	ReasonUnbalancedList      Reason = "UnbalancedList"
	ReasonMalformedTable      Reason = "MalformedTable"
)

// Flag is a non-fatal diagnostic attached to a surviving result.
type Flag string

const (
	FlagUnparsedScope           Flag = "UnparsedScope"
	FlagDanglingScope           Flag = "DanglingScope"
	FlagUnverifiedScope         Flag = "UnverifiedScope"
	FlagUnmatchedClosingBracket Flag = "UnmatchedClosingBracket"
)

// ErrUnknownLaw is returned by a ReferenceValidator when the reference
// points into a statute it has no index for.
var ErrUnknownLaw = errors.New("reference points outside the indexed statutes")

// maxExcerptRunes caps failure excerpts.
const maxExcerptRunes = 60

// ParseError is the fatal error produced by the scanner, tokenizer and
// matcher stages.
type ParseError struct {
	Reason  Reason
	Excerpt string
	Offset  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at offset %d: %q", e.Reason, e.Offset, e.Excerpt)
}

// newParseError builds a ParseError for text[start:end].
func newParseError(reason Reason, text string, start, end int) *ParseError {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if end < start {
		end = start
	}
	return &ParseError{
		Reason:  reason,
		Excerpt: clip(text[start:end]),
		Offset:  start,
	}
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= maxExcerptRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxExcerptRunes]) + "…"
}

// appendFlag adds flag to flags unless already present, keeping first
// occurrence order.
func appendFlag(flags []Flag, flag Flag) []Flag {
	for _, existing := range flags {
		if existing == flag {
			return flags
		}
	}
	return append(flags, flag)
}

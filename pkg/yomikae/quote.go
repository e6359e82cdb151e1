package yomikae

import "unicode/utf8"

// BracketKind distinguishes 「」 from 『』.
type BracketKind int

const (
	BracketSingle BracketKind = iota // 「」
	BracketDouble                    // 『』
)

func (k BracketKind) String() string {
	if k == BracketDouble {
		return "double"
	}
	return "single"
}

// MarshalText implements encoding.TextMarshaler.
func (k BracketKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

const (
	openSingle  = '「'
	closeSingle = '」'
	openDouble  = '『'
	closeDouble = '』'
)

// bracketWidth is the UTF-8 length of every corner bracket.
const bracketWidth = len("「")

// QuoteToken is one quotation. Start is the offset of the opening bracket and
// End the offset just past the closing bracket. Depth is 0 for top-level
// quotes; nested quotes live in Children.
type QuoteToken struct {
	Start    int          `json:"start"`
	End      int          `json:"end"`
	Depth    int          `json:"depth"`
	Kind     BracketKind  `json:"kind"`
	Children []QuoteToken `json:"children,omitempty"`
}

// Inner returns the quoted text without its brackets.
func (q QuoteToken) Inner(text string) string {
	return text[q.Start+bracketWidth : q.End-bracketWidth]
}

// Span returns the quoted text as a Span.
func (q QuoteToken) Span(text string) Span {
	return Span{
		Text:  q.Inner(text),
		Start: q.Start + bracketWidth,
		End:   q.End - bracketWidth,
	}
}

// QuoteStream is the Quotation Scanner output for one clause.
type QuoteStream struct {
	Tokens []QuoteToken

	// UnmatchedClosing holds offsets of closing brackets that had no opener.
	// They are ignored for structure.
	UnmatchedClosing []int
}

// Warned reports whether any unmatched closing bracket was skipped.
func (s QuoteStream) Warned() bool {
	return len(s.UnmatchedClosing) > 0
}

// Outside reports whether offset lies outside every top-level quote.
func (s QuoteStream) Outside(offset int) bool {
	for _, tok := range s.Tokens {
		if offset >= tok.Start && offset < tok.End {
			return false
		}
	}
	return true
}

type openFrame struct {
	start    int
	kind     BracketKind
	closer   rune
	children []QuoteToken
}

// ScanQuotes finds the quotations of a clause.
//
// Brackets nest through a stack of open frames, so the depth of each kind is
// the number of frames of that kind on the stack. A 『 with no enclosing
// bracket opens an ordinary top-level quote closed by 』. A closing bracket
// with no matching opener is recorded in UnmatchedClosing and skipped. An
// opener still open at the end of the text fails with UnterminatedQuote.
func ScanQuotes(text string) (QuoteStream, error) {
	var stream QuoteStream
	var stack []*openFrame

	for offset := 0; offset < len(text); {
		r, size := utf8.DecodeRuneInString(text[offset:])
		switch r {
		case openSingle:
			stack = append(stack, &openFrame{start: offset, kind: BracketSingle, closer: closeSingle})
		case openDouble:
			frame := &openFrame{start: offset, kind: BracketDouble, closer: closeDouble}
			if len(stack) == 0 {
				frame.kind = BracketSingle
			}
			stack = append(stack, frame)
		case closeSingle, closeDouble:
			match := -1
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].closer == r {
					match = i
					break
				}
			}
			switch {
			case match < 0:
				stream.UnmatchedClosing = append(stream.UnmatchedClosing, offset)
			case match < len(stack)-1:
				// An inner quote of another kind is still open: 「『」.
				inner := stack[match+1]
				return QuoteStream{}, newParseError(ReasonUnterminatedQuote, text, inner.start, offset+size)
			default:
				frame := stack[match]
				stack = stack[:match]
				tok := QuoteToken{
					Start:    frame.start,
					End:      offset + size,
					Depth:    len(stack),
					Kind:     frame.kind,
					Children: frame.children,
				}
				if len(stack) == 0 {
					stream.Tokens = append(stream.Tokens, tok)
				} else {
					parent := stack[len(stack)-1]
					parent.children = append(parent.children, tok)
				}
			}
		}
		offset += size
	}

	if len(stack) > 0 {
		return QuoteStream{}, newParseError(ReasonUnterminatedQuote, text, stack[0].start, len(text))
	}
	return stream, nil
}

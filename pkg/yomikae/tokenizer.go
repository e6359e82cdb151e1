package yomikae

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// SegmentKind is the syntactic role of a tokenizer segment.
type SegmentKind int

const (
	SegmentScopeMarker SegmentKind = iota
	SegmentOriginalQuote
	SegmentReadAsMarker
	SegmentReplacementQuote
	SegmentCoordinator
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentScopeMarker:
		return "ScopeMarker"
	case SegmentOriginalQuote:
		return "OriginalQuote"
	case SegmentReadAsMarker:
		return "ReadAsMarker"
	case SegmentReplacementQuote:
		return "ReplacementQuote"
	case SegmentCoordinator:
		return "Coordinator"
	}
	return "Unknown"
}

// CoordinatorLevel tells a list joiner inside one pair-group apart from a
// boundary between pair-groups.
type CoordinatorLevel int

const (
	CoordinateNone  CoordinatorLevel = iota
	CoordinateList                   // 「A」、「C」 / 「A」とあり、及び「C」
	CoordinateGroup                  // 「B」と、「C」
)

// Segment is one typed piece of a clause. For quote segments Text is the
// quoted phrase and Quote the token it came from.
type Segment struct {
	Kind         SegmentKind
	Start        int
	End          int
	Text         string
	Quote        *QuoteToken
	Level        CoordinatorLevel
	Respectively bool // ReadAsMarker followed by それぞれ
}

var (
	readAsMarkers = []string{"とあるのは", "とあるは"}
	listJoiners   = []string{"、", "，", "及び", "並びに", "又は", "若しくは"}
)

const (
	ariMarker          = "とあり"
	respectivelyMarker = "それぞれ"
	gapSpaces          = " 　\t\r\n"
)

// scopeTail matches a scope qualifier at the end of a gap: 第五条中,
// 同項第二号中, この節において. The lookbehind keeps この場合において out.
var scopeTail = regexp2.MustCompile(`(?<scope>[^、。，,「」（）()]+?)(?:の規定)?(?:中|(?<!この場合)において)[ 　]*$`, regexp2.None)

var (
	refChunk  = regexp.MustCompile(`^(?:第|同|附則)[^、。「」]*(?:条|項|号|章|節|款|目|編|[0-9０-９〇一二三四五六七八九十百千])$`)
	refPrefix = regexp.MustCompile(`^(?:第|同|前|次|この|本|附則)`)
)

type tokenizerState int

const (
	expectOriginal tokenizerState = iota
	expectReplacement
)

type tokenizer struct {
	text  string
	toks  []QuoteToken
	state tokenizerState

	segments []Segment

	// pending holds an original-side chain not yet confirmed by a read-as
	// marker. mustRead is set once the chain contains とあり or follows a と、
	// group boundary, after which the chain can no longer be dropped as
	// non-structural.
	pending    []Segment
	chainStart int
	mustRead   bool

	scope *Segment
}

// Tokenize splits a clause into typed segments. Only text outside the
// top-level quotes of quotes is inspected.
func Tokenize(text string, quotes QuoteStream) ([]Segment, error) {
	t := &tokenizer{text: text, toks: quotes.Tokens}
	t.scope = t.scopeMarker(0, t.gapEnd(0))

	for i := range t.toks {
		var err error
		if t.state == expectOriginal {
			err = t.original(i)
		} else {
			t.replacement(i)
		}
		if err != nil {
			return nil, err
		}
	}
	return t.segments, nil
}

func (t *tokenizer) gapEnd(i int) int {
	if i < len(t.toks) {
		return t.toks[i].Start
	}
	return len(t.text)
}

// after returns the gap following quote i and the byte offset where its
// non-space body starts.
func (t *tokenizer) after(i int) (body string, bodyStart int, end int) {
	start := t.toks[i].End
	end = t.gapEnd(i + 1)
	raw := t.text[start:end]
	body = strings.TrimLeft(raw, gapSpaces)
	return body, start + len(raw) - len(body), end
}

func (t *tokenizer) quoteSegment(kind SegmentKind, i int) Segment {
	q := t.toks[i]
	return Segment{Kind: kind, Start: q.Start, End: q.End, Text: q.Inner(t.text), Quote: &q}
}

func (t *tokenizer) original(i int) error {
	body, bodyStart, end := t.after(i)
	hasNext := i+1 < len(t.toks)
	orig := t.quoteSegment(SegmentOriginalQuote, i)

	if marker, ok := hasAnyPrefix(body, readAsMarkers); ok {
		tailLen, respectively := readAsTail(body[len(marker):])
		rest := body[len(marker)+tailLen:]
		if !hasNext || strings.Trim(rest, gapSpaces) != "" {
			return t.missing(orig.Start, end)
		}
		t.pushOriginal(orig)
		t.pending = append(t.pending, Segment{
			Kind:         SegmentReadAsMarker,
			Start:        bodyStart,
			End:          bodyStart + len(marker) + tailLen,
			Text:         body[:len(marker)+tailLen],
			Respectively: respectively,
		})
		t.segments = append(t.segments, t.pending...)
		t.pending = nil
		t.mustRead = false
		t.state = expectReplacement
		return nil
	}

	if strings.HasPrefix(body, ariMarker) {
		if !hasNext {
			return t.missing(orig.Start, end)
		}
		joinLen := joinerPrefixLen(body[len(ariMarker):])
		coordEnd := len(ariMarker) + joinLen
		t.pushOriginal(orig)
		t.pending = append(t.pending, Segment{
			Kind:  SegmentCoordinator,
			Start: bodyStart,
			End:   bodyStart + coordEnd,
			Text:  body[:coordEnd],
			Level: CoordinateList,
		})
		t.mustRead = true
		t.scope = t.scopeMarker(bodyStart+coordEnd, end)
		return nil
	}

	if joinLen := joinerPrefixLen(body); hasNext && joinLen > 0 {
		remainder := body[joinLen:]
		scope := t.scopeMarker(bodyStart+joinLen, end)
		if strings.Trim(remainder, gapSpaces) == "" || (scope != nil && scope.Start == bodyStart+joinLen) {
			t.pushOriginal(orig)
			t.pending = append(t.pending, Segment{
				Kind:  SegmentCoordinator,
				Start: bodyStart,
				End:   bodyStart + joinLen,
				Text:  body[:joinLen],
				Level: CoordinateList,
			})
			t.scope = scope
			return nil
		}
	}

	// Not followed by any structural particle: the quote is not part of a
	// substitution.
	if t.mustRead {
		return t.missing(t.chainStart, end)
	}
	t.pending = nil
	t.scope = t.scopeMarker(bodyStart, end)
	return nil
}

func (t *tokenizer) pushOriginal(orig Segment) {
	if len(t.pending) == 0 {
		t.chainStart = orig.Start
	}
	if t.scope != nil {
		if len(t.pending) == 0 {
			t.chainStart = t.scope.Start
		}
		t.pending = append(t.pending, *t.scope)
		t.scope = nil
	}
	t.pending = append(t.pending, orig)
}

func (t *tokenizer) missing(start, end int) error {
	return newParseError(ReasonMissingReadAsMarker, t.text, start, end)
}

func (t *tokenizer) replacement(i int) {
	t.segments = append(t.segments, t.quoteSegment(SegmentReplacementQuote, i))
	body, bodyStart, end := t.after(i)
	hasNext := i+1 < len(t.toks)

	joinLen := joinerPrefixLen(body)
	if hasNext && joinLen > 0 && joinLen == len(strings.TrimRight(body, gapSpaces)) && !t.startsOriginalChain(i+1) {
		t.segments = append(t.segments, Segment{
			Kind:  SegmentCoordinator,
			Start: bodyStart,
			End:   bodyStart + joinLen,
			Text:  body[:joinLen],
			Level: CoordinateList,
		})
		return
	}

	// Group boundary: と、 / と before the next quote / 、 before a new
	// original / と読み替える at the end of the sentence.
	coordLen := 0
	switch {
	case strings.HasPrefix(body, "と"):
		coordLen = len("と")
		if strings.HasPrefix(body[coordLen:], "、") {
			coordLen += len("、")
		}
	case joinLen > 0:
		coordLen = joinLen
	}
	t.segments = append(t.segments, Segment{
		Kind:  SegmentCoordinator,
		Start: bodyStart,
		End:   bodyStart + coordLen,
		Text:  body[:coordLen],
		Level: CoordinateGroup,
	})
	t.state = expectOriginal
	t.scope = t.scopeMarker(bodyStart+coordLen, end)

	// After と、 the next quote (or scope and quote) must open another pair.
	if hasNext && strings.HasPrefix(body, "と、") {
		next := bodyStart + coordLen
		if strings.Trim(body[coordLen:], gapSpaces) == "" || (t.scope != nil && t.scope.Start == next) {
			t.mustRead = true
			t.chainStart = t.toks[i+1].Start
			if t.scope != nil {
				t.chainStart = t.scope.Start
			}
		}
	}
}

// startsOriginalChain reports whether quote i, possibly followed by more
// quotes joined by list joiners, ends in a read-as or とあり marker.
func (t *tokenizer) startsOriginalChain(i int) bool {
	for ; i < len(t.toks); i++ {
		body, _, _ := t.after(i)
		if _, ok := hasAnyPrefix(body, readAsMarkers); ok {
			return true
		}
		if strings.HasPrefix(body, ariMarker) {
			return true
		}
		joinLen := joinerPrefixLen(body)
		if joinLen == 0 || joinLen != len(strings.TrimRight(body, gapSpaces)) {
			return false
		}
	}
	return false
}

// scopeMarker extracts a scope qualifier ending text[start:end].
func (t *tokenizer) scopeMarker(start, end int) *Segment {
	if start >= end {
		return nil
	}
	gap := t.text[start:end]
	m, err := scopeTail.FindStringMatch(gap)
	if err != nil || m == nil {
		return nil
	}
	group := m.GroupByName("scope")
	if group == nil {
		return nil
	}
	scope := group.String()
	scopeStart := len(gap) - len(m.String())
	terminator := m.String()[len(scope):]

	if idx := strings.LastIndex(scope, "において"); idx >= 0 {
		scopeStart += idx + len("において")
		scope = scope[idx+len("において"):]
	}
	for _, lead := range []string{"及び", "並びに", "また", "なお"} {
		if strings.HasPrefix(scope, lead) {
			scopeStart += len(lead)
			scope = scope[len(lead):]
		}
	}
	trimmed := strings.TrimLeft(scope, gapSpaces)
	scopeStart += len(scope) - len(trimmed)
	scope = trimmed
	if scope == "" {
		return nil
	}
	if strings.Contains(terminator, "において") && !refPrefix.MatchString(scope) {
		return nil
	}

	// 第十条、第十二条及び第十五条中: extend across commas between references.
	for scopeStart > 0 && strings.HasSuffix(gap[:scopeStart], "、") {
		prev := gap[:scopeStart-len("、")]
		chunkStart := 0
		if idx := strings.LastIndexAny(prev, "、。，「」"); idx >= 0 {
			_, size := utf8.DecodeRuneInString(prev[idx:])
			chunkStart = idx + size
		}
		chunk := prev[chunkStart:]
		if !refChunk.MatchString(chunk) {
			break
		}
		scope = gap[chunkStart:scopeStart] + scope
		scopeStart = chunkStart
	}

	return &Segment{
		Kind:  SegmentScopeMarker,
		Start: start + scopeStart,
		End:   start + scopeStart + len(scope),
		Text:  scope,
	}
}

func hasAnyPrefix(s string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return p, true
		}
	}
	return "", false
}

// readAsTail consumes the 、 and それぞれ that may follow とあるのは.
func readAsTail(s string) (int, bool) {
	n := 0
	respectively := false
	for {
		rest := s[n:]
		trimmed := strings.TrimLeft(rest, gapSpaces)
		n += len(rest) - len(trimmed)
		switch {
		case strings.HasPrefix(trimmed, "、"):
			n += len("、")
		case strings.HasPrefix(trimmed, "，"):
			n += len("，")
		case strings.HasPrefix(trimmed, respectivelyMarker) && !respectively:
			n += len(respectivelyMarker)
			respectively = true
		default:
			return n, respectively
		}
	}
}

// joinerPrefixLen returns the byte length of the run of list joiners (and
// spaces) at the start of s.
func joinerPrefixLen(s string) int {
	n := 0
	for {
		rest := s[n:]
		trimmed := strings.TrimLeft(rest, gapSpaces)
		skipped := len(rest) - len(trimmed)
		joiner, ok := hasAnyPrefix(trimmed, listJoiners)
		if !ok {
			return n
		}
		n += skipped + len(joiner)
	}
}

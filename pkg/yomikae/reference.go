package yomikae

import (
	"regexp"
	"strconv"
	"strings"
)

// Level is the depth of a reference in the statute hierarchy.
type Level int

const (
	LevelNone Level = iota
	LevelSuppl
	LevelPart
	LevelChapter
	LevelSection
	LevelSubsection
	LevelDivision
	LevelArticle
	LevelParagraph
	LevelItem
	LevelSubitem
)

var levelNames = map[Level]string{
	LevelNone:       "none",
	LevelSuppl:      "suppl",
	LevelPart:       "part",
	LevelChapter:    "chapter",
	LevelSection:    "section",
	LevelSubsection: "subsection",
	LevelDivision:   "division",
	LevelArticle:    "article",
	LevelParagraph:  "paragraph",
	LevelItem:       "item",
	LevelSubitem:    "subitem",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// Reference is one parsed provision designator such as 第五条第二項第三号イ.
// Numbers use the e-Gov Num form. LawName is set when the designator names
// another statute (法第五条, 徴収法施行規則第二十七条).
type Reference struct {
	LawName    string `json:"law_name,omitempty"`
	Suppl      bool   `json:"suppl,omitempty"`
	Part       string `json:"part,omitempty"`
	Chapter    string `json:"chapter,omitempty"`
	Section    string `json:"section,omitempty"`
	Subsection string `json:"subsection,omitempty"`
	Division   string `json:"division,omitempty"`
	Article    string `json:"article,omitempty"`
	Paragraph  string `json:"paragraph,omitempty"`
	Item       string `json:"item,omitempty"`
	Subitem    string `json:"subitem,omitempty"`
}

// Level returns the deepest level the reference designates.
func (r Reference) Level() Level {
	switch {
	case r.Subitem != "":
		return LevelSubitem
	case r.Item != "":
		return LevelItem
	case r.Paragraph != "":
		return LevelParagraph
	case r.Article != "":
		return LevelArticle
	case r.Division != "":
		return LevelDivision
	case r.Subsection != "":
		return LevelSubsection
	case r.Section != "":
		return LevelSection
	case r.Chapter != "":
		return LevelChapter
	case r.Part != "":
		return LevelPart
	case r.Suppl:
		return LevelSuppl
	}
	return LevelNone
}

// Key renders the canonical provision key used by the reference index,
// for example "suppl/article:3/paragraph:2". Structural divisions are part
// of the key only for references that stop above the article level, since
// article numbers are unique within a statute.
func (r Reference) Key() string {
	var parts []string
	if r.Suppl {
		parts = append(parts, "suppl")
	}
	if r.Article == "" {
		parts = appendKey(parts, "part", r.Part)
		parts = appendKey(parts, "chapter", r.Chapter)
		parts = appendKey(parts, "section", r.Section)
		parts = appendKey(parts, "subsection", r.Subsection)
		parts = appendKey(parts, "division", r.Division)
	}
	parts = appendKey(parts, "article", r.Article)
	parts = appendKey(parts, "paragraph", r.Paragraph)
	parts = appendKey(parts, "item", r.Item)
	parts = appendKey(parts, "subitem", r.Subitem)
	return strings.Join(parts, "/")
}

func appendKey(parts []string, name, value string) []string {
	if value == "" {
		return parts
	}
	return append(parts, name+":"+value)
}

func (r *Reference) set(level Level, num string) {
	switch level {
	case LevelPart:
		r.Part = num
	case LevelChapter:
		r.Chapter = num
	case LevelSection:
		r.Section = num
	case LevelSubsection:
		r.Subsection = num
	case LevelDivision:
		r.Division = num
	case LevelArticle:
		r.Article = num
	case LevelParagraph:
		r.Paragraph = num
	case LevelItem:
		r.Item = num
	case LevelSubitem:
		r.Subitem = num
	}
}

// above returns a copy keeping only the parts strictly above level.
// Structural divisions are dropped once an article is involved.
func (r Reference) above(level Level) Reference {
	out := Reference{LawName: r.LawName, Suppl: r.Suppl}
	first := LevelPart
	if level >= LevelArticle {
		first = LevelArticle
	}
	for l := first; l < level && l <= LevelSubitem; l++ {
		out.set(l, r.get(l))
	}
	return out
}

func (r Reference) get(level Level) string {
	switch level {
	case LevelPart:
		return r.Part
	case LevelChapter:
		return r.Chapter
	case LevelSection:
		return r.Section
	case LevelSubsection:
		return r.Subsection
	case LevelDivision:
		return r.Division
	case LevelArticle:
		return r.Article
	case LevelParagraph:
		return r.Paragraph
	case LevelItem:
		return r.Item
	case LevelSubitem:
		return r.Subitem
	}
	return ""
}

// LocationReference converts a candidate location into a Reference to the
// same provision.
func LocationReference(loc Location) Reference {
	return Reference{
		Suppl:     loc.Suppl,
		Chapter:   loc.Chapter,
		Section:   loc.Section,
		Article:   loc.Article,
		Paragraph: loc.Paragraph,
		Item:      loc.Item,
	}
}

var structuralUnits = map[string]Level{
	"編": LevelPart,
	"章": LevelChapter,
	"節": LevelSection,
	"款": LevelSubsection,
	"目": LevelDivision,
	"条": LevelArticle,
	"項": LevelParagraph,
	"号": LevelItem,
}

const numeral = `[0-9０-９〇零一二三四五六七八九十百千万]+`

// referenceParser parses scope text into References.
type referenceParser struct {
	structuralPattern *regexp.Regexp // 第三章, 第二節
	articlePattern    *regexp.Regexp // 第百十三条の三十八
	paragraphPattern  *regexp.Regexp // 第二項
	itemPattern       *regexp.Regexp // 第三号の二
	supplPattern      *regexp.Regexp // 附則
	relativePattern   *regexp.Regexp // 同条, 前項, この節, 本条
	sameLawPattern    *regexp.Regexp // 同法, 同令
	joinerPattern     *regexp.Regexp
	rangeFromPattern  *regexp.Regexp
	rangeToPattern    *regexp.Regexp
	ignorablePattern  *regexp.Regexp // parts of a provision that do not narrow the key
	lawNameEnd        *regexp.Regexp
	articleMention    *regexp.Regexp
}

func newReferenceParser() *referenceParser {
	return &referenceParser{
		structuralPattern: regexp.MustCompile(`^第(` + numeral + `)(編|章|節|款|目)`),
		articlePattern:    regexp.MustCompile(`^第(` + numeral + `)条((?:の` + numeral + `)*)`),
		paragraphPattern:  regexp.MustCompile(`^第(` + numeral + `)項`),
		itemPattern:       regexp.MustCompile(`^第(` + numeral + `)号((?:の` + numeral + `)*)`),
		supplPattern:      regexp.MustCompile(`^附則`),
		relativePattern:   regexp.MustCompile(`^(同|前|次|この|本)(条|項|号|章|節|款|目|編)`),
		sameLawPattern:    regexp.MustCompile(`^同(法|令|規則|省令|政令)`),
		joinerPattern:     regexp.MustCompile(`^(?:及び|並びに|又は|若しくは|、|，)`),
		rangeFromPattern:  regexp.MustCompile(`^から`),
		rangeToPattern:    regexp.MustCompile(`^まで`),
		ignorablePattern:  regexp.MustCompile(`^(?:の規定|規定|各号|各項|ただし書|本文|前段|後段|柱書き?|の表|表)`),
		lawNameEnd:        regexp.MustCompile(`第` + numeral + `(?:編|章|節|款|目|条|項|号)|附則`),
		articleMention:    regexp.MustCompile(`第(` + numeral + `)条((?:の` + numeral + `)*)`),
	}
}

// refContext anchors relative designators.
type refContext struct {
	own    Location
	anchor *Reference
}

// refBuilder collects the designators of one list element.
type refBuilder struct {
	ref   Reference
	set   bool  // a designator has been placed
	named bool  // the element carries its own law name
	last  Level // deepest level placed so far
}

// parse splits scope text into references. Elements joined by 及び, 並びに
// or 、 inherit the upper levels of the preceding element, so 第五条第一項及び
// 第三項 yields article 5 paragraph 1 and article 5 paragraph 3. A range
// 第五条から第七条まで yields its two endpoints. ok is false when any part
// of the text is not a designator.
func (p *referenceParser) parse(text string, rc refContext) (refs []Reference, ok bool) {
	var (
		cur    refBuilder
		prev   *Reference
		anchor = rc.anchor
		open   bool // a joiner or から still waits for its right operand
	)

	finish := func() bool {
		if !cur.set {
			return false
		}
		ref := cur.ref
		if ref.Article != "" && ref.Paragraph == "" && ref.Item != "" {
			ref.Paragraph = "1"
		}
		refs = append(refs, ref)
		prev = &refs[len(refs)-1]
		last := ref
		anchor = &last
		cur = refBuilder{}
		return true
	}

	place := func(level Level, num string) bool {
		if cur.set && level <= cur.last {
			return false
		}
		if !cur.set && !cur.named && prev != nil {
			cur.ref = prev.above(level)
		}
		cur.ref.set(level, num)
		cur.set = true
		cur.last = level
		open = false
		return true
	}

	rest := strings.TrimSpace(text)
	for rest != "" {
		rest = strings.TrimLeft(rest, gapSpaces)
		if rest == "" {
			break
		}

		if m := p.joinerPattern.FindString(rest); m != "" {
			if !finish() {
				return nil, false
			}
			open = true
			rest = rest[len(m):]
			continue
		}
		if m := p.rangeFromPattern.FindString(rest); m != "" {
			if !finish() {
				return nil, false
			}
			open = true
			rest = rest[len(m):]
			continue
		}
		if m := p.rangeToPattern.FindString(rest); m != "" {
			if !finish() {
				return nil, false
			}
			rest = rest[len(m):]
			continue
		}
		if m := p.ignorablePattern.FindString(rest); m != "" && cur.set {
			rest = rest[len(m):]
			continue
		}

		if m := p.structuralPattern.FindStringSubmatch(rest); m != nil {
			num, numOK := NumKey(m[1])
			if !numOK || !place(structuralUnits[m[2]], num) {
				return nil, false
			}
			rest = rest[len(m[0]):]
			continue
		}
		if m := p.articlePattern.FindStringSubmatch(rest); m != nil {
			num, numOK := NumKey(splitBranches(m[1], m[2])...)
			if !numOK || !place(LevelArticle, num) {
				return nil, false
			}
			rest = rest[len(m[0]):]
			continue
		}
		if m := p.paragraphPattern.FindStringSubmatch(rest); m != nil {
			num, numOK := NumKey(m[1])
			if !numOK || !place(LevelParagraph, num) {
				return nil, false
			}
			rest = rest[len(m[0]):]
			continue
		}
		if m := p.itemPattern.FindStringSubmatch(rest); m != nil {
			num, numOK := NumKey(splitBranches(m[1], m[2])...)
			if !numOK || !place(LevelItem, num) {
				return nil, false
			}
			rest = rest[len(m[0]):]
			continue
		}
		if cur.last == LevelItem {
			r := []rune(rest)
			if idx, isIroha := IrohaIndex(string(r[0])); isIroha {
				if !place(LevelSubitem, strconv.Itoa(idx)) {
					return nil, false
				}
				rest = string(r[1:])
				continue
			}
		}
		if m := p.supplPattern.FindString(rest); m != "" {
			if cur.set {
				return nil, false
			}
			if !cur.named && prev != nil {
				cur.ref.LawName = prev.LawName
			}
			cur.ref.Suppl = true
			cur.set = true
			cur.last = LevelSuppl
			open = false
			rest = rest[len(m):]
			continue
		}
		if m := p.relativePattern.FindStringSubmatch(rest); m != nil {
			if cur.set {
				return nil, false
			}
			ref, relOK := resolveRelative(m[1], structuralUnits[m[2]], rc.own, anchor)
			if !relOK {
				return nil, false
			}
			if cur.named {
				ref.LawName = cur.ref.LawName
			}
			cur.ref = ref
			cur.set = true
			cur.last = ref.Level()
			open = false
			rest = rest[len(m[0]):]
			continue
		}
		if m := p.sameLawPattern.FindString(rest); m != "" && !cur.set {
			name := m
			if anchor != nil && anchor.LawName != "" {
				name = anchor.LawName
			}
			cur.ref.LawName = name
			cur.named = true
			rest = rest[len(m):]
			continue
		}
		if !cur.set {
			// A statute name runs up to its first designator.
			loc := p.lawNameEnd.FindStringIndex(rest)
			if loc == nil || loc[0] == 0 {
				return nil, false
			}
			name := rest[:loc[0]]
			if strings.ContainsAny(name, "、。，「」") {
				return nil, false
			}
			cur.ref.LawName += name
			cur.named = true
			rest = rest[loc[0]:]
			continue
		}
		return nil, false
	}
	if cur.set {
		finish()
	} else if cur.named || open {
		return nil, false
	}
	return refs, len(refs) > 0
}

// lastArticle returns the last 第N条 mentioned in text[:before] outside of
// quotations.
func (p *referenceParser) lastArticle(text string, quotes QuoteStream, before int, suppl bool) *Reference {
	if before > len(text) {
		before = len(text)
	}
	if before <= 0 {
		return nil
	}
	var found *Reference
	for _, loc := range p.articleMention.FindAllStringSubmatchIndex(text[:before], -1) {
		if !quotes.Outside(loc[0]) {
			continue
		}
		var branches string
		if loc[4] >= 0 {
			branches = text[loc[4]:loc[5]]
		}
		num, ok := NumKey(splitBranches(text[loc[2]:loc[3]], branches)...)
		if !ok {
			continue
		}
		found = &Reference{Suppl: suppl, Article: num}
	}
	return found
}

// splitBranches turns ("百十三", "の三十八") into ["百十三", "三十八"].
func splitBranches(head, branches string) []string {
	parts := []string{head}
	for _, b := range strings.Split(branches, "の") {
		if b != "" {
			parts = append(parts, b)
		}
	}
	return parts
}

// resolveRelative expands 同条, 前項, この節 and the like.
func resolveRelative(prefix string, level Level, own Location, anchor *Reference) (Reference, bool) {
	switch prefix {
	case "同":
		if anchor == nil || anchor.get(level) == "" {
			return Reference{}, false
		}
		ref := anchor.above(level)
		ref.set(level, anchor.get(level))
		return ref, true

	case "前", "次":
		delta := 1
		if prefix == "前" {
			delta = -1
		}
		self := LocationReference(own)
		if level == LevelParagraph && self.Paragraph == "" && self.Article != "" {
			self.Paragraph = "1"
		}
		if level != LevelArticle && level != LevelParagraph && level != LevelItem {
			return Reference{}, false
		}
		num, ok := shiftNum(self.get(level), delta)
		if !ok {
			return Reference{}, false
		}
		ref := self.above(level)
		ref.set(level, num)
		return ref, true

	case "この", "本":
		self := LocationReference(own)
		if level == LevelParagraph && self.Paragraph == "" && self.Article != "" {
			self.Paragraph = "1"
		}
		if self.get(level) == "" {
			return Reference{}, false
		}
		ref := self.above(level)
		ref.set(level, self.get(level))
		return ref, true
	}
	return Reference{}, false
}

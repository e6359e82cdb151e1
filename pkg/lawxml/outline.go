package lawxml

import (
	"github.com/coolbeans/yomikae/pkg/yomikae"
)

// Outline lists every addressable unit of a law: divisions, articles,
// paragraphs, items and first-level subitems.
type Outline struct {
	LawNum  string
	Title   string
	Entries []yomikae.Reference
}

// BuildOutline collects the structural references of law.
func BuildOutline(law *Law) Outline {
	o := &outliner{}
	o.container(law.Body.Main, yomikae.Reference{}, levelRoot)
	for _, suppl := range law.Body.Suppl {
		o.container(suppl.Container, yomikae.Reference{Suppl: true}, levelRoot)
	}
	return Outline{
		LawNum:  law.LawNum.String(),
		Title:   law.Body.Title.String(),
		Entries: o.entries,
	}
}

type outliner struct {
	entries []yomikae.Reference
	seen    map[string]bool
}

func (o *outliner) add(ref yomikae.Reference) {
	if o.seen == nil {
		o.seen = make(map[string]bool)
	}
	key := ref.Key()
	if key == "" || o.seen[key] {
		return
	}
	o.seen[key] = true
	o.entries = append(o.entries, ref)
}

func (o *outliner) container(c Container, base yomikae.Reference, level containerLevel) {
	if c.Delete {
		return
	}
	ref := base
	switch level {
	case levelPart:
		ref.Part = c.Num
	case levelChapter:
		// Chapters are numbered through the whole law, not per part.
		ref.Part = ""
		ref.Chapter = c.Num
	case levelSection:
		ref.Section = c.Num
	case levelSubsection:
		ref.Subsection = c.Num
	case levelDivision:
		ref.Division = c.Num
	}
	if level != levelRoot {
		o.add(ref)
	} else if ref.Suppl {
		o.add(ref)
	}

	for _, p := range c.Parts {
		o.container(p, ref, levelPart)
	}
	for _, ch := range c.Chapters {
		o.container(ch, ref, levelChapter)
	}
	for _, s := range c.Sections {
		o.container(s, ref, levelSection)
	}
	for _, s := range c.Subsections {
		o.container(s, ref, levelSubsection)
	}
	for _, d := range c.Divisions {
		o.container(d, ref, levelDivision)
	}
	for _, a := range c.Articles {
		if a.Delete {
			continue
		}
		art := yomikae.Reference{Suppl: ref.Suppl, Article: a.Num}
		o.add(art)
		for _, p := range a.Paragraphs {
			o.paragraph(p, art)
		}
	}
	for _, p := range c.Paragraphs {
		o.paragraph(p, yomikae.Reference{Suppl: ref.Suppl})
	}
}

func (o *outliner) paragraph(p Paragraph, base yomikae.Reference) {
	para := base
	para.Paragraph = p.Num
	o.add(para)
	for _, item := range p.Items {
		if item.Delete {
			continue
		}
		it := para
		it.Item = item.Num
		o.add(it)
		for _, s := range item.Subitems {
			sub := it
			sub.Subitem = s.Num
			o.add(sub)
		}
	}
}

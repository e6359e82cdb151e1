package lawxml

import (
	"github.com/coolbeans/yomikae/pkg/yomikae"
)

// Provision is the text of one paragraph, item or subitem together with any
// table attached to it.
type Provision struct {
	Location yomikae.Location
	Text     string
	Table    [][]string
}

// HasTable reports whether a table is attached.
func (p Provision) HasTable() bool {
	return len(p.Table) > 0
}

// walker carries the structural position while flattening a law.
type walker struct {
	loc   yomikae.Location
	out   []Provision
	index int
}

// Provisions flattens law into provisions in document order: the main
// provision first, then each supplementary provision.
func Provisions(law *Law, lawID string) []Provision {
	w := &walker{}
	w.loc = yomikae.Location{LawID: lawID, LawNum: law.LawNum.String()}
	w.container(law.Body.Main, levelRoot)

	for _, suppl := range law.Body.Suppl {
		w.loc = yomikae.Location{
			LawID:    lawID,
			LawNum:   law.LawNum.String(),
			Suppl:    true,
			SupplNum: suppl.AmendLawNum,
		}
		w.container(suppl.Container, levelRoot)
	}
	return w.out
}

type containerLevel int

const (
	levelRoot containerLevel = iota
	levelPart
	levelChapter
	levelSection
	levelSubsection
	levelDivision
)

func (w *walker) container(c Container, level containerLevel) {
	if c.Delete {
		return
	}
	saved := w.loc
	switch level {
	case levelChapter:
		w.loc.Chapter = c.Num
		w.loc.Section = ""
	case levelSection:
		w.loc.Section = c.Num
	}

	for _, p := range c.Parts {
		w.container(p, levelPart)
	}
	for _, ch := range c.Chapters {
		w.container(ch, levelChapter)
	}
	for _, s := range c.Sections {
		w.container(s, levelSection)
	}
	for _, s := range c.Subsections {
		w.container(s, levelSubsection)
	}
	for _, d := range c.Divisions {
		w.container(d, levelDivision)
	}
	for _, a := range c.Articles {
		w.article(a)
	}
	for _, p := range c.Paragraphs {
		w.paragraph(p)
	}
	w.loc = saved
}

func (w *walker) article(a Article) {
	if a.Delete {
		return
	}
	saved := w.loc
	w.loc.Article = a.Num
	for _, p := range a.Paragraphs {
		w.paragraph(p)
	}
	w.loc = saved
}

func (w *walker) paragraph(p Paragraph) {
	saved := w.loc
	w.loc.Paragraph = p.Num
	w.loc.Item = ""

	w.emit(p.Sentence.String(), p.Tables)
	for _, item := range p.Items {
		w.item(item)
	}
	w.loc = saved
}

func (w *walker) item(item Item) {
	if item.Delete {
		return
	}
	saved := w.loc
	w.loc.Item = item.Num
	w.emit(item.Sentence.String(), item.Tables)
	for _, s1 := range item.Subitems {
		w.emit(s1.Sentence.String(), nil)
		for _, s2 := range s1.Subitems {
			w.emit(s2.Sentence.String(), nil)
			for _, s3 := range s2.Subitems {
				w.emit(s3.Sentence.String(), nil)
			}
		}
	}
	w.loc = saved
}

func (w *walker) emit(text string, tables []TableStruct) {
	var rows [][]string
	for _, ts := range tables {
		rows = append(rows, ts.Table.Cells()...)
	}
	if text == "" && len(rows) == 0 {
		return
	}
	loc := w.loc
	loc.Index = w.index
	w.index++
	w.out = append(w.out, Provision{Location: loc, Text: text, Table: rows})
}

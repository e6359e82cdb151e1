// Package lawxml decodes statutes published in the e-Gov law XML schema and
// flattens them into provisions.
package lawxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// --- e-Gov law XML structures ---
// Only the elements needed to locate provision text are modelled. The
// schema nests Law → LawBody → MainProvision / SupplProvision → (Part →
// Chapter → Section → Subsection → Division →) Article → Paragraph → Item →
// Subitem1..3.

// Law is the top-level <Law> element.
type Law struct {
	XMLName xml.Name `xml:"Law"`
	Era     string   `xml:"Era,attr"`
	Year    string   `xml:"Year,attr"`
	Num     string   `xml:"Num,attr"`
	LawType string   `xml:"LawType,attr"`
	LawNum  Text     `xml:"LawNum"`
	Body    LawBody  `xml:"LawBody"`
}

// LawBody holds the title and the provisions.
type LawBody struct {
	Title Text             `xml:"LawTitle"`
	Main  Container        `xml:"MainProvision"`
	Suppl []SupplProvision `xml:"SupplProvision"`
}

// SupplProvision is one 附則 block. AmendLawNum is empty for the original
// enactment's supplementary provisions.
type SupplProvision struct {
	Container
	AmendLawNum string `xml:"AmendLawNum,attr"`
	Extract     bool   `xml:"Extract,attr"`
	Label       Text   `xml:"SupplProvisionLabel"`
}

// Container is any element that groups articles: MainProvision, Part,
// Chapter, Section, Subsection and Division share this shape.
type Container struct {
	Num    string `xml:"Num,attr"`
	Delete bool   `xml:"Delete,attr"`

	PartTitle       Text `xml:"PartTitle"`
	ChapterTitle    Text `xml:"ChapterTitle"`
	SectionTitle    Text `xml:"SectionTitle"`
	SubsectionTitle Text `xml:"SubsectionTitle"`
	DivisionTitle   Text `xml:"DivisionTitle"`

	Parts       []Container `xml:"Part"`
	Chapters    []Container `xml:"Chapter"`
	Sections    []Container `xml:"Section"`
	Subsections []Container `xml:"Subsection"`
	Divisions   []Container `xml:"Division"`
	Articles    []Article   `xml:"Article"`
	Paragraphs  []Paragraph `xml:"Paragraph"`
}

// Title returns whichever heading the container carries.
func (c Container) Title() string {
	for _, t := range []Text{c.PartTitle, c.ChapterTitle, c.SectionTitle, c.SubsectionTitle, c.DivisionTitle} {
		if t != "" {
			return t.String()
		}
	}
	return ""
}

// Article is an <Article> (条).
type Article struct {
	Num        string      `xml:"Num,attr"`
	Delete     bool        `xml:"Delete,attr"`
	Caption    Text        `xml:"ArticleCaption"`
	Title      Text        `xml:"ArticleTitle"`
	Paragraphs []Paragraph `xml:"Paragraph"`
}

// Paragraph is a <Paragraph> (項).
type Paragraph struct {
	Num      string        `xml:"Num,attr"`
	Sentence SentenceBlock `xml:"ParagraphSentence"`
	Items    []Item        `xml:"Item"`
	Tables   []TableStruct `xml:"TableStruct"`
}

// Item is an <Item> (号).
type Item struct {
	Num      string        `xml:"Num,attr"`
	Delete   bool          `xml:"Delete,attr"`
	Title    Text          `xml:"ItemTitle"`
	Sentence SentenceBlock `xml:"ItemSentence"`
	Subitems []Subitem1    `xml:"Subitem1"`
	Tables   []TableStruct `xml:"TableStruct"`
}

// Subitem1 is the first subitem level (イ, ロ, ハ).
type Subitem1 struct {
	Num      string        `xml:"Num,attr"`
	Title    Text          `xml:"Subitem1Title"`
	Sentence SentenceBlock `xml:"Subitem1Sentence"`
	Subitems []Subitem2    `xml:"Subitem2"`
}

// Subitem2 is the second subitem level ((1), (2)).
type Subitem2 struct {
	Num      string        `xml:"Num,attr"`
	Title    Text          `xml:"Subitem2Title"`
	Sentence SentenceBlock `xml:"Subitem2Sentence"`
	Subitems []Subitem3    `xml:"Subitem3"`
}

// Subitem3 is the third subitem level ((i), (ii)).
type Subitem3 struct {
	Num      string        `xml:"Num,attr"`
	Title    Text          `xml:"Subitem3Title"`
	Sentence SentenceBlock `xml:"Subitem3Sentence"`
}

// SentenceBlock is the sentence part of a paragraph or item. Items split
// into a term and its definition use Columns.
type SentenceBlock struct {
	Sentences []Text   `xml:"Sentence"`
	Columns   []Column `xml:"Column"`
}

// Column is one <Column> of an item sentence.
type Column struct {
	Sentences []Text `xml:"Sentence"`
}

// String joins the sentences; columns are separated by a full-width space as
// in the printed statute.
func (b SentenceBlock) String() string {
	if len(b.Columns) > 0 {
		cols := make([]string, 0, len(b.Columns))
		for _, c := range b.Columns {
			cols = append(cols, joinText(c.Sentences))
		}
		return strings.Join(cols, "　")
	}
	return joinText(b.Sentences)
}

// TableStruct wraps a <Table>.
type TableStruct struct {
	Title Text  `xml:"TableStructTitle"`
	Table Table `xml:"Table"`
}

// Table is a <Table>.
type Table struct {
	HeaderRows []TableRow `xml:"TableHeaderRow"`
	Rows       []TableRow `xml:"TableRow"`
}

// TableRow is a <TableRow> or <TableHeaderRow>.
type TableRow struct {
	Columns []TableColumn `xml:"TableColumn"`
	Headers []Text        `xml:"TableHeaderColumn"`
}

// TableColumn is one cell.
type TableColumn struct {
	Sentences []Text   `xml:"Sentence"`
	Columns   []Column `xml:"Column"`
	Items     []Item   `xml:"Item"`
}

// String returns the flattened cell text.
func (c TableColumn) String() string {
	block := SentenceBlock{Sentences: c.Sentences, Columns: c.Columns}
	text := block.String()
	for _, item := range c.Items {
		text += item.Sentence.String()
	}
	return text
}

// Cells returns the table rows as text, header rows first.
func (t Table) Cells() [][]string {
	var rows [][]string
	for _, r := range t.HeaderRows {
		row := make([]string, 0, len(r.Headers))
		for _, h := range r.Headers {
			row = append(row, h.String())
		}
		rows = append(rows, row)
	}
	for _, r := range t.Rows {
		row := make([]string, 0, len(r.Columns))
		for _, c := range r.Columns {
			row = append(row, c.String())
		}
		rows = append(rows, row)
	}
	return rows
}

// Text is element content with inline markup flattened. Ruby readings
// (<Rt>) are dropped; <Sup>, <Sub> and <Line> contribute their text.
type Text string

// UnmarshalXML implements xml.Unmarshaler.
func (t *Text) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "Rt" {
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			depth++
		case xml.EndElement:
			if depth == 0 {
				*t = Text(cleanXMLText(b.String()))
				return nil
			}
			depth--
		case xml.CharData:
			b.Write(el)
		}
	}
}

func (t Text) String() string {
	return string(t)
}

func joinText(texts []Text) string {
	var b strings.Builder
	for _, t := range texts {
		b.WriteString(string(t))
	}
	return b.String()
}

// --- Parsing functions ---

// Parse decodes e-Gov law XML.
func Parse(reader io.Reader) (*Law, error) {
	decoder := xml.NewDecoder(reader)
	decoder.Strict = false

	law := &Law{}
	if err := decoder.Decode(law); err != nil {
		return nil, fmt.Errorf("failed to parse law XML: %w", err)
	}
	return law, nil
}

// ParseFile decodes the law XML file at path.
func ParseFile(path string) (*Law, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open law XML: %w", err)
	}
	defer f.Close()

	law, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return law, nil
}

// cleanXMLText removes the layout whitespace of pretty-printed XML. Japanese
// statute text has no meaningful ASCII whitespace; the full-width space is
// kept.
func cleanXMLText(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, text)
}

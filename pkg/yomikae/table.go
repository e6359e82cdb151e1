package yomikae

import (
	"context"
	"strings"
)

// tableHeaders mark the caption row of a replacement table.
var tableHeaders = []string{"読み替える規定", "読み替えられる字句", "読み替える字句"}

// ParseTable extracts pairs from a replacement table (読み替え表).
//
// Two-column rows are (original, replacement) and unscoped. Three-column rows
// are (provision, original, replacement); a blank provision cell continues
// the provision of the row above, as merged cells do in the printed table.
// Pairs are numbered by data row and carry zero offsets. A failure's Offset
// is the index of the offending row.
func (p *Parser) ParseTable(ctx context.Context, cand TableCandidate) (Outcome, error) {
	var (
		pairs   []SubstitutionPair
		current *ScopeRef
	)
	for rowIndex, row := range cand.Rows {
		cells := trimCells(row)
		if isBlankRow(cells) || isHeaderRow(cells) {
			continue
		}

		var scopeText, original, replacement string
		switch len(cells) {
		case 2:
			original, replacement = cells[0], cells[1]
		case 3:
			scopeText, original, replacement = cells[0], cells[1], cells[2]
		default:
			return failure(cand.Location, tableError(cells, rowIndex)), nil
		}
		if original == "" || replacement == "" {
			return failure(cand.Location, tableError(cells, rowIndex)), nil
		}

		pair := SubstitutionPair{
			Original:    Span{Text: original},
			Replacement: Span{Text: replacement},
			Group:       len(pairs),
		}
		switch {
		case len(cells) == 2:
		case scopeText != "":
			current = &ScopeRef{Text: scopeText, Origin: ScopeExplicit, Start: -1}
			pair.Scope = current
		case current != nil:
			pair.Scope = inherit(current)
		}
		pairs = append(pairs, pair)
	}

	if len(pairs) == 0 {
		return failure(cand.Location, &ParseError{Reason: ReasonNoPairsFound}), nil
	}

	resolver := &scopeResolver{
		refs:      p.refs,
		validator: p.validator,
		loc:       cand.Location,
	}
	if err := resolver.resolve(ctx, pairs); err != nil {
		return Outcome{}, err
	}
	return Outcome{Result: aggregate(cand.Location, pairs, nil)}, nil
}

func trimCells(row []string) []string {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = strings.Trim(c, gapSpaces)
	}
	return cells
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func isHeaderRow(cells []string) bool {
	for _, c := range cells {
		for _, h := range tableHeaders {
			if strings.Contains(c, h) {
				return true
			}
		}
	}
	return false
}

func tableError(cells []string, row int) *ParseError {
	return &ParseError{
		Reason:  ReasonMalformedTable,
		Excerpt: clip(strings.Join(cells, " | ")),
		Offset:  row,
	}
}

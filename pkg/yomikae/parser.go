package yomikae

import (
	"context"
	"errors"
	"strings"
)

// Parser extracts substitution pairs from clause candidates. A Parser holds
// no per-clause state and is safe for concurrent use.
type Parser struct {
	validator ReferenceValidator
	refs      *referenceParser
}

// NewParser creates a Parser. A nil validator disables existence checks and
// leaves parsed scopes in the "unchecked" state.
func NewParser(validator ReferenceValidator) *Parser {
	return &Parser{
		validator: validator,
		refs:      newReferenceParser(),
	}
}

// Parse runs one clause through quotation scanning, tokenizing, pair
// matching and scope resolution. Clause-level problems are reported in the
// returned Outcome; the error is reserved for validator failures such as
// I/O errors or context cancellation.
func (p *Parser) Parse(ctx context.Context, cand ClauseCandidate) (Outcome, error) {
	text := cand.Text
	if strings.TrimSpace(text) == "" {
		return failure(cand.Location, newParseError(ReasonNoPairsFound, text, 0, len(text))), nil
	}

	quotes, err := ScanQuotes(text)
	if err != nil {
		return failureFrom(cand.Location, err)
	}
	segments, err := Tokenize(text, quotes)
	if err != nil {
		return failureFrom(cand.Location, err)
	}
	pairs, err := MatchPairs(text, segments)
	if err != nil {
		return failureFrom(cand.Location, err)
	}

	resolver := &scopeResolver{
		refs:      p.refs,
		validator: p.validator,
		loc:       cand.Location,
		text:      text,
		quotes:    quotes,
	}
	if err := resolver.resolve(ctx, pairs); err != nil {
		return Outcome{}, err
	}

	var clauseFlags []Flag
	if quotes.Warned() {
		clauseFlags = append(clauseFlags, FlagUnmatchedClosingBracket)
	}
	return Outcome{Result: aggregate(cand.Location, pairs, clauseFlags)}, nil
}

// aggregate attaches scope flags to each pair and collects the union of all
// flags on the result.
func aggregate(loc Location, pairs []SubstitutionPair, clauseFlags []Flag) *ClauseResult {
	flags := append([]Flag(nil), clauseFlags...)
	for i := range pairs {
		if pairs[i].Scope != nil {
			if flag, ok := scopeFlag(pairs[i].Scope.Status); ok {
				pairs[i].Flags = appendFlag(pairs[i].Flags, flag)
			}
		}
		for _, flag := range pairs[i].Flags {
			flags = appendFlag(flags, flag)
		}
	}
	return &ClauseResult{
		Location: loc,
		Pairs:    pairs,
		Flags:    flags,
	}
}

func failure(loc Location, pe *ParseError) Outcome {
	return Outcome{Failure: &ClauseFailure{
		Location: loc,
		Reason:   pe.Reason,
		Excerpt:  pe.Excerpt,
		Offset:   pe.Offset,
	}}
}

// failureFrom converts a stage error into a failed Outcome. Errors that are
// not *ParseError are passed through.
func failureFrom(loc Location, err error) (Outcome, error) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return failure(loc, pe), nil
	}
	return Outcome{}, err
}

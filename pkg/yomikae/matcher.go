package yomikae

// pairGroup accumulates one (originals, read-as marker, replacements) group
// while folding over the segments.
type pairGroup struct {
	originals    []Segment
	scopes       []*Segment // parallel to originals, nil when none was written
	readAs       *Segment
	replacements []Segment
	start        int
	end          int
}

func (g *pairGroup) empty() bool {
	return len(g.originals) == 0
}

// MatchPairs folds tokenizer segments into substitution pairs.
//
// The fold carries the last explicit scope as its accumulator: a pair whose
// original has no scope marker of its own inherits it. Scopes are never taken
// from a following pair.
func MatchPairs(text string, segments []Segment) ([]SubstitutionPair, error) {
	var (
		pairs        []SubstitutionPair
		current      *ScopeRef
		group        = &pairGroup{}
		pendingScope *Segment
		groupIndex   int
	)

	flush := func() error {
		if group.empty() {
			group = &pairGroup{}
			return nil
		}
		matched, err := matchGroup(text, group, groupIndex, &current)
		if err != nil {
			return err
		}
		pairs = append(pairs, matched...)
		groupIndex++
		group = &pairGroup{}
		return nil
	}

	for i := range segments {
		seg := segments[i]
		switch seg.Kind {
		case SegmentScopeMarker:
			if group.readAs != nil {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			pendingScope = &seg
		case SegmentOriginalQuote:
			if group.readAs != nil {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			if group.empty() {
				group.start = seg.Start
				if pendingScope != nil {
					group.start = pendingScope.Start
				}
			}
			group.originals = append(group.originals, seg)
			group.scopes = append(group.scopes, pendingScope)
			pendingScope = nil
		case SegmentReadAsMarker:
			group.readAs = &seg
		case SegmentReplacementQuote:
			group.replacements = append(group.replacements, seg)
			group.end = seg.End
		case SegmentCoordinator:
			if seg.Level == CoordinateGroup {
				if err := flush(); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if len(pairs) == 0 {
		return nil, newParseError(ReasonNoPairsFound, text, 0, len(text))
	}
	return pairs, nil
}

func matchGroup(text string, g *pairGroup, index int, current **ScopeRef) ([]SubstitutionPair, error) {
	if g.readAs == nil || len(g.replacements) == 0 {
		last := g.originals[len(g.originals)-1]
		return nil, newParseError(ReasonMissingReadAsMarker, text, g.start, last.End)
	}

	n, m := len(g.originals), len(g.replacements)
	replacementFor := func(i int) Segment { return g.replacements[i] }
	switch {
	case n == m:
		// Enumerated lists pair positionally. A scope written in front of any
		// but the first original makes the pairing ambiguous.
		if n > 1 {
			for _, scope := range g.scopes[1:] {
				if scope != nil {
					return nil, newParseError(ReasonUnbalancedList, text, g.start, g.end)
				}
			}
		}
	case m == 1 && !g.readAs.Respectively:
		replacementFor = func(int) Segment { return g.replacements[0] }
	default:
		return nil, newParseError(ReasonUnbalancedList, text, g.start, g.end)
	}

	pairs := make([]SubstitutionPair, 0, n)
	for i, orig := range g.originals {
		repl := replacementFor(i)
		pair := SubstitutionPair{
			Original:    orig.Quote.Span(text),
			Replacement: repl.Quote.Span(text),
			Ellipsis:    i > 0,
			Group:       index,
		}
		if scope := g.scopes[i]; scope != nil {
			ref := &ScopeRef{
				Text:   scope.Text,
				Origin: ScopeExplicit,
				Start:  scope.Start,
			}
			*current = ref
			pair.Scope = ref
		} else if *current != nil {
			pair.Scope = inherit(*current)
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

func inherit(from *ScopeRef) *ScopeRef {
	return &ScopeRef{
		Text:        from.Text,
		Origin:      ScopeInherited,
		Start:       from.Start,
		inheritFrom: from,
	}
}

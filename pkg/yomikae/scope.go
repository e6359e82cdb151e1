package yomikae

import (
	"context"
	"errors"
	"fmt"
)

// ReferenceValidator answers whether a provision exists in the statute
// lawID. It returns ErrUnknownLaw when the reference points into a statute
// it cannot check. Any other error aborts the parse.
type ReferenceValidator interface {
	Exists(ctx context.Context, lawID string, ref Reference) (bool, error)
}

// ValidatorFunc adapts a function to ReferenceValidator.
type ValidatorFunc func(ctx context.Context, lawID string, ref Reference) (bool, error)

// Exists calls f.
func (f ValidatorFunc) Exists(ctx context.Context, lawID string, ref Reference) (bool, error) {
	return f(ctx, lawID, ref)
}

// scopeResolver resolves the scopes of one clause in order. last is the most
// recently parsed reference and anchors the next 同条 / 同項.
type scopeResolver struct {
	refs      *referenceParser
	validator ReferenceValidator
	loc       Location
	text      string
	quotes    QuoteStream
	last      *Reference
}

// resolve fills in References and Status for every scope in pairs, in
// clause order. Inherited scopes copy the outcome of the scope they inherit
// from.
func (r *scopeResolver) resolve(ctx context.Context, pairs []SubstitutionPair) error {
	for i := range pairs {
		scope := pairs[i].Scope
		if scope == nil {
			continue
		}
		if from := scope.inheritFrom; from != nil {
			scope.References = from.References
			scope.Status = from.Status
			continue
		}
		if err := r.resolveExplicit(ctx, scope); err != nil {
			return err
		}
	}
	return nil
}

func (r *scopeResolver) anchor(scope *ScopeRef) *Reference {
	if r.last != nil {
		return r.last
	}
	if scope.Start >= 0 {
		if ref := r.refs.lastArticle(r.text, r.quotes, scope.Start, r.loc.Suppl); ref != nil {
			return ref
		}
	}
	own := LocationReference(r.loc)
	return &own
}

func (r *scopeResolver) resolveExplicit(ctx context.Context, scope *ScopeRef) error {
	refs, ok := r.refs.parse(scope.Text, refContext{own: r.loc, anchor: r.anchor(scope)})
	if !ok {
		scope.Status = ScopeUnparsed
		return nil
	}
	scope.References = refs
	last := refs[len(refs)-1]
	r.last = &last

	if r.validator == nil {
		scope.Status = ScopeUnchecked
		return nil
	}

	status := ScopeResolved
	for _, ref := range refs {
		exists, err := r.validator.Exists(ctx, r.loc.LawID, ref)
		if errors.Is(err, ErrUnknownLaw) {
			if status == ScopeResolved {
				status = ScopeUnverified
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to validate scope %q in %s: %w", scope.Text, r.loc, err)
		}
		if !exists {
			status = ScopeDangling
		}
	}
	scope.Status = status
	return nil
}

// scopeFlag maps a scope status to the flag it raises, if any.
func scopeFlag(status ScopeStatus) (Flag, bool) {
	switch status {
	case ScopeUnparsed:
		return FlagUnparsedScope, true
	case ScopeDangling:
		return FlagDanglingScope, true
	case ScopeUnverified:
		return FlagUnverifiedScope, true
	}
	return "", false
}

package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coolbeans/yomikae/pkg/yomikae"
)

// Validator answers scope existence queries from a Store.
type Validator struct {
	store Store
}

// NewValidator creates a Validator over store.
func NewValidator(store Store) *Validator {
	return &Validator{store: store}
}

// Exists reports whether ref exists in lawID. References naming another
// statute, and statutes missing from the store, yield yomikae.ErrUnknownLaw.
func (v *Validator) Exists(ctx context.Context, lawID string, ref yomikae.Reference) (bool, error) {
	if ref.LawName != "" {
		return false, yomikae.ErrUnknownLaw
	}
	known, err := v.store.HasLaw(ctx, lawID)
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", lawID, err)
	}
	if !known {
		return false, yomikae.ErrUnknownLaw
	}
	exists, err := v.store.HasProvision(ctx, lawID, ref.Key())
	if err != nil {
		return false, fmt.Errorf("failed to look up %s %s: %w", lawID, ref.Key(), err)
	}
	return exists, nil
}

// CachedValidator memoises another validator's answers for a TTL. Answers
// and ErrUnknownLaw are cached; other errors are not.
type CachedValidator struct {
	next  yomikae.ReferenceValidator
	cache *LookupCache
}

// NewCachedValidator wraps next with a cache of the given TTL.
func NewCachedValidator(next yomikae.ReferenceValidator, ttl time.Duration) *CachedValidator {
	return &CachedValidator{next: next, cache: NewLookupCache(ttl)}
}

// Exists implements yomikae.ReferenceValidator.
func (c *CachedValidator) Exists(ctx context.Context, lawID string, ref yomikae.Reference) (bool, error) {
	key := lookupKey(lawID, ref)
	if res, ok := c.cache.Get(key); ok {
		if res.unknownLaw {
			return false, yomikae.ErrUnknownLaw
		}
		return res.exists, nil
	}

	exists, err := c.next.Exists(ctx, lawID, ref)
	switch {
	case err == nil:
		c.cache.Set(key, LookupResult{exists: exists})
	case errors.Is(err, yomikae.ErrUnknownLaw):
		c.cache.Set(key, LookupResult{unknownLaw: true})
	}
	return exists, err
}

// Cache exposes the underlying cache for invalidation after re-indexing.
func (c *CachedValidator) Cache() *LookupCache {
	return c.cache
}

func lookupKey(lawID string, ref yomikae.Reference) string {
	return lawID + "|" + ref.LawName + "|" + ref.Key()
}

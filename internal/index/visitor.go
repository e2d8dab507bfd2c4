package index

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ViewWay/flow-sub000/internal/extension"
	"github.com/ViewWay/flow-sub000/internal/search"
)

// Searcher is the full-text hand-off for Contains predicates on declared
// full-text fields.
type Searcher interface {
	Search(ctx context.Context, opt search.Option) (*search.Result, error)
}

// containsSearchLimit caps the hit set requested from the full-text
// engine for one Contains predicate.
const containsSearchLimit = 10000

// visitor evaluates a condition tree against one bundle. Every leaf takes
// the bundle's read lock for exactly its own index access; combinators
// run lock-free on the leaf results. Only the full-text branch consults
// the context.
type visitor struct {
	bundle   *Bundle
	mapping  *FieldMapping
	searcher Searcher
	kindTag  string
	log      *zap.Logger
}

func (v *visitor) eval(ctx context.Context, c *extension.Condition) (KeySet, error) {
	if c == nil {
		c = extension.Empty()
	}
	switch c.Type {
	case extension.TypeEmpty:
		return v.readAll(), nil
	case extension.TypeAnd:
		left, err := v.eval(ctx, c.Left)
		if err != nil {
			return nil, err
		}
		if left.Len() == 0 {
			return left, nil
		}
		right, err := v.eval(ctx, c.Right)
		if err != nil {
			return nil, err
		}
		return left.Intersect(right), nil
	case extension.TypeOr:
		left, err := v.eval(ctx, c.Left)
		if err != nil {
			return nil, err
		}
		right, err := v.eval(ctx, c.Right)
		if err != nil {
			return nil, err
		}
		return left.Union(right), nil
	case extension.TypeNot:
		inner, err := v.eval(ctx, c.Inner)
		if err != nil {
			return nil, err
		}
		return v.readAll().Difference(inner), nil
	case extension.TypeEqual:
		return v.value(c.IndexName, func(idx anyIndex) (KeySet, error) {
			return idx.equal(c.Value)
		})
	case extension.TypeNotEqual:
		return v.value(c.IndexName, func(idx anyIndex) (KeySet, error) {
			return idx.notEqual(c.Value)
		})
	case extension.TypeIn:
		// The builder canonicalizes a one-element In to Equal; a
		// deserialized tree may still carry either shape.
		if len(c.Values) == 1 {
			return v.value(c.IndexName, func(idx anyIndex) (KeySet, error) {
				return idx.equal(c.Values[0])
			})
		}
		return v.value(c.IndexName, func(idx anyIndex) (KeySet, error) {
			return idx.in(c.Values)
		})
	case extension.TypeNotIn:
		return v.value(c.IndexName, func(idx anyIndex) (KeySet, error) {
			return idx.notIn(c.Values)
		})
	case extension.TypeLessThan:
		return v.value(c.IndexName, func(idx anyIndex) (KeySet, error) {
			return idx.lessThan(c.Bound, c.Inclusive)
		})
	case extension.TypeGreaterThan:
		return v.value(c.IndexName, func(idx anyIndex) (KeySet, error) {
			return idx.greaterThan(c.Bound, c.Inclusive)
		})
	case extension.TypeBetween:
		return v.value(c.IndexName, func(idx anyIndex) (KeySet, error) {
			return idx.between(c.FromKey, c.FromInclusive, c.ToKey, c.ToInclusive)
		})
	case extension.TypeNotBetween:
		return v.value(c.IndexName, func(idx anyIndex) (KeySet, error) {
			return idx.notBetween(c.FromKey, c.FromInclusive, c.ToKey, c.ToInclusive)
		})
	case extension.TypeIsNull:
		return v.value(c.IndexName, func(idx anyIndex) (KeySet, error) {
			return idx.isNull(), nil
		})
	case extension.TypeIsNotNull:
		return v.value(c.IndexName, func(idx anyIndex) (KeySet, error) {
			return idx.domain(), nil
		})
	case extension.TypeContains:
		return v.contains(ctx, c.IndexName, c.Keyword)
	case extension.TypeLabelExists:
		return v.label(func(idx *labelIndex) KeySet {
			return idx.exists(c.LabelKey)
		}), nil
	case extension.TypeLabelNotExists:
		return v.label(func(idx *labelIndex) KeySet {
			return idx.allPrimaryKeys().Difference(idx.exists(c.LabelKey))
		}), nil
	case extension.TypeLabelEquals:
		return v.label(func(idx *labelIndex) KeySet {
			return idx.equal(c.LabelKey, c.LabelValue)
		}), nil
	case extension.TypeLabelNotEquals:
		return v.label(func(idx *labelIndex) KeySet {
			return idx.notEqual(c.LabelKey, c.LabelValue)
		}), nil
	case extension.TypeLabelIn:
		return v.label(func(idx *labelIndex) KeySet {
			return idx.in(c.LabelKey, c.LabelValues)
		}), nil
	case extension.TypeLabelNotIn:
		return v.label(func(idx *labelIndex) KeySet {
			return idx.notIn(c.LabelKey, c.LabelValues)
		}), nil
	default:
		return nil, fmt.Errorf("%w: unsupported condition type %q", ErrInvalidIndex, c.Type)
	}
}

func (v *visitor) readAll() KeySet {
	v.bundle.mu.RLock()
	defer v.bundle.mu.RUnlock()
	return v.bundle.allPrimaryKeys()
}

func (v *visitor) value(name string, fn func(anyIndex) (KeySet, error)) (KeySet, error) {
	v.bundle.mu.RLock()
	defer v.bundle.mu.RUnlock()
	idx, err := v.bundle.lookup(name)
	if err != nil {
		return nil, err
	}
	return fn(idx)
}

func (v *visitor) label(fn func(*labelIndex) KeySet) KeySet {
	v.bundle.mu.RLock()
	defer v.bundle.mu.RUnlock()
	return fn(v.bundle.labels)
}

// contains resolves a Contains predicate through the full-text engine
// when the field is declared full-text and an engine plus kind tag are
// wired; otherwise, and on any search failure, it degrades to the
// per-index substring scan.
func (v *visitor) contains(ctx context.Context, name, keyword string) (KeySet, error) {
	if v.searcher != nil && v.mapping.IsFullText(name, v.kindTag) {
		hits, err := v.searchHits(ctx, keyword)
		if err == nil {
			return hits, nil
		}
		if !errors.Is(err, search.ErrSearchFailed) {
			return nil, err
		}
		v.warn("full-text search failed, falling back to substring scan",
			zap.String("index", name), zap.String("kind_tag", v.kindTag), zap.Error(err))
	}
	return v.value(name, func(idx anyIndex) (KeySet, error) {
		return idx.contains(keyword)
	})
}

func (v *visitor) searchHits(ctx context.Context, keyword string) (KeySet, error) {
	result, err := v.searcher.Search(ctx, search.Option{
		Keyword:      keyword,
		Limit:        containsSearchLimit,
		IncludeTypes: []string{v.kindTag},
	})
	if err != nil {
		return nil, err
	}
	out := make(KeySet, len(result.Hits))
	for _, hit := range result.Hits {
		out.Add(hit.PrimaryKey)
	}
	return out, nil
}

func (v *visitor) warn(msg string, fields ...zap.Field) {
	if v.log != nil {
		v.log.Warn(msg, fields...)
	}
}

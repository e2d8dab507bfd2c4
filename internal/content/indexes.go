package content

import (
	"github.com/ViewWay/flow-sub000/internal/extension"
	"github.com/ViewWay/flow-sub000/internal/index"
)

// Kind tags of the content kinds inside the full-text index.
var (
	PostKindTag       = index.KindTag((&Post{}).GroupVersionKind())
	SinglePageKindTag = index.KindTag((&SinglePage{}).GroupVersionKind())
)

// PostIndexSpecs declares the value indices maintained for posts.
func PostIndexSpecs() []index.Spec {
	return []index.Spec{
		{
			Name:    "spec.slug",
			KeyType: index.KeyTypeString,
			Unique:  true,
			Extract: func(ext extension.Extension) []any {
				return []any{ext.(*Post).Spec.Slug}
			},
		},
		{
			Name:    "spec.title",
			KeyType: index.KeyTypeString,
			Extract: func(ext extension.Extension) []any {
				return []any{ext.(*Post).Spec.Title}
			},
		},
		{
			Name:    "spec.owner",
			KeyType: index.KeyTypeString,
			Extract: func(ext extension.Extension) []any {
				if owner := ext.(*Post).Spec.Owner; owner != "" {
					return []any{owner}
				}
				return nil
			},
		},
		{
			Name:    "spec.priority",
			KeyType: index.KeyTypeInt64,
			Extract: func(ext extension.Extension) []any {
				if priority := ext.(*Post).Spec.Priority; priority != nil {
					return []any{*priority}
				}
				return nil
			},
		},
		{
			Name:    "spec.tags",
			KeyType: index.KeyTypeString,
			Multi:   true,
			Extract: func(ext extension.Extension) []any {
				return toAny(ext.(*Post).Spec.Tags)
			},
		},
		{
			Name:    "spec.categories",
			KeyType: index.KeyTypeString,
			Multi:   true,
			Extract: func(ext extension.Extension) []any {
				return toAny(ext.(*Post).Spec.Categories)
			},
		},
	}
}

// SinglePageIndexSpecs declares the value indices maintained for single
// pages.
func SinglePageIndexSpecs() []index.Spec {
	return []index.Spec{
		{
			Name:    "spec.slug",
			KeyType: index.KeyTypeString,
			Unique:  true,
			Extract: func(ext extension.Extension) []any {
				return []any{ext.(*SinglePage).Spec.Slug}
			},
		},
		{
			Name:    "spec.title",
			KeyType: index.KeyTypeString,
			Extract: func(ext extension.Extension) []any {
				return []any{ext.(*SinglePage).Spec.Title}
			},
		},
		{
			Name:    "spec.owner",
			KeyType: index.KeyTypeString,
			Extract: func(ext extension.Extension) []any {
				if owner := ext.(*SinglePage).Spec.Owner; owner != "" {
					return []any{owner}
				}
				return nil
			},
		},
		{
			Name:    "spec.priority",
			KeyType: index.KeyTypeInt64,
			Extract: func(ext extension.Extension) []any {
				if priority := ext.(*SinglePage).Spec.Priority; priority != nil {
					return []any{*priority}
				}
				return nil
			},
		},
	}
}

// DefaultFieldMapping declares the index names resolved through the
// full-text engine for the content kinds.
func DefaultFieldMapping() *index.FieldMapping {
	return index.NewFieldMapping().
		Declare("spec.title", PostKindTag, SinglePageKindTag)
}

// RegisterKinds installs the content bundles on an engine.
func RegisterKinds(engine *index.Engine) error {
	if err := engine.Register(index.HandleOf[*Post](), PostKindTag, PostIndexSpecs()); err != nil {
		return err
	}
	return engine.Register(index.HandleOf[*SinglePage](), SinglePageKindTag, SinglePageIndexSpecs())
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

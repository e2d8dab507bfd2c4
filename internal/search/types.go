// Package search defines the full-text document schema and the engine
// contract for keyword search over indexed resources.
package search

import (
	"context"
	"time"
)

// Document is the projection of a domain resource into the full-text
// schema. ID is "{kind_tag}-{primary_key}" and is the unique key within
// the index; re-indexing an ID replaces the stored document.
type Document struct {
	ID          string            `json:"id"`
	PrimaryKey  string            `json:"primary_key"`
	KindTag     string            `json:"kind_tag"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Content     string            `json:"content"`
	Categories  []string          `json:"categories,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Owner       string            `json:"owner"`
	Published   bool              `json:"published"`
	Recycled    bool              `json:"recycled"`
	Exposed     bool              `json:"exposed"`
	Permalink   string            `json:"permalink"`
	CreatedAt   *time.Time        `json:"created_at,omitempty"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// DocumentID builds the index key for a resource of the given kind tag.
func DocumentID(kindTag, primaryKey string) string {
	return kindTag + "-" + primaryKey
}

// Defaults applied by Option.WithDefaults.
const (
	DefaultLimit            = 10
	DefaultHighlightPreTag  = "<B>"
	DefaultHighlightPostTag = "</B>"
)

// Option is one search request. Nil filter pointers leave the
// corresponding flag unconstrained; empty include slices match every
// value of that facet.
type Option struct {
	Keyword          string `json:"keyword"`
	Limit            int    `json:"limit,omitempty"`
	HighlightPreTag  string `json:"highlight_pre_tag,omitempty"`
	HighlightPostTag string `json:"highlight_post_tag,omitempty"`

	FilterPublished *bool `json:"filter_published,omitempty"`
	FilterExposed   *bool `json:"filter_exposed,omitempty"`
	FilterRecycled  *bool `json:"filter_recycled,omitempty"`

	IncludeTypes         []string `json:"include_types,omitempty"`
	IncludeOwnerNames    []string `json:"include_owner_names,omitempty"`
	IncludeTagNames      []string `json:"include_tag_names,omitempty"`
	IncludeCategoryNames []string `json:"include_category_names,omitempty"`
}

// WithDefaults fills the unset request knobs.
func (o Option) WithDefaults() Option {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.HighlightPreTag == "" {
		o.HighlightPreTag = DefaultHighlightPreTag
	}
	if o.HighlightPostTag == "" {
		o.HighlightPostTag = DefaultHighlightPostTag
	}
	return o
}

// Result is one search response. Hits carry highlighted title,
// description, and content when the keyword matched those fields.
type Result struct {
	Hits                 []Document `json:"hits"`
	Keyword              string     `json:"keyword"`
	Total                int        `json:"total"`
	Limit                int        `json:"limit"`
	ProcessingTimeMillis int64      `json:"processing_time_millis"`
	FromCache            bool       `json:"from_cache"`
}

// Engine is the full-text index contract. Implementations guarantee
// read-your-writes: a Search issued after AddOrUpdate or Delete returns
// observes the change.
type Engine interface {
	AddOrUpdate(ctx context.Context, docs []Document) error
	Delete(ctx context.Context, ids []string) error
	DeleteAll(ctx context.Context) error
	Search(ctx context.Context, opt Option) (*Result, error)
	Close() error
}

// Package content defines the built-in resource kinds served by the
// engine: posts and single pages, their index declarations, and their
// projection into the full-text schema.
package content

import (
	"time"

	"github.com/ViewWay/flow-sub000/internal/extension"
)

// Group is the API group of the content kinds.
const Group = "content.flow.dev"

// Version is the served API version.
const Version = "v1alpha1"

// Visibility values of a piece of content.
const (
	VisiblePublic  = "PUBLIC"
	VisiblePrivate = "PRIVATE"
)

// Excerpt is a hand-written or generated summary of a piece of content.
type Excerpt struct {
	AutoGenerate bool   `json:"auto_generate"`
	Raw          string `json:"raw,omitempty"`
}

// PostSpec is the desired state of a post.
type PostSpec struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Owner       string     `json:"owner,omitempty"`
	Cover       string     `json:"cover,omitempty"`
	Deleted     bool       `json:"deleted,omitempty"`
	Publish     bool       `json:"publish,omitempty"`
	PublishTime *time.Time `json:"publish_time,omitempty"`
	Pinned      bool       `json:"pinned,omitempty"`
	Priority    *int64     `json:"priority,omitempty"`
	Visible     string     `json:"visible,omitempty"`
	Excerpt     Excerpt    `json:"excerpt,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

// PostStatus is the observed state of a post.
type PostStatus struct {
	Phase          string     `json:"phase,omitempty"`
	Permalink      string     `json:"permalink,omitempty"`
	Excerpt        string     `json:"excerpt,omitempty"`
	InProgress     bool       `json:"in_progress,omitempty"`
	CommentsCount  int        `json:"comments_count,omitempty"`
	Contributors   []string   `json:"contributors,omitempty"`
	LastModifyTime *time.Time `json:"last_modify_time,omitempty"`
}

// Post is a blog post resource.
type Post struct {
	ObjectMeta extension.Metadata `json:"metadata"`
	Spec       PostSpec           `json:"spec"`
	Status     PostStatus         `json:"status,omitempty"`
}

func (p *Post) Metadata() *extension.Metadata { return &p.ObjectMeta }

func (p *Post) GroupVersionKind() extension.GroupVersionKind {
	return extension.GroupVersionKind{Group: Group, Version: Version, Kind: "Post"}
}

// SinglePageSpec is the desired state of a standalone page.
type SinglePageSpec struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Owner       string     `json:"owner,omitempty"`
	Deleted     bool       `json:"deleted,omitempty"`
	Publish     bool       `json:"publish,omitempty"`
	PublishTime *time.Time `json:"publish_time,omitempty"`
	Priority    *int64     `json:"priority,omitempty"`
	Visible     string     `json:"visible,omitempty"`
	Excerpt     Excerpt    `json:"excerpt,omitempty"`
}

// SinglePage is a standalone page resource outside the post flow.
type SinglePage struct {
	ObjectMeta extension.Metadata `json:"metadata"`
	Spec       SinglePageSpec     `json:"spec"`
	Status     PostStatus         `json:"status,omitempty"`
}

func (p *SinglePage) Metadata() *extension.Metadata { return &p.ObjectMeta }

func (p *SinglePage) GroupVersionKind() extension.GroupVersionKind {
	return extension.GroupVersionKind{Group: Group, Version: Version, Kind: "SinglePage"}
}

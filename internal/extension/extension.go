// Package extension defines the uniform resource model shared by every
// kind the engine indexes: metadata, group/version/kind identity, list
// options, and the condition algebra used to query resources.
package extension

import (
	"fmt"
	"time"
)

// GroupVersionKind identifies a resource type. Group may be empty for the
// core group; version and kind are always non-empty.
type GroupVersionKind struct {
	Group   string `json:"group"`
	Version string `json:"version"`
	Kind    string `json:"kind"`
}

// String renders the GVK as "group/version/kind".
func (g GroupVersionKind) String() string {
	return fmt.Sprintf("%s/%s/%s", g.Group, g.Version, g.Kind)
}

// Validate checks that version and kind are set.
func (g GroupVersionKind) Validate() error {
	if g.Version == "" {
		return fmt.Errorf("gvk version is required")
	}
	if g.Kind == "" {
		return fmt.Errorf("gvk kind is required")
	}
	return nil
}

// Metadata carries the common metadata of every resource. Name is the
// primary key, unique within a kind.
type Metadata struct {
	Name              string            `json:"name"`
	Version           *int64            `json:"version,omitempty"`
	CreationTimestamp *time.Time        `json:"creation_timestamp,omitempty"`
	Labels            map[string]string `json:"labels,omitempty"`
	Annotations       map[string]string `json:"annotations,omitempty"`
}

// NewMetadata creates metadata with the given name and the creation
// timestamp set to now.
func NewMetadata(name string) Metadata {
	now := time.Now().UTC()
	var v int64
	return Metadata{
		Name:              name,
		Version:           &v,
		CreationTimestamp: &now,
	}
}

// Extension is implemented by every resource the engine can index.
type Extension interface {
	Metadata() *Metadata
	GroupVersionKind() GroupVersionKind
}

// ListOptions parameterizes a list query. When Condition is set it takes
// precedence over LabelSelector and FieldSelector, which exist for callers
// speaking the string selector dialect.
type ListOptions struct {
	LabelSelector string     `json:"label_selector,omitempty"`
	FieldSelector string     `json:"field_selector,omitempty"`
	Page          int        `json:"page,omitempty"`
	Size          int        `json:"size,omitempty"`
	Sort          []string   `json:"sort,omitempty"`
	Condition     *Condition `json:"condition,omitempty"`
}

// ToCondition resolves the options into a single condition tree. An
// explicit Condition wins; otherwise a non-empty LabelSelector is parsed;
// otherwise the match-all Empty condition is returned.
func (o ListOptions) ToCondition() (*Condition, error) {
	if o.Condition != nil {
		return o.Condition, nil
	}
	if o.LabelSelector != "" {
		cond, err := ParseLabelSelector(o.LabelSelector)
		if err != nil {
			return nil, fmt.Errorf("parse label selector: %w", err)
		}
		return cond, nil
	}
	return Empty(), nil
}

// ListResult is a page of resources plus the unfiltered total.
type ListResult[T any] struct {
	Items []T   `json:"items"`
	Total int   `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}

// NewListResult assembles a list result page.
func NewListResult[T any](items []T, total, page, size int) ListResult[T] {
	return ListResult[T]{Items: items, Total: total, Page: page, Size: size}
}

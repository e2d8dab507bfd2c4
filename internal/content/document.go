package content

import (
	"github.com/ViewWay/flow-sub000/internal/extension"
	"github.com/ViewWay/flow-sub000/internal/search"
)

// BuildPostDocument projects a post and its rendered body into the
// full-text schema.
func BuildPostDocument(post *Post, body string) search.Document {
	return search.Document{
		ID:          search.DocumentID(PostKindTag, post.ObjectMeta.Name),
		PrimaryKey:  post.ObjectMeta.Name,
		KindTag:     PostKindTag,
		Title:       post.Spec.Title,
		Description: excerptOf(post.Spec.Excerpt, post.Status.Excerpt),
		Content:     body,
		Categories:  post.Spec.Categories,
		Tags:        post.Spec.Tags,
		Owner:       post.Spec.Owner,
		Published:   post.Spec.Publish,
		Recycled:    post.Spec.Deleted,
		Exposed:     post.Spec.Visible == VisiblePublic,
		Permalink:   post.Status.Permalink,
		CreatedAt:   post.ObjectMeta.CreationTimestamp,
		UpdatedAt:   post.Status.LastModifyTime,
		Annotations: post.ObjectMeta.Annotations,
	}
}

// BuildSinglePageDocument projects a single page and its rendered body
// into the full-text schema.
func BuildSinglePageDocument(page *SinglePage, body string) search.Document {
	return search.Document{
		ID:          search.DocumentID(SinglePageKindTag, page.ObjectMeta.Name),
		PrimaryKey:  page.ObjectMeta.Name,
		KindTag:     SinglePageKindTag,
		Title:       page.Spec.Title,
		Description: excerptOf(page.Spec.Excerpt, page.Status.Excerpt),
		Content:     body,
		Owner:       page.Spec.Owner,
		Published:   page.Spec.Publish,
		Recycled:    page.Spec.Deleted,
		Exposed:     page.Spec.Visible == VisiblePublic,
		Permalink:   page.Status.Permalink,
		CreatedAt:   page.ObjectMeta.CreationTimestamp,
		UpdatedAt:   page.Status.LastModifyTime,
		Annotations: page.ObjectMeta.Annotations,
	}
}

// BuildDocument projects any known content resource. Unknown kinds report
// false.
func BuildDocument(ext extension.Extension, body string) (search.Document, bool) {
	switch res := ext.(type) {
	case *Post:
		return BuildPostDocument(res, body), true
	case *SinglePage:
		return BuildSinglePageDocument(res, body), true
	default:
		return search.Document{}, false
	}
}

// excerptOf prefers the observed excerpt over the authored one.
func excerptOf(spec Excerpt, status string) string {
	if status != "" {
		return status
	}
	return spec.Raw
}

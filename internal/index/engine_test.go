package index

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ViewWay/flow-sub000/internal/extension"
)

func TestKindTag(t *testing.T) {
	tests := []struct {
		gvk  extension.GroupVersionKind
		want string
	}{
		{extension.GroupVersionKind{Group: "content.flow.dev", Version: "v1alpha1", Kind: "Post"}, "post.content.flow.dev"},
		{extension.GroupVersionKind{Version: "v1", Kind: "Snapshot"}, "snapshot"},
		{extension.GroupVersionKind{Group: "g", Version: "v1", Kind: "MixedCase"}, "mixedcase.g"},
	}
	for _, tc := range tests {
		if got := KindTag(tc.gvk); got != tc.want {
			t.Errorf("KindTag(%v) = %q, want %q", tc.gvk, got, tc.want)
		}
	}
}

func newArticleEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	e := NewEngine(opts...)
	if err := e.Register(HandleOf[*article](), articleKindTag, articleSpecs()); err != nil {
		t.Fatalf("register: %v", err)
	}
	return e
}

func TestEngine_RegisterIsIdempotent(t *testing.T) {
	e := newArticleEngine(t)
	if err := e.Insert(newArticle("a", "hello", int64Ptr(1), nil)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// A second registration keeps the populated bundle.
	if err := e.Register(HandleOf[*article](), articleKindTag, articleSpecs()); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	n, err := e.Count(context.Background(), HandleOf[*article](), extension.ListOptions{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count after re-register: %d", n)
	}
}

func TestEngine_UnregisteredType(t *testing.T) {
	e := NewEngine()
	err := e.Insert(newArticle("a", "hello", nil, nil))
	if !errors.Is(err, ErrTypeNotRegistered) {
		t.Fatalf("insert: got %v, want ErrTypeNotRegistered", err)
	}
	if _, err := e.Query(context.Background(), HandleOf[*article](), nil); !errors.Is(err, ErrTypeNotRegistered) {
		t.Errorf("query: got %v, want ErrTypeNotRegistered", err)
	}
	if _, err := e.Count(context.Background(), HandleOf[*article](), extension.ListOptions{}); !errors.Is(err, ErrTypeNotRegistered) {
		t.Errorf("count: got %v, want ErrTypeNotRegistered", err)
	}
}

func TestEngine_CRUDAndQuery(t *testing.T) {
	e := newArticleEngine(t)
	ctx := context.Background()
	handle := HandleOf[*article]()

	for _, a := range []*article{
		newArticle("a", "hello", int64Ptr(1), map[string]string{"env": "prod"}),
		newArticle("b", "world", int64Ptr(5), map[string]string{"env": "dev"}),
	} {
		if err := e.Insert(a); err != nil {
			t.Fatalf("insert %s: %v", a.Meta.Name, err)
		}
	}

	got, err := e.Query(ctx, handle, extension.Equal("spec.slug", "hello"))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	assertSet(t, got, "a")

	if err := e.Update(newArticle("a", "renamed", int64Ptr(2), nil)); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = e.Query(ctx, handle, extension.Equal("spec.slug", "renamed"))
	if err != nil {
		t.Fatalf("query after update: %v", err)
	}
	assertSet(t, got, "a")

	if err := e.Delete(newArticle("b", "world", nil, nil)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := e.DeleteByName(handle, "a"); err != nil {
		t.Fatalf("delete by name: %v", err)
	}
	n, err := e.Count(ctx, handle, extension.ListOptions{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("count after deletes: %d", n)
	}

	// A resource without metadata is silently ignored on delete.
	if err := e.Delete(metalessArticle{}); err != nil {
		t.Errorf("metadata-less delete: %v", err)
	}
}

// metalessArticle exercises the nil-metadata delete path.
type metalessArticle struct{}

func (metalessArticle) Metadata() *extension.Metadata { return nil }
func (metalessArticle) GroupVersionKind() extension.GroupVersionKind {
	return extension.GroupVersionKind{Version: "v1", Kind: "Metaless"}
}

func TestEngine_Retrieve(t *testing.T) {
	e := newArticleEngine(t)
	ctx := context.Background()
	handle := HandleOf[*article]()

	for _, a := range []*article{
		newArticle("a", "hello", int64Ptr(1), map[string]string{"env": "prod"}),
		newArticle("b", "world", int64Ptr(5), map[string]string{"env": "dev"}),
		newArticle("c", "foo", int64Ptr(1), nil),
	} {
		if err := e.Insert(a); err != nil {
			t.Fatalf("insert %s: %v", a.Meta.Name, err)
		}
	}

	got, err := e.Retrieve(ctx, handle, extension.ListOptions{})
	if err != nil {
		t.Fatalf("retrieve all: %v", err)
	}
	assertSet(t, got, "a", "b", "c")

	got, err = e.Retrieve(ctx, handle, extension.ListOptions{LabelSelector: "env=prod"})
	if err != nil {
		t.Fatalf("retrieve by selector: %v", err)
	}
	assertSet(t, got, "a")

	// An explicit condition wins over the selector.
	got, err = e.Retrieve(ctx, handle, extension.ListOptions{
		LabelSelector: "env=prod",
		Condition:     extension.Equal("spec.slug", "foo"),
	})
	if err != nil {
		t.Fatalf("retrieve by condition: %v", err)
	}
	assertSet(t, got, "c")

	if _, err := e.Retrieve(ctx, handle, extension.ListOptions{LabelSelector: "=broken"}); err == nil {
		t.Error("invalid selector accepted")
	}
}

func TestEngine_CountHonorsListOptions(t *testing.T) {
	e := newArticleEngine(t)
	ctx := context.Background()
	handle := HandleOf[*article]()

	for _, a := range []*article{
		newArticle("a", "hello", int64Ptr(1), map[string]string{"env": "prod"}),
		newArticle("b", "world", int64Ptr(5), map[string]string{"env": "dev"}),
		newArticle("c", "foo", int64Ptr(1), nil),
	} {
		if err := e.Insert(a); err != nil {
			t.Fatalf("insert %s: %v", a.Meta.Name, err)
		}
	}

	tests := []struct {
		name string
		opts extension.ListOptions
		want int
	}{
		{"empty options", extension.ListOptions{}, 3},
		{"condition", extension.ListOptions{Condition: extension.Equal("spec.priority", int64(1))}, 2},
		{"label selector", extension.ListOptions{LabelSelector: "env=prod"}, 1},
		{"no match", extension.ListOptions{Condition: extension.Equal("spec.slug", "missing")}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := e.Count(ctx, handle, tc.opts)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != tc.want {
				t.Errorf("count = %d, want %d", n, tc.want)
			}
		})
	}

	if _, err := e.Count(ctx, handle, extension.ListOptions{Condition: extension.Equal("spec.missing", "x")}); err == nil {
		t.Error("unknown index accepted")
	}
}

func TestEngine_Deregister(t *testing.T) {
	e := newArticleEngine(t)
	handle := HandleOf[*article]()

	e.Deregister(handle)
	if _, err := e.Count(context.Background(), handle, extension.ListOptions{}); !errors.Is(err, ErrTypeNotRegistered) {
		t.Errorf("got %v, want ErrTypeNotRegistered", err)
	}
}

// Update swaps every index entry of a resource inside one critical
// section, so a reader never observes the pk half-moved: here spec.slug
// always resolves to exactly one of the two values and spec.priority
// never loses the pk.
func TestEngine_ConcurrentReadersSeeConsistentState(t *testing.T) {
	e := newArticleEngine(t)
	ctx := context.Background()
	handle := HandleOf[*article]()
	if err := e.Insert(newArticle("a", "even", int64Ptr(0), nil)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const writes = 500
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(stop)
		for i := 1; i <= writes; i++ {
			slug := "even"
			if i%2 == 1 {
				slug = "odd"
			}
			if err := e.Update(newArticle("a", slug, int64Ptr(int64(i)), nil)); err != nil {
				t.Errorf("update %d: %v", i, err)
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			either := extension.Equal("spec.slug", "even").Or(extension.Equal("spec.slug", "odd"))
			for {
				select {
				case <-stop:
					return
				default:
				}
				got, err := e.Query(ctx, handle, either)
				if err != nil {
					t.Errorf("slug query: %v", err)
					return
				}
				if !got.Contains("a") {
					t.Error("pk invisible through spec.slug mid-update")
					return
				}
				got, err = e.Query(ctx, handle, extension.IsNotNull("spec.priority"))
				if err != nil {
					t.Errorf("priority query: %v", err)
					return
				}
				if !got.Contains("a") {
					t.Error("pk invisible through spec.priority mid-update")
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := e.Query(ctx, handle, extension.Equal("spec.priority", int64(writes)))
	if err != nil {
		t.Fatalf("final query: %v", err)
	}
	assertSet(t, got, "a")
}

func TestEngine_QueryUsesConfiguredSearcher(t *testing.T) {
	stub := &stubSearcher{hits: []string{"a"}}
	e := newArticleEngine(t, WithSearcher(stub), WithFieldMapping(fullTextMapping()))
	if err := e.Insert(newArticle("a", "hello", nil, nil)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := e.Query(context.Background(), HandleOf[*article](), extension.Contains("spec.title", "rust"))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	assertSet(t, got, "a")
	if stub.calls != 1 {
		t.Errorf("searcher calls: %d", stub.calls)
	}
	if len(stub.got.IncludeTypes) != 1 || stub.got.IncludeTypes[0] != articleKindTag {
		t.Errorf("include types: %v", stub.got.IncludeTypes)
	}
}

func TestHandleForMatchesHandleOf(t *testing.T) {
	if HandleFor(&article{}) != HandleOf[*article]() {
		t.Error("HandleFor and HandleOf disagree for the same type")
	}
	if HandleFor(&article{}) == HandleFor(metalessArticle{}) {
		t.Error("distinct types share a handle")
	}
	if got := HandleOf[*article]().String(); got == "" || got == "<nil>" {
		t.Errorf("handle string: %q", got)
	}
	var zero TypeHandle
	if zero.String() != "<nil>" {
		t.Errorf("zero handle string: %q", zero.String())
	}
}

func TestFieldMapping(t *testing.T) {
	m := NewFieldMapping().
		Declare("spec.title", "post", "page").
		Declare("spec.body", "post")

	tests := []struct {
		index, kind string
		want        bool
	}{
		{"spec.title", "post", true},
		{"spec.title", "page", true},
		{"spec.title", "comment", false},
		{"spec.body", "post", true},
		{"spec.body", "page", false},
		{"spec.other", "post", false},
		{"spec.title", "", false},
	}
	for _, tc := range tests {
		if got := m.IsFullText(tc.index, tc.kind); got != tc.want {
			t.Errorf("IsFullText(%q, %q) = %v, want %v", tc.index, tc.kind, got, tc.want)
		}
	}

	var nilMapping *FieldMapping
	if nilMapping.IsFullText("spec.title", "post") {
		t.Error("nil mapping reported a full-text field")
	}
}

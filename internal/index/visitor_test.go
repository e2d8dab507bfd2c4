package index

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ViewWay/flow-sub000/internal/extension"
	"github.com/ViewWay/flow-sub000/internal/search"
)

// seededVisitor builds a bundle holding the standing fixture set:
//
//	a  slug=hello  priority=1  labels{env:prod}  tags[go,db]
//	b  slug=world  priority=5  labels{env:dev}   tags[go]
//	c  slug=foo    priority=1                    tags[]
//	d  slug=bar    priority=nil                  tags[db]
func seededVisitor(t *testing.T) *visitor {
	t.Helper()
	b := newArticleBundle(t)
	fixtures := []*article{
		newArticle("a", "hello", int64Ptr(1), map[string]string{"env": "prod"}, "go", "db"),
		newArticle("b", "world", int64Ptr(5), map[string]string{"env": "dev"}, "go"),
		newArticle("c", "foo", int64Ptr(1), nil),
		newArticle("d", "bar", nil, nil, "db"),
	}
	for _, a := range fixtures {
		if err := b.Insert(a); err != nil {
			t.Fatalf("insert %s: %v", a.Meta.Name, err)
		}
	}
	return &visitor{bundle: b, kindTag: articleKindTag}
}

func TestVisitor_ValuePredicates(t *testing.T) {
	v := seededVisitor(t)
	ctx := context.Background()

	tests := []struct {
		name string
		cond *extension.Condition
		want []string
	}{
		{"nil matches all", nil, []string{"a", "b", "c", "d"}},
		{"empty matches all", extension.Empty(), []string{"a", "b", "c", "d"}},
		{"equal", extension.Equal("spec.priority", int64(1)), []string{"a", "c"}},
		{"equal no match", extension.Equal("spec.slug", "absent"), nil},
		{"not equal includes nulls", extension.NotEqual("spec.priority", int64(1)), []string{"b", "d"}},
		{"in", extension.In("spec.slug", "hello", "world"), []string{"a", "b"}},
		{"not in includes nulls", extension.NotIn("spec.priority", int64(1), int64(5)), []string{"d"}},
		{"less than exclusive", extension.LessThan("spec.priority", int64(5), false), []string{"a", "c"}},
		{"less than inclusive", extension.LessThan("spec.priority", int64(5), true), []string{"a", "b", "c"}},
		{"greater than exclusive", extension.GreaterThan("spec.priority", int64(1), false), []string{"b"}},
		{"between", extension.Between("spec.priority", int64(1), true, int64(5), false), []string{"a", "c"}},
		{"not between", extension.NotBetween("spec.priority", int64(1), true, int64(4), true), []string{"b", "d"}},
		{"is null", extension.IsNull("spec.priority"), []string{"d"}},
		{"is not null", extension.IsNotNull("spec.priority"), []string{"a", "b", "c"}},
		{"multi equal", extension.Equal("spec.tags", "db"), []string{"a", "d"}},
		{"multi is null", extension.IsNull("spec.tags"), []string{"c"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := v.eval(ctx, tc.cond)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			assertSet(t, got, tc.want...)
		})
	}
}

func TestVisitor_LabelPredicates(t *testing.T) {
	v := seededVisitor(t)
	ctx := context.Background()

	tests := []struct {
		name string
		cond *extension.Condition
		want []string
	}{
		{"exists", extension.LabelExists("env"), []string{"a", "b"}},
		{"not exists", extension.LabelNotExists("env"), []string{"c", "d"}},
		{"equals", extension.LabelEquals("env", "prod"), []string{"a"}},
		{"not equals skips unlabeled", extension.LabelNotEquals("env", "prod"), []string{"b"}},
		{"in", extension.LabelIn("env", "prod", "dev"), []string{"a", "b"}},
		{"not in skips unlabeled", extension.LabelNotIn("env", "prod"), []string{"b"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := v.eval(ctx, tc.cond)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			assertSet(t, got, tc.want...)
		})
	}
}

func TestVisitor_Combinators(t *testing.T) {
	v := seededVisitor(t)
	ctx := context.Background()

	priorityOne := extension.Equal("spec.priority", int64(1))
	prod := extension.LabelEquals("env", "prod")

	tests := []struct {
		name string
		cond *extension.Condition
		want []string
	}{
		{"and", priorityOne.And(prod), []string{"a"}},
		{"or", priorityOne.Or(extension.Equal("spec.slug", "world")), []string{"a", "b", "c"}},
		{"not", priorityOne.Not(), []string{"b", "d"}},
		{"double negation", priorityOne.Not().Not(), []string{"a", "c"}},
		{"and empty identity", priorityOne.And(extension.Empty()), []string{"a", "c"}},
		{"or empty absorbs", priorityOne.Or(extension.Empty()), []string{"a", "b", "c", "d"}},
		{"and commutes", prod.And(priorityOne), []string{"a"}},
		{
			"de morgan",
			extension.Not(extension.Or(priorityOne, prod)),
			[]string{"b", "d"},
		},
		{
			"de morgan expanded",
			extension.And(extension.Not(priorityOne), extension.Not(prod)),
			[]string{"b", "d"},
		},
		{
			"associativity",
			extension.And(extension.And(extension.IsNotNull("spec.priority"), priorityOne), prod),
			[]string{"a"},
		},
		{"short circuit on empty left", extension.Equal("spec.slug", "absent").And(prod), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := v.eval(ctx, tc.cond)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			assertSet(t, got, tc.want...)
		})
	}
}

func TestVisitor_DeserializedSingleElementIn(t *testing.T) {
	v := seededVisitor(t)

	// A tree decoded off the wire may carry In with one value instead of
	// the canonical Equal.
	cond := &extension.Condition{
		Type:      extension.TypeIn,
		IndexName: "spec.slug",
		Values:    []any{"hello"},
	}
	got, err := v.eval(context.Background(), cond)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	assertSet(t, got, "a")
}

func TestVisitor_ErrorPaths(t *testing.T) {
	v := seededVisitor(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		cond     *extension.Condition
		sentinel error
	}{
		{"unknown index", extension.Equal("spec.missing", "x"), ErrUnknownIndex},
		{"labels as value index", extension.Equal(LabelsIndexName, "x"), ErrInvalidIndex},
		{"type mismatch", extension.Equal("spec.priority", "one"), ErrIndexTypeMismatch},
		{"unsupported type", &extension.Condition{Type: "Bogus"}, ErrInvalidIndex},
		{"error inside combinator", extension.Empty().And(extension.Equal("spec.missing", "x")), ErrUnknownIndex},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.eval(ctx, tc.cond); !errors.Is(err, tc.sentinel) {
				t.Errorf("got %v, want %v", err, tc.sentinel)
			}
		})
	}
}

// stubSearcher is a canned full-text engine for Contains tests.
type stubSearcher struct {
	hits  []string
	err   error
	got   *search.Option
	calls int
}

func (s *stubSearcher) Search(_ context.Context, opt search.Option) (*search.Result, error) {
	s.calls++
	s.got = &opt
	if s.err != nil {
		return nil, s.err
	}
	result := &search.Result{Keyword: opt.Keyword}
	for _, pk := range s.hits {
		result.Hits = append(result.Hits, search.Document{PrimaryKey: pk})
	}
	return result, nil
}

func fullTextMapping() *FieldMapping {
	return NewFieldMapping().Declare("spec.title", articleKindTag)
}

func TestVisitor_ContainsScanWithoutSearcher(t *testing.T) {
	v := seededVisitor(t)
	for _, a := range []*article{
		{Meta: extension.Metadata{Name: "a"}, Slug: "hello", Title: "Learning Rust"},
		{Meta: extension.Metadata{Name: "b"}, Slug: "world", Title: "Go in practice"},
	} {
		if err := v.bundle.Update(a); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	got, err := v.eval(context.Background(), extension.Contains("spec.title", "rust"))
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	assertSet(t, got, "a")
}

func TestVisitor_ContainsDelegatesToSearcher(t *testing.T) {
	v := seededVisitor(t)
	stub := &stubSearcher{hits: []string{"a", "b"}}
	v.mapping = fullTextMapping()
	v.searcher = stub

	got, err := v.eval(context.Background(), extension.Contains("spec.title", "rust"))
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	assertSet(t, got, "a", "b")

	if stub.got.Keyword != "rust" {
		t.Errorf("keyword: %q", stub.got.Keyword)
	}
	if stub.got.Limit != containsSearchLimit {
		t.Errorf("limit: %d", stub.got.Limit)
	}
	if len(stub.got.IncludeTypes) != 1 || stub.got.IncludeTypes[0] != articleKindTag {
		t.Errorf("include types: %v", stub.got.IncludeTypes)
	}
}

func TestVisitor_ContainsSkipsSearcherForUndeclaredFields(t *testing.T) {
	v := seededVisitor(t)
	stub := &stubSearcher{hits: []string{"a"}}
	v.mapping = fullTextMapping()
	v.searcher = stub

	// spec.slug is not declared full-text, so this stays a substring scan.
	got, err := v.eval(context.Background(), extension.Contains("spec.slug", "orl"))
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	assertSet(t, got, "b")
	if stub.calls != 0 {
		t.Errorf("searcher consulted %d times for a non-full-text field", stub.calls)
	}
}

func TestVisitor_ContainsFallsBackOnSearchFailure(t *testing.T) {
	v := seededVisitor(t)
	stub := &stubSearcher{err: fmt.Errorf("%w: index closed", search.ErrSearchFailed)}
	v.mapping = fullTextMapping()
	v.searcher = stub

	// The field is declared full-text but the engine fails, so the scan
	// answers from spec.title. The seeded fixtures have no titles, so the
	// scan finds nothing rather than erroring.
	got, err := v.eval(context.Background(), extension.Contains("spec.title", "rust"))
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("fallback scan: %v", keysOf(got))
	}
	if stub.calls != 1 {
		t.Errorf("searcher calls: %d", stub.calls)
	}
}

func TestVisitor_ContainsPropagatesCancellation(t *testing.T) {
	v := seededVisitor(t)
	stub := &stubSearcher{err: context.Canceled}
	v.mapping = fullTextMapping()
	v.searcher = stub

	_, err := v.eval(context.Background(), extension.Contains("spec.title", "rust"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

package index

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ViewWay/flow-sub000/internal/extension"
)

// LabelsIndexName is reserved for label predicates. Value predicates
// against it are rejected with ErrInvalidIndex.
const LabelsIndexName = "metadata.labels"

// Spec declares one value index maintained for a kind.
type Spec struct {
	// Name is the query name of the index, e.g. "spec.slug".
	Name string
	// KeyType is the declared key type; predicate payloads coerce to it.
	KeyType KeyType
	// Multi selects a multi-arity index that stores every extracted key.
	// A single-arity index stores only the first.
	Multi bool
	// Unique rejects writes that would file two primary keys under the
	// same key.
	Unique bool
	// Extract pulls the index keys out of a resource. An empty result
	// files the primary key under the null set.
	Extract func(ext extension.Extension) []any
}

func (s Spec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: index spec with empty name", ErrInvalidIndex)
	}
	if s.Name == LabelsIndexName {
		return fmt.Errorf("%w: %q is reserved for label predicates", ErrInvalidIndex, LabelsIndexName)
	}
	if !s.KeyType.Valid() {
		return fmt.Errorf("%w: index %q has unsupported key type %q", ErrInvalidIndex, s.Name, s.KeyType)
	}
	if s.Extract == nil {
		return fmt.Errorf("%w: index %q has no extract function", ErrInvalidIndex, s.Name)
	}
	if s.Unique && s.Multi {
		return fmt.Errorf("%w: index %q cannot be both unique and multi-arity", ErrInvalidIndex, s.Name)
	}
	return nil
}

// anyIndex is the type-erased face of a value index. Predicate payloads
// arrive as untyped JSON scalars and coerce to the declared key type at
// this boundary.
type anyIndex interface {
	stage(pk string, values []any) (func(), error)
	remove(pk string)

	equal(v any) (KeySet, error)
	notEqual(v any) (KeySet, error)
	in(vs []any) (KeySet, error)
	notIn(vs []any) (KeySet, error)
	lessThan(v any, inclusive bool) (KeySet, error)
	greaterThan(v any, inclusive bool) (KeySet, error)
	between(from any, fromInclusive bool, to any, toInclusive bool) (KeySet, error)
	notBetween(from any, fromInclusive bool, to any, toInclusive bool) (KeySet, error)
	contains(keyword string) (KeySet, error)
	all() KeySet
	domain() KeySet
	isNull() KeySet
}

// typedOps is the arity-independent surface shared by the two concrete
// index shapes.
type typedOps[K indexKey] interface {
	conflicts(keys []K, pk string) bool
	store(pk string, keys []K)
	remove(pk string)
	equal(key K) KeySet
	notEqual(key K) KeySet
	between(from K, fromInclusive bool, to K, toInclusive bool) KeySet
	notBetween(from K, fromInclusive bool, to K, toInclusive bool) KeySet
	greaterThan(key K, inclusive bool) KeySet
	lessThan(key K, inclusive bool) KeySet
	all() KeySet
	domain() KeySet
	isNull() KeySet
}

type singleOps[K indexKey] struct{ *singleValueIndex[K] }

func (s singleOps[K]) conflicts(keys []K, pk string) bool {
	for _, key := range keys {
		if s.singleValueIndex.conflicts(key, pk) {
			return true
		}
	}
	return false
}

func (s singleOps[K]) store(pk string, keys []K) {
	if len(keys) == 0 {
		s.insert(pk, nil)
		return
	}
	s.insert(pk, &keys[0])
}

type multiOps[K indexKey] struct{ *multiValueIndex[K] }

func (m multiOps[K]) store(pk string, keys []K) { m.insert(pk, keys) }

// containsScan is the dumb fall-back behind Contains when no full-text
// engine serves the field: an O(n) case-insensitive substring scan over
// the inverted map. Correctness, not performance.
func containsScan(idx *singleValueIndex[string], keyword string) KeySet {
	needle := strings.ToLower(keyword)
	out := make(KeySet)
	for pk, key := range idx.inverted {
		if strings.Contains(strings.ToLower(key), needle) {
			out.Add(pk)
		}
	}
	return out
}

// valueAdapter erases a typed index behind anyIndex, owning the JSON
// scalar coercion and the unique pre-check.
type valueAdapter[K indexKey] struct {
	spec   Spec
	ops    typedOps[K]
	coerce func(any) (K, error)
	scan   func(keyword string) KeySet
}

func newAnyIndex(spec Spec) anyIndex {
	switch spec.KeyType {
	case KeyTypeInt64:
		if spec.Multi {
			return &valueAdapter[int64]{spec: spec, ops: multiOps[int64]{newMultiValueIndex[int64]()}, coerce: coerceInt64}
		}
		return &valueAdapter[int64]{spec: spec, ops: singleOps[int64]{newSingleValueIndex[int64]()}, coerce: coerceInt64}
	default:
		if spec.Multi {
			return &valueAdapter[string]{spec: spec, ops: multiOps[string]{newMultiValueIndex[string]()}, coerce: coerceString}
		}
		idx := newSingleValueIndex[string]()
		return &valueAdapter[string]{
			spec:   spec,
			ops:    singleOps[string]{idx},
			coerce: coerceString,
			scan:   func(keyword string) KeySet { return containsScan(idx, keyword) },
		}
	}
}

func (a *valueAdapter[K]) coerceOne(v any) (K, error) {
	key, err := a.coerce(v)
	if err != nil {
		var zero K
		return zero, &TypeMismatchError{Name: a.spec.Name, Expected: a.spec.KeyType, Got: fmt.Sprintf("%T", v)}
	}
	return key, nil
}

func (a *valueAdapter[K]) coerceAll(vs []any) ([]K, error) {
	keys := make([]K, 0, len(vs))
	for _, v := range vs {
		key, err := a.coerceOne(v)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// stage coerces and validates a write, returning the commit that
// installs it. A rejected stage mutates nothing, and the commit reuses
// the coerced keys rather than coercing a second time.
func (a *valueAdapter[K]) stage(pk string, values []any) (func(), error) {
	keys, err := a.coerceAll(values)
	if err != nil {
		return nil, err
	}
	if a.spec.Unique && a.ops.conflicts(keys, pk) {
		return nil, &UniqueViolationError{Name: a.spec.Name, Key: fmt.Sprint(keys[0])}
	}
	return func() { a.ops.store(pk, keys) }, nil
}

func (a *valueAdapter[K]) remove(pk string) { a.ops.remove(pk) }

func (a *valueAdapter[K]) equal(v any) (KeySet, error) {
	key, err := a.coerceOne(v)
	if err != nil {
		return nil, err
	}
	return a.ops.equal(key), nil
}

func (a *valueAdapter[K]) notEqual(v any) (KeySet, error) {
	key, err := a.coerceOne(v)
	if err != nil {
		return nil, err
	}
	return a.ops.notEqual(key), nil
}

func (a *valueAdapter[K]) in(vs []any) (KeySet, error) {
	keys, err := a.coerceAll(vs)
	if err != nil {
		return nil, err
	}
	out := make(KeySet)
	for _, key := range keys {
		out.Extend(a.ops.equal(key))
	}
	return out, nil
}

// notIn is the complement of in within the whole population, nulls
// included: a missing value is never any of the excluded ones.
func (a *valueAdapter[K]) notIn(vs []any) (KeySet, error) {
	matched, err := a.in(vs)
	if err != nil {
		return nil, err
	}
	return a.ops.all().Difference(matched), nil
}

func (a *valueAdapter[K]) lessThan(v any, inclusive bool) (KeySet, error) {
	key, err := a.coerceOne(v)
	if err != nil {
		return nil, err
	}
	return a.ops.lessThan(key, inclusive), nil
}

func (a *valueAdapter[K]) greaterThan(v any, inclusive bool) (KeySet, error) {
	key, err := a.coerceOne(v)
	if err != nil {
		return nil, err
	}
	return a.ops.greaterThan(key, inclusive), nil
}

func (a *valueAdapter[K]) between(from any, fromInclusive bool, to any, toInclusive bool) (KeySet, error) {
	fromKey, err := a.coerceOne(from)
	if err != nil {
		return nil, err
	}
	toKey, err := a.coerceOne(to)
	if err != nil {
		return nil, err
	}
	return a.ops.between(fromKey, fromInclusive, toKey, toInclusive), nil
}

func (a *valueAdapter[K]) notBetween(from any, fromInclusive bool, to any, toInclusive bool) (KeySet, error) {
	fromKey, err := a.coerceOne(from)
	if err != nil {
		return nil, err
	}
	toKey, err := a.coerceOne(to)
	if err != nil {
		return nil, err
	}
	return a.ops.notBetween(fromKey, fromInclusive, toKey, toInclusive), nil
}

func (a *valueAdapter[K]) contains(keyword string) (KeySet, error) {
	if a.scan == nil {
		return nil, &TypeMismatchError{Name: a.spec.Name, Expected: KeyTypeString, Got: string(a.spec.KeyType)}
	}
	return a.scan(keyword), nil
}

func (a *valueAdapter[K]) all() KeySet    { return a.ops.all() }
func (a *valueAdapter[K]) domain() KeySet { return a.ops.domain() }
func (a *valueAdapter[K]) isNull() KeySet { return a.ops.isNull() }

// Bundle holds every index maintained for one kind: the declared value
// indices plus the label index. One RWMutex covers them all, so a writer
// swaps the old and new entries of every index before any reader sees
// either.
type Bundle struct {
	mu      sync.RWMutex
	kindTag string
	specs   []Spec
	indices map[string]anyIndex
	labels  *labelIndex
}

// NewBundle validates the specs and builds an empty bundle. kindTag names
// the kind inside the full-text index; it may be empty when the kind has
// no full-text fields.
func NewBundle(kindTag string, specs []Spec) (*Bundle, error) {
	indices := make(map[string]anyIndex, len(specs))
	for _, spec := range specs {
		if err := spec.validate(); err != nil {
			return nil, err
		}
		if _, dup := indices[spec.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate index name %q", ErrInvalidIndex, spec.Name)
		}
		indices[spec.Name] = newAnyIndex(spec)
	}
	return &Bundle{kindTag: kindTag, specs: specs, indices: indices, labels: newLabelIndex()}, nil
}

// Update upserts a resource into every index of the bundle. All writes
// are validated before any index mutates, so a rejected update leaves no
// partial state.
func (b *Bundle) Update(ext extension.Extension) error {
	meta := ext.Metadata()
	if meta == nil || meta.Name == "" {
		return fmt.Errorf("%w: resource without metadata.name", ErrInvalidIndex)
	}
	pk := meta.Name
	extracted := make([][]any, len(b.specs))
	for i, spec := range b.specs {
		extracted[i] = spec.Extract(ext)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	commits := make([]func(), 0, len(b.specs))
	for i, spec := range b.specs {
		commit, err := b.indices[spec.Name].stage(pk, extracted[i])
		if err != nil {
			return err
		}
		commits = append(commits, commit)
	}
	for _, commit := range commits {
		commit()
	}
	b.labels.insert(pk, meta.Labels)
	return nil
}

// Insert is Update: both paths replace whatever the bundle previously
// held for the primary key.
func (b *Bundle) Insert(ext extension.Extension) error { return b.Update(ext) }

// Delete drops the primary key from every index of the bundle.
func (b *Bundle) Delete(pk string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, idx := range b.indices {
		idx.remove(pk)
	}
	b.labels.remove(pk)
}

// Len reports the live population of the kind.
func (b *Bundle) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.labels.inverted) + b.labels.empty.Len()
}

// lookup resolves an index name for a value predicate. The caller must
// hold the bundle lock.
func (b *Bundle) lookup(name string) (anyIndex, error) {
	if name == LabelsIndexName {
		return nil, fmt.Errorf("%w: value predicates cannot target %q", ErrInvalidIndex, LabelsIndexName)
	}
	idx, ok := b.indices[name]
	if !ok {
		return nil, &UnknownIndexError{Name: name}
	}
	return idx, nil
}

// allPrimaryKeys returns the canonical "all of this kind" set. The caller
// must hold the bundle lock.
func (b *Bundle) allPrimaryKeys() KeySet {
	return b.labels.allPrimaryKeys()
}

package index

import (
	"github.com/google/btree"
)

// indexKey constrains value-index keys to the supported ordered scalars.
type indexKey interface {
	~string | ~int64
}

const btreeDegree = 8

// valueEntry is one node of a forward map: an index key and the primary
// keys stored under it.
type valueEntry[K indexKey] struct {
	key K
	pks KeySet
}

func entryLess[K indexKey](a, b valueEntry[K]) bool { return a.key < b.key }

// singleValueIndex maps at most one key per primary key. The forward
// B-tree supports range scans in key order; the inverted map answers
// key-of-pk lookups; nulls holds primary keys whose extract was empty.
// The struct is not synchronized; the owning bundle serializes access.
type singleValueIndex[K indexKey] struct {
	forward  *btree.BTreeG[valueEntry[K]]
	inverted map[string]K
	nulls    KeySet
}

func newSingleValueIndex[K indexKey]() *singleValueIndex[K] {
	return &singleValueIndex[K]{
		forward:  btree.NewG(btreeDegree, entryLess[K]),
		inverted: make(map[string]K),
		nulls:    make(KeySet),
	}
}

// conflicts reports whether storing key for pk would collide with another
// primary key already holding the same key.
func (idx *singleValueIndex[K]) conflicts(key K, pk string) bool {
	entry, ok := idx.forward.Get(valueEntry[K]{key: key})
	if !ok {
		return false
	}
	for existing := range entry.pks {
		if existing != pk {
			return true
		}
	}
	return false
}

// insert replaces any prior entry for pk. A nil key files pk under nulls.
func (idx *singleValueIndex[K]) insert(pk string, key *K) {
	idx.remove(pk)
	if key == nil {
		idx.nulls.Add(pk)
		return
	}
	idx.forwardAdd(*key, pk)
	idx.inverted[pk] = *key
}

// remove drops every trace of pk. Forward entries left empty are deleted
// so the ordered map never retains dead keys.
func (idx *singleValueIndex[K]) remove(pk string) {
	if key, ok := idx.inverted[pk]; ok {
		delete(idx.inverted, pk)
		idx.forwardRemove(key, pk)
	}
	idx.nulls.Remove(pk)
}

func (idx *singleValueIndex[K]) forwardAdd(key K, pk string) {
	if entry, ok := idx.forward.Get(valueEntry[K]{key: key}); ok {
		entry.pks.Add(pk)
		return
	}
	idx.forward.ReplaceOrInsert(valueEntry[K]{key: key, pks: NewKeySet(pk)})
}

func (idx *singleValueIndex[K]) forwardRemove(key K, pk string) {
	entry, ok := idx.forward.Get(valueEntry[K]{key: key})
	if !ok {
		return
	}
	entry.pks.Remove(pk)
	if entry.pks.Len() == 0 {
		idx.forward.Delete(valueEntry[K]{key: key})
	}
}

func (idx *singleValueIndex[K]) getKey(pk string) (K, bool) {
	key, ok := idx.inverted[pk]
	return key, ok
}

func (idx *singleValueIndex[K]) equal(key K) KeySet {
	if entry, ok := idx.forward.Get(valueEntry[K]{key: key}); ok {
		return entry.pks.Clone()
	}
	return make(KeySet)
}

// notEqual returns every primary key stored under a different key plus the
// null set: a missing value is distinct from any value.
func (idx *singleValueIndex[K]) notEqual(key K) KeySet {
	out := make(KeySet)
	idx.forward.Ascend(func(entry valueEntry[K]) bool {
		if entry.key != key {
			out.Extend(entry.pks)
		}
		return true
	})
	out.Extend(idx.nulls)
	return out
}

func (idx *singleValueIndex[K]) between(from K, fromInclusive bool, to K, toInclusive bool) KeySet {
	out := make(KeySet)
	idx.forward.AscendGreaterOrEqual(valueEntry[K]{key: from}, func(entry valueEntry[K]) bool {
		if entry.key == from && !fromInclusive {
			return true
		}
		if entry.key > to || (entry.key == to && !toInclusive) {
			return false
		}
		out.Extend(entry.pks)
		return true
	})
	return out
}

func (idx *singleValueIndex[K]) notBetween(from K, fromInclusive bool, to K, toInclusive bool) KeySet {
	return idx.all().Difference(idx.between(from, fromInclusive, to, toInclusive))
}

func (idx *singleValueIndex[K]) greaterThan(key K, inclusive bool) KeySet {
	out := make(KeySet)
	idx.forward.AscendGreaterOrEqual(valueEntry[K]{key: key}, func(entry valueEntry[K]) bool {
		if entry.key == key && !inclusive {
			return true
		}
		out.Extend(entry.pks)
		return true
	})
	return out
}

func (idx *singleValueIndex[K]) lessThan(key K, inclusive bool) KeySet {
	out := make(KeySet)
	idx.forward.AscendLessThan(valueEntry[K]{key: key}, func(entry valueEntry[K]) bool {
		out.Extend(entry.pks)
		return true
	})
	if inclusive {
		if entry, ok := idx.forward.Get(valueEntry[K]{key: key}); ok {
			out.Extend(entry.pks)
		}
	}
	return out
}

// all returns the whole population known to the index, nulls included.
func (idx *singleValueIndex[K]) all() KeySet {
	out := make(KeySet, len(idx.inverted)+len(idx.nulls))
	for pk := range idx.inverted {
		out.Add(pk)
	}
	out.Extend(idx.nulls)
	return out
}

// domain returns the primary keys that carry a key (IS NOT NULL).
func (idx *singleValueIndex[K]) domain() KeySet {
	out := make(KeySet, len(idx.inverted))
	for pk := range idx.inverted {
		out.Add(pk)
	}
	return out
}

// isNull returns the primary keys whose extract produced no key.
func (idx *singleValueIndex[K]) isNull() KeySet {
	return idx.nulls.Clone()
}

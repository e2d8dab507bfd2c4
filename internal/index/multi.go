package index

import (
	"github.com/google/btree"
)

// multiValueIndex maps zero or more keys per primary key. An empty key
// slice files the primary key under nulls, mirroring the single-value
// case. Not synchronized; the owning bundle serializes access.
type multiValueIndex[K indexKey] struct {
	forward  *btree.BTreeG[valueEntry[K]]
	inverted map[string][]K
	nulls    KeySet
}

func newMultiValueIndex[K indexKey]() *multiValueIndex[K] {
	return &multiValueIndex[K]{
		forward:  btree.NewG(btreeDegree, entryLess[K]),
		inverted: make(map[string][]K),
		nulls:    make(KeySet),
	}
}

// conflicts reports whether any of keys is already held by a primary key
// other than pk.
func (idx *multiValueIndex[K]) conflicts(keys []K, pk string) bool {
	for _, key := range keys {
		entry, ok := idx.forward.Get(valueEntry[K]{key: key})
		if !ok {
			continue
		}
		for existing := range entry.pks {
			if existing != pk {
				return true
			}
		}
	}
	return false
}

// insert replaces any prior entries for pk. Duplicate keys in the slice
// collapse to one forward entry.
func (idx *multiValueIndex[K]) insert(pk string, keys []K) {
	idx.remove(pk)
	if len(keys) == 0 {
		idx.nulls.Add(pk)
		return
	}
	seen := make(map[K]struct{}, len(keys))
	stored := make([]K, 0, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		stored = append(stored, key)
		idx.forwardAdd(key, pk)
	}
	idx.inverted[pk] = stored
}

func (idx *multiValueIndex[K]) remove(pk string) {
	if keys, ok := idx.inverted[pk]; ok {
		delete(idx.inverted, pk)
		for _, key := range keys {
			idx.forwardRemove(key, pk)
		}
	}
	idx.nulls.Remove(pk)
}

func (idx *multiValueIndex[K]) forwardAdd(key K, pk string) {
	if entry, ok := idx.forward.Get(valueEntry[K]{key: key}); ok {
		entry.pks.Add(pk)
		return
	}
	idx.forward.ReplaceOrInsert(valueEntry[K]{key: key, pks: NewKeySet(pk)})
}

func (idx *multiValueIndex[K]) forwardRemove(key K, pk string) {
	entry, ok := idx.forward.Get(valueEntry[K]{key: key})
	if !ok {
		return
	}
	entry.pks.Remove(pk)
	if entry.pks.Len() == 0 {
		idx.forward.Delete(valueEntry[K]{key: key})
	}
}

func (idx *multiValueIndex[K]) getKeys(pk string) ([]K, bool) {
	keys, ok := idx.inverted[pk]
	return keys, ok
}

func (idx *multiValueIndex[K]) equal(key K) KeySet {
	if entry, ok := idx.forward.Get(valueEntry[K]{key: key}); ok {
		return entry.pks.Clone()
	}
	return make(KeySet)
}

// notEqual keeps a primary key only when none of its keys equals the
// probe, then adds the null set.
func (idx *multiValueIndex[K]) notEqual(key K) KeySet {
	out := idx.all()
	out = out.Difference(idx.equal(key))
	return out
}

func (idx *multiValueIndex[K]) between(from K, fromInclusive bool, to K, toInclusive bool) KeySet {
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

func (idx *multiValueIndex[K]) notBetween(from K, fromInclusive bool, to K, toInclusive bool) KeySet {
	return idx.all().Difference(idx.between(from, fromInclusive, to, toInclusive))
}

func (idx *multiValueIndex[K]) greaterThan(key K, inclusive bool) KeySet {
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

func (idx *multiValueIndex[K]) lessThan(key K, inclusive bool) KeySet {
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

func (idx *multiValueIndex[K]) all() KeySet {
	out := make(KeySet, len(idx.inverted)+len(idx.nulls))
	for pk := range idx.inverted {
		out.Add(pk)
	}
	out.Extend(idx.nulls)
	return out
}

func (idx *multiValueIndex[K]) domain() KeySet {
	out := make(KeySet, len(idx.inverted))
	for pk := range idx.inverted {
		out.Add(pk)
	}
	return out
}

func (idx *multiValueIndex[K]) isNull() KeySet {
	return idx.nulls.Clone()
}

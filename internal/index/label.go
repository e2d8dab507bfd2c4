package index

import (
	"github.com/google/btree"
)

// labelEntry is one forward node of the label index: a (key, value) pair
// and the primary keys carrying that exact label.
type labelEntry struct {
	key   string
	value string
	pks   KeySet
}

func labelLess(a, b labelEntry) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return a.value < b.value
}

// labelIndex indexes metadata labels by (key, value) pairs. Ordering by
// key first lets every per-key predicate run as a range scan from
// (key, ""). Resources present with no labels live in empty. Not
// synchronized; the owning bundle serializes access.
type labelIndex struct {
	forward  *btree.BTreeG[labelEntry]
	inverted map[string]map[string]string
	empty    KeySet
}

func newLabelIndex() *labelIndex {
	return &labelIndex{
		forward:  btree.NewG(btreeDegree, labelLess),
		inverted: make(map[string]map[string]string),
		empty:    make(KeySet),
	}
}

// insert replaces any prior labels recorded for pk. A nil or empty label
// map files pk under the empty set.
func (idx *labelIndex) insert(pk string, labels map[string]string) {
	idx.remove(pk)
	if len(labels) == 0 {
		idx.empty.Add(pk)
		return
	}
	stored := make(map[string]string, len(labels))
	for k, v := range labels {
		stored[k] = v
		idx.forwardAdd(k, v, pk)
	}
	idx.inverted[pk] = stored
}

func (idx *labelIndex) remove(pk string) {
	if labels, ok := idx.inverted[pk]; ok {
		delete(idx.inverted, pk)
		for k, v := range labels {
			idx.forwardRemove(k, v, pk)
		}
	}
	idx.empty.Remove(pk)
}

func (idx *labelIndex) forwardAdd(key, value, pk string) {
	if entry, ok := idx.forward.Get(labelEntry{key: key, value: value}); ok {
		entry.pks.Add(pk)
		return
	}
	idx.forward.ReplaceOrInsert(labelEntry{key: key, value: value, pks: NewKeySet(pk)})
}

func (idx *labelIndex) forwardRemove(key, value, pk string) {
	entry, ok := idx.forward.Get(labelEntry{key: key, value: value})
	if !ok {
		return
	}
	entry.pks.Remove(pk)
	if entry.pks.Len() == 0 {
		idx.forward.Delete(labelEntry{key: key, value: value})
	}
}

// scanKey visits every forward entry whose label key equals key.
func (idx *labelIndex) scanKey(key string, visit func(labelEntry)) {
	idx.forward.AscendGreaterOrEqual(labelEntry{key: key}, func(entry labelEntry) bool {
		if entry.key != key {
			return false
		}
		visit(entry)
		return true
	})
}

// exists returns every primary key carrying the label key, any value.
func (idx *labelIndex) exists(key string) KeySet {
	out := make(KeySet)
	idx.scanKey(key, func(entry labelEntry) {
		out.Extend(entry.pks)
	})
	return out
}

func (idx *labelIndex) equal(key, value string) KeySet {
	if entry, ok := idx.forward.Get(labelEntry{key: key, value: value}); ok {
		return entry.pks.Clone()
	}
	return make(KeySet)
}

// notEqual returns primary keys carrying the label key with a different
// value. Resources without the key are not a match; that is the selector
// convention, and LabelNotExists covers the other reading.
func (idx *labelIndex) notEqual(key, value string) KeySet {
	out := make(KeySet)
	idx.scanKey(key, func(entry labelEntry) {
		if entry.value != value {
			out.Extend(entry.pks)
		}
	})
	return out
}

func (idx *labelIndex) in(key string, values []string) KeySet {
	out := make(KeySet)
	for _, v := range values {
		out.Extend(idx.equal(key, v))
	}
	return out
}

// notIn returns primary keys carrying the label key with a value outside
// values. As with notEqual, resources without the key are excluded.
func (idx *labelIndex) notIn(key string, values []string) KeySet {
	excluded := make(map[string]struct{}, len(values))
	for _, v := range values {
		excluded[v] = struct{}{}
	}
	out := make(KeySet)
	idx.scanKey(key, func(entry labelEntry) {
		if _, skip := excluded[entry.value]; !skip {
			out.Extend(entry.pks)
		}
	})
	return out
}

// allPrimaryKeys returns the live population of the kind: every labeled
// resource plus every resource recorded without labels.
func (idx *labelIndex) allPrimaryKeys() KeySet {
	out := make(KeySet, len(idx.inverted)+len(idx.empty))
	for pk := range idx.inverted {
		out.Add(pk)
	}
	out.Extend(idx.empty)
	return out
}

func (idx *labelIndex) getLabels(pk string) (map[string]string, bool) {
	labels, ok := idx.inverted[pk]
	return labels, ok
}

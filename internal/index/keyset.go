package index

import "sort"

// KeySet is an unordered set of primary keys. Query operations return new
// sets; callers own the result and may mutate it freely.
type KeySet map[string]struct{}

// NewKeySet builds a set from the given keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts a key.
func (s KeySet) Add(key string) { s[key] = struct{}{} }

// Remove deletes a key.
func (s KeySet) Remove(key string) { delete(s, key) }

// Contains reports whether key is in the set.
func (s KeySet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// Len returns the set cardinality.
func (s KeySet) Len() int { return len(s) }

// Clone returns an independent copy.
func (s KeySet) Clone() KeySet {
	c := make(KeySet, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// Extend adds every key of other into s.
func (s KeySet) Extend(other KeySet) {
	for k := range other {
		s[k] = struct{}{}
	}
}

// Union returns a new set holding the keys of both sets.
func (s KeySet) Union(other KeySet) KeySet {
	out := s.Clone()
	out.Extend(other)
	return out
}

// Intersect returns a new set holding the keys present in both sets.
func (s KeySet) Intersect(other KeySet) KeySet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(KeySet)
	for k := range small {
		if large.Contains(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// Difference returns a new set holding the keys of s absent from other.
func (s KeySet) Difference(other KeySet) KeySet {
	out := make(KeySet)
	for k := range s {
		if !other.Contains(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// Sorted returns the keys in lexicographic order.
func (s KeySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

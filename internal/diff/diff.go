// Package diff computes added/updated/removed partitions between two
// keyed snapshots of the same domain.
package diff

// Change is an old/new value pair for a key present on both sides.
type Change[V any] struct {
	OldValue V `json:"oldValue"`
	NewValue V `json:"newValue"`
}

// ChangeSet is the result of comparing two snapshots of one domain.
// A key appears in at most one of the three tables.
type ChangeSet[V any] struct {
	Added   *Table[V]         `json:"added"`
	Updated *Table[Change[V]] `json:"updated"`
	Removed *Table[V]         `json:"removed"`
}

// Count is the number of entries across added, updated and removed.
func (c ChangeSet[V]) Count() int {
	return c.Added.Len() + c.Updated.Len() + c.Removed.Len()
}

func (c ChangeSet[V]) Empty() bool { return c.Count() == 0 }

// EqualFunc reports whether two values of a domain compare equal.
type EqualFunc[V any] func(a, b V) bool

// Diff partitions the keys of newer and older.
//
// Added and Updated follow newer's key order; Removed follows older's.
// Keys present on both sides whose values are equal under eq appear nowhere.
func Diff[V any](newer, older *Table[V], eq EqualFunc[V]) ChangeSet[V] {
	cs := ChangeSet[V]{
		Added:   NewTable[V](),
		Updated: NewTable[Change[V]](),
		Removed: NewTable[V](),
	}

	newer.Each(func(k string, nv V) {
		ov, ok := older.Get(k)
		if !ok {
			cs.Added.Set(k, nv)
			return
		}
		if !eq(nv, ov) {
			cs.Updated.Set(k, Change[V]{OldValue: ov, NewValue: nv})
		}
	})
	older.Each(func(k string, ov V) {
		if !newer.Has(k) {
			cs.Removed.Set(k, ov)
		}
	})
	return cs
}

// Equal is exact equality for scalar values.
func Equal[V comparable](a, b V) bool { return a == b }

// SameKey treats any two values as equal, so only presence is compared.
func SameKey[V any](V, V) bool { return true }

// TablesEqual reports whether two tables hold the same keys with equal
// values. Key order is ignored.
func TablesEqual[V comparable](a, b *Table[V]) bool {
	if a.Len() != b.Len() {
		return false
	}
	equal := true
	a.Each(func(k string, av V) {
		if !equal {
			return
		}
		bv, ok := b.Get(k)
		equal = ok && av == bv
	})
	return equal
}

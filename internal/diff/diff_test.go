package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strTable(kv ...string) *Table[string] {
	t := NewTable[string]()
	for i := 0; i+1 < len(kv); i += 2 {
		t.Set(kv[i], kv[i+1])
	}
	return t
}

func TestDiff_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		newer       *Table[string]
		older       *Table[string]
		wantAdded   []string
		wantUpdated []string
		wantRemoved []string
	}{
		{
			name:        "added and removed",
			newer:       strTable("A", "1", "B", "2"),
			older:       strTable("A", "1", "C", "3"),
			wantAdded:   []string{"B"},
			wantRemoved: []string{"C"},
		},
		{
			name:        "updated",
			newer:       strTable("A", "2"),
			older:       strTable("A", "1"),
			wantUpdated: []string{"A"},
		},
		{
			name:        "disjoint",
			newer:       strTable("x", "1", "y", "2"),
			older:       strTable("z", "3"),
			wantAdded:   []string{"x", "y"},
			wantRemoved: []string{"z"},
		},
		{
			name:  "both empty",
			newer: NewTable[string](),
			older: nil,
		},
		{
			name:        "change to empty string is an update",
			newer:       strTable("A", ""),
			older:       strTable("A", "1"),
			wantUpdated: []string{"A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := Diff(tt.newer, tt.older, Equal[string])
			assert.Equal(t, tt.wantAdded, cs.Added.Keys())
			assert.Equal(t, tt.wantUpdated, cs.Updated.Keys())
			assert.Equal(t, tt.wantRemoved, cs.Removed.Keys())
		})
	}
}

func TestDiff_Values(t *testing.T) {
	cs := Diff(strTable("A", "1", "B", "2"), strTable("A", "1", "C", "3"), Equal[string])
	v, _ := cs.Added.Get("B")
	assert.Equal(t, "2", v)
	v, _ = cs.Removed.Get("C")
	assert.Equal(t, "3", v)

	cs = Diff(strTable("A", "2"), strTable("A", "1"), Equal[string])
	ch, ok := cs.Updated.Get("A")
	assert.True(t, ok)
	assert.Equal(t, Change[string]{OldValue: "1", NewValue: "2"}, ch)
	assert.Equal(t, 1, cs.Count())
}

func TestDiff_Idempotent(t *testing.T) {
	m := strTable("a", "1", "b", "2", "c", "")
	cs := Diff(m, m, Equal[string])
	assert.True(t, cs.Empty())
}

func TestDiff_Ordering(t *testing.T) {
	newer := strTable("z", "1", "a", "2", "m", "9")
	older := strTable("q", "1", "m", "3", "b", "4")

	cs := Diff(newer, older, Equal[string])
	assert.Equal(t, []string{"z", "a"}, cs.Added.Keys())
	assert.Equal(t, []string{"m"}, cs.Updated.Keys())
	assert.Equal(t, []string{"q", "b"}, cs.Removed.Keys())
}

func TestDiff_Partition(t *testing.T) {
	newer := strTable("a", "1", "b", "2", "c", "3")
	older := strTable("b", "2", "c", "4", "d", "5")
	cs := Diff(newer, older, Equal[string])

	for _, k := range []string{"a", "b", "c", "d"} {
		n := 0
		for _, tbl := range []interface{ Has(string) bool }{cs.Added, cs.Updated, cs.Removed} {
			if tbl.Has(k) {
				n++
			}
		}
		if k == "b" {
			assert.Equal(t, 0, n, "equal key %s must not appear", k)
			continue
		}
		assert.Equal(t, 1, n, "key %s", k)
	}
}

func TestDiff_SameKeyIgnoresContent(t *testing.T) {
	cs := Diff(strTable("exp", "new-config"), strTable("exp", "old-config"), SameKey[string])
	assert.True(t, cs.Empty())
}

func TestTablesEqual(t *testing.T) {
	assert.True(t, TablesEqual(strTable("color", "red", "top", "0"), strTable("top", "0", "color", "red")))
	assert.False(t, TablesEqual(strTable("color", "red"), strTable("color", "blue")))
	assert.False(t, TablesEqual(strTable("color", "red"), strTable("color", "red", "top", "0")))
	assert.True(t, TablesEqual[string](nil, NewTable[string]()))
}

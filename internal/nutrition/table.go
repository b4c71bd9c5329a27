// internal/nutrition/table.go
package nutrition

import (
	"sort"
	"strings"
)

// Item is one row of the calorie reference table.
type Item struct {
	Name     string `json:"name"`
	Calories int    `json:"calories"`
}

// Table maps normalized food names to calories per reference unit. Keys keep the
// order in which they were first added, which makes substring resolution
// deterministic. A Table must not be modified once it is shared.
type Table struct {
	index map[string]int
	items []Item
}

// NewTable builds a table from items in order. A repeated name keeps its first
// position but takes the later value.
func NewTable(items ...Item) *Table {
	t := &Table{index: make(map[string]int, len(items))}
	for _, it := range items {
		t.add(it.Name, it.Calories)
	}
	return t
}

func (t *Table) add(name string, calories int) {
	key := normalize(name)
	if key == "" {
		return
	}
	if i, ok := t.index[key]; ok {
		t.items[i].Calories = calories
		return
	}
	t.index[key] = len(t.items)
	t.items = append(t.items, Item{Name: key, Calories: calories})
}

// Len reports the number of distinct keys. A nil table is empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.items)
}

// Lookup is an exact match on the normalized name.
func (t *Table) Lookup(name string) (int, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.index[normalize(name)]
	if !ok {
		return 0, false
	}
	return t.items[i].Calories, true
}

// Items returns a copy of the rows in insertion order.
func (t *Table) Items() []Item {
	if t == nil {
		return nil
	}
	out := make([]Item, len(t.items))
	copy(out, t.items)
	return out
}

// Search returns every item whose name contains the normalized query, sorted by
// name. An empty query matches everything.
func (t *Table) Search(query string) []Item {
	q := normalize(query)
	var out []Item
	for _, it := range t.Items() {
		if strings.Contains(it.Name, q) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

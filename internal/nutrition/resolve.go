// internal/nutrition/resolve.go
package nutrition

import "strings"

// Resolve maps a logged food name to calories per reference unit. An exact key
// match wins; otherwise the first key in table order that contains the name, or
// is contained by it, is used. There is no scoring: "boiled egg" resolves to
// whichever of "egg" or "boiled egg white" was added first.
//
// The second return value is false when nothing matched. A match with zero
// calories is reported as (0, true).
func Resolve(name string, t *Table) (int, bool) {
	n := normalize(name)
	if n == "" || t.Len() == 0 {
		return 0, false
	}

	if calories, ok := t.Lookup(n); ok {
		return calories, true
	}

	for _, it := range t.items {
		if strings.Contains(n, it.Name) || strings.Contains(it.Name, n) {
			return it.Calories, true
		}
	}

	return 0, false
}

package obligation

import "sort"

// DiffResult is the three-way comparison of two OBL-ID sets across
// revisions. Lists are disjoint and lexicographically ordered by hash.
type DiffResult struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Unchanged []string `json:"unchanged"`
}

// Diff compares two obligation identity sets by pure set difference. A
// hash appears in Added or Removed only when a normalized field really
// changed — scope and lifecycle metadata count, formatting and clause
// renumbering do not, because neither enters the hash.
func Diff(before, after []Identity) DiffResult {
	a := make(map[string]bool, len(before))
	for _, id := range before {
		a[id.Hash] = true
	}
	b := make(map[string]bool, len(after))
	for _, id := range after {
		b[id.Hash] = true
	}

	var res DiffResult
	for h := range b {
		if a[h] {
			res.Unchanged = append(res.Unchanged, h)
		} else {
			res.Added = append(res.Added, h)
		}
	}
	for h := range a {
		if !b[h] {
			res.Removed = append(res.Removed, h)
		}
	}

	sort.Strings(res.Added)
	sort.Strings(res.Removed)
	sort.Strings(res.Unchanged)
	return res
}

// Empty reports whether the diff contains no additions or removals.
func (d DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

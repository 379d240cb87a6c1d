package reference

import "sort"

// DiffResult is the three-way outcome of comparing two reference
// identity sets. The lists are disjoint and ordered lexicographically
// by hash, so the payload is byte-stable across runs.
type DiffResult struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Unchanged []string `json:"unchanged"`
}

// Diff compares two identity sets as pure set difference over hashes.
// Surface text, ordering, and pagination play no part: only a genuine
// change in canonical reference content can appear here.
func Diff(before, after []Identity) DiffResult {
	a := hashSet(before)
	b := hashSet(after)

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

func hashSet(ids []Identity) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id.Hash] = true
	}
	return m
}

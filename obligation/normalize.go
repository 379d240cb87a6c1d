package obligation

import "strings"

// Normalize is the refinement pass over raw extracted atoms. It cleans
// bound fields and collapses exact duplicates within a clause. The pass
// is strictly many-to-one: it emits at most as many atoms as it was
// given, every output traces (via TraceID) to exactly one input, and
// the inputs themselves are never mutated.
func Normalize(atoms []Atom) []Atom {
	out := make([]Atom, 0, len(atoms))
	seen := make(map[string]bool, len(atoms))

	for _, a := range atoms {
		n := refine(a)
		key := dedupKey(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// refine produces the superseding copy of one atom with whitespace
// collapsed, punctuation trimmed, and empty conditions dropped.
func refine(a Atom) Atom {
	n := a // copy; a is never touched
	n.Actor = cleanField(a.Actor)
	n.Action = cleanField(a.Action)
	n.Object = cleanField(a.Object)
	n.Scope.Time = cleanField(a.Scope.Time)
	n.Scope.Place = cleanField(a.Scope.Place)
	n.Scope.Context = cleanField(a.Scope.Context)

	if len(a.Conditions) > 0 {
		n.Conditions = make([]Condition, 0, len(a.Conditions))
		for _, c := range a.Conditions {
			c.Text = cleanField(c.Text)
			if c.Text != "" {
				n.Conditions = append(n.Conditions, c)
			}
		}
	}
	return n
}

// dedupKey serializes the normalized fields that make two atoms of one
// clause indistinguishable.
func dedupKey(a Atom) string {
	var b strings.Builder
	b.WriteString(a.ClauseID)
	b.WriteByte('|')
	b.WriteString(a.Type.String())
	b.WriteByte('|')
	b.WriteString(a.ModalityTrigger)
	b.WriteByte('|')
	b.WriteString(a.Actor)
	b.WriteByte('|')
	b.WriteString(a.Action)
	b.WriteByte('|')
	b.WriteString(a.Object)
	for _, c := range a.Conditions {
		b.WriteByte('|')
		b.WriteString(string(c.Type))
		b.WriteByte(':')
		b.WriteString(c.Text)
	}
	return b.String()
}

// cleanField trims punctuation and collapses interior whitespace.
func cleanField(s string) string {
	s = strings.Trim(s, ` .,;:"'`)
	return strings.Join(strings.Fields(s), " ")
}

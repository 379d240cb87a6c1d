// Package obligation extracts normative obligation atoms from the logic
// tree, clause by clause, and computes their stable content-addressable
// identity (OBL-ID). Extraction never scans the whole document: every
// field of an atom originates from one bounded clause span, and no atom
// is mutated after emission — refinement always produces a superseding
// copy.
package obligation

import (
	"github.com/danharker/lexsem/lexicon"
	"github.com/danharker/lexsem/token"
)

// Type is the normative force of an obligation atom.
type Type int

const (
	Obligation Type = iota
	Permission
	Prohibition
	Exclusion
)

// String returns the serialized type label.
func (t Type) String() string {
	switch t {
	case Obligation:
		return "obligation"
	case Permission:
		return "permission"
	case Prohibition:
		return "prohibition"
	case Exclusion:
		return "exclusion"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the type as its label.
func (t Type) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// typeOf maps a lexicon modal class to an atom type.
func typeOf(c lexicon.ModalClass) Type {
	switch c {
	case lexicon.ModalPermission:
		return Permission
	case lexicon.ModalProhibition:
		return Prohibition
	case lexicon.ModalExclusion:
		return Exclusion
	default:
		return Obligation
	}
}

// Condition is a typed condition span attached to an atom. The text is
// kept separate from the action text, never merged into it.
type Condition struct {
	Type lexicon.ConditionType `json:"type"`
	Text string                `json:"text"`
	Span token.Span            `json:"span"`
}

// Scope holds optional time/place/context phrases. Scope is
// attachment-only: it never gates whether the obligation exists.
type Scope struct {
	Time    string `json:"time,omitempty"`
	Place   string `json:"place,omitempty"`
	Context string `json:"context,omitempty"`
}

// Lifecycle holds explicit activation and termination trigger phrases.
// Both attach only on explicit lifecycle phrasing in the clause; absent
// phrasing means absent triggers, never an inferred "active now".
type Lifecycle struct {
	ActivationTrigger  string `json:"activation_trigger,omitempty"`
	TerminationTrigger string `json:"termination_trigger,omitempty"`
}

// Provenance records where an atom came from, for display and debugging
// only. It never participates in identity.
type Provenance struct {
	ClauseID string `json:"clause_id"`
	Page     int    `json:"page,omitempty"`
	Source   string `json:"source"`
}

// Atom is one extracted obligation. Optional bindings that are disabled
// or unresolvable stay empty; an empty actor or action never suppresses
// the atom itself.
type Atom struct {
	Type            Type        `json:"type"`
	ModalityTrigger string      `json:"modality_trigger"`
	ClauseID        string      `json:"clause_id"`
	Actor           string      `json:"actor,omitempty"`
	Action          string      `json:"action,omitempty"`
	Object          string      `json:"object,omitempty"`
	Conditions      []Condition `json:"conditions,omitempty"`
	Scope           Scope       `json:"scope"`
	Lifecycle       Lifecycle   `json:"lifecycle"`
	// ReferenceIdentities holds the CR-ID hashes of references found in
	// the same clause — never in a sibling clause. Sorted.
	ReferenceIdentities []string   `json:"reference_identities,omitempty"`
	Span                token.Span `json:"span"`
	Provenance          Provenance `json:"provenance"`

	// TraceID identifies the raw extraction this atom descends from.
	// Refinement is strictly many-to-one: every refined atom traces to
	// exactly one raw atom.
	TraceID int `json:"-"`
}

package obligation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/danharker/lexsem/lexicon"
)

// IdentityVersion names the normalization rules behind the OBL-ID hash.
// Rule changes require a new version constant so stored hashes stay
// reproducible.
const IdentityVersion = "obl_id_v1"

// Identity is the content-addressable obligation identity (OBL-ID).
type Identity struct {
	Hash string `json:"identity_hash"`
}

// IdentitySet computes OBL-IDs for a document revision's atoms. The
// hash covers only normalized semantic fields — type, canonical
// modality, bindings, ordered condition types, sorted reference
// identities — never raw page numbers, clause labels, or formatting.
// Position enters the hash only as a per-duplicate occurrence index, so
// renumbering or reordering clauses with identical semantic content
// leaves every hash unchanged while genuine duplicate obligations stay
// distinguishable.
func IdentitySet(atoms []Atom) []Identity {
	occurrence := make(map[string]int, len(atoms))
	out := make([]Identity, len(atoms))
	for i, a := range atoms {
		base := fieldTuple(a)
		dup := occurrence[base]
		occurrence[base] = dup + 1

		h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", IdentityVersion, base, dup)))
		out[i] = Identity{Hash: hex.EncodeToString(h[:16])}
	}
	return out
}

// IdentityOf computes the OBL-ID of a single atom with occurrence
// index zero. Use IdentitySet for whole revisions so duplicates
// disambiguate correctly.
func IdentityOf(a Atom) Identity {
	return IdentitySet([]Atom{a})[0]
}

// fieldTuple serializes the hashed fields in canonical order.
func fieldTuple(a Atom) string {
	condTypes := make([]string, len(a.Conditions))
	for i, c := range a.Conditions {
		condTypes[i] = string(c.Type)
	}
	return strings.Join([]string{
		a.Type.String(),
		CanonicalModality(a.ModalityTrigger),
		a.Actor,
		a.Action,
		a.Object,
		strings.Join(condTypes, ","),
		strings.Join(a.ReferenceIdentities, ","),
		a.Scope.Time, a.Scope.Place, a.Scope.Context,
		a.Lifecycle.ActivationTrigger, a.Lifecycle.TerminationTrigger,
	}, "|")
}

// CanonicalModality maps a folded surface trigger to its canonical form
// ("shall not" → "must not") so equivalent triggers hash alike.
func CanonicalModality(trigger string) string {
	words := strings.Fields(trigger)
	for _, mt := range lexicon.ModalTriggers {
		if len(mt.Phrase) == len(words) && lexicon.MatchPhrase(words, 0, mt.Phrase) {
			return mt.Canonical
		}
	}
	return trigger
}

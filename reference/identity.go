package reference

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// IdentityVersion names the canonicalization rules behind the hash.
// Changing any normalization rule requires a new version constant and a
// new identity function, preserving reproducibility of stored hashes.
const IdentityVersion = "cr_id_v1"

// Identity is the content-addressable reference identity (CR-ID).
type Identity struct {
	Hash         string `json:"identity_hash"`
	FamilyKey    string `json:"family_key"`
	Year         int    `json:"year,omitempty"`
	Jurisdiction string `json:"jurisdiction_hint,omitempty"`
}

// Provenance records where a reference identity came from. It is
// attached for debugging and display only: dropping it changes neither
// the identity hash nor any diff output.
type Provenance struct {
	ClauseID   string `json:"clause_id"`
	Page       int    `json:"page,omitempty"`
	Source     string `json:"source"`
	AnchorUsed string `json:"anchor_used,omitempty"`
}

// Identified pairs an identity with its provenance for export
// (reference.identity.v1 payloads).
type Identified struct {
	Identity
	Provenance Provenance `json:"provenance"`
}

// IdentityOf computes the CR-ID of a reference. It is a pure function
// of the canonicalized fields: identical canonical input always yields
// an identical hash, and the family key (never free text) is what
// enters the hash, so distinct act families cannot collide.
func IdentityOf(r Reference) Identity {
	c := Canonicalize(r)
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%04d|%s",
		IdentityVersion, c.FamilyKey, c.Year, c.Jurisdiction)))
	return Identity{
		Hash:         hex.EncodeToString(h[:16]),
		FamilyKey:    c.FamilyKey,
		Year:         c.Year,
		Jurisdiction: c.Jurisdiction,
	}
}

// IdentifyAll computes identities with provenance for a slice of
// extracted references, in input order.
func IdentifyAll(refs []Reference, source string) []Identified {
	out := make([]Identified, 0, len(refs))
	for _, r := range refs {
		out = append(out, Identified{
			Identity: IdentityOf(r),
			Provenance: Provenance{
				ClauseID:   r.ClauseID,
				Source:     source,
				AnchorUsed: r.CitationText,
			},
		})
	}
	return out
}

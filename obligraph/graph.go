// Package obligraph projects extracted obligations into a directed
// graph. Edges exist only where a literal textual trigger exists in the
// source: absence of a trigger means absence of an edge, and nothing is
// ever inferred from proximity or similarity.
package obligraph

import (
	"sort"

	"github.com/danharker/lexsem/logictree"
	"github.com/danharker/lexsem/obligation"
	"github.com/danharker/lexsem/reference"
)

// PayloadVersion identifies the serialized graph format.
const PayloadVersion = "obligation.crossdoc.v2"

// Intra-document edge kinds.
const (
	KindConditionalOn = "conditional_on"
	KindExceptionTo   = "exception_to"
	KindDependsOn     = "depends_on"
)

// Node is one distinct obligation observed in the graph.
type Node struct {
	OblID    string `json:"obl_id"`
	SourceID string `json:"source_id"`
	ClauseID string `json:"clause_id"`
}

// EdgeProvenance locates the trigger that produced an edge.
type EdgeProvenance struct {
	ClauseID string `json:"clause_id"`
	Source   string `json:"source"`
}

// Edge links two obligations. Text is the literal trigger span that
// justified the edge.
type Edge struct {
	Kind       string         `json:"kind"`
	From       string         `json:"from"`
	To         string         `json:"to"`
	Text       string         `json:"text"`
	Provenance EdgeProvenance `json:"provenance"`
}

// Diagnostic records a trigger that matched but produced no edge, with
// the reason. Grammar violations are data, not errors.
type Diagnostic struct {
	Code     string `json:"code"`
	ClauseID string `json:"clause_id"`
	Text     string `json:"text"`
}

// Diagnostic reason codes.
const (
	DiagForbiddenMarker    = "forbidden_marker"
	DiagUnresolvedTarget   = "unresolved_target"
	DiagNoSourceObligation = "no_source_obligation"
)

// Graph is the projected obligation graph for one primary revision,
// possibly with cross-document edges into a corpus.
type Graph struct {
	Nodes       []Node       `json:"nodes"`
	Edges       []Edge       `json:"edges"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	// Cycles lists strongly connected components with more than one
	// member (or a self loop), each sorted and the list sorted by its
	// first member. Cycles are detected and flagged, never pruned.
	Cycles [][]string `json:"cycles,omitempty"`
}

// Payload is the obligation.crossdoc.v2 export shape: nodes sorted by
// OBL-ID, edges sorted by (kind, from, to).
type Payload struct {
	Version     string       `json:"version"`
	Nodes       []Node       `json:"nodes"`
	Edges       []Edge       `json:"edges"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Cycles      [][]string   `json:"cycles,omitempty"`
}

// Export produces the deterministically ordered payload.
func (g *Graph) Export() Payload {
	nodes := append([]Node(nil), g.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].OblID < nodes[j].OblID })

	edges := append([]Edge(nil), g.Edges...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Kind != edges[j].Kind {
			return edges[i].Kind < edges[j].Kind
		}
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	diags := append([]Diagnostic(nil), g.Diagnostics...)
	sort.Slice(diags, func(i, j int) bool {
		if diags[i].Code != diags[j].Code {
			return diags[i].Code < diags[j].Code
		}
		if diags[i].ClauseID != diags[j].ClauseID {
			return diags[i].ClauseID < diags[j].ClauseID
		}
		return diags[i].Text < diags[j].Text
	})

	return Payload{
		Version:     PayloadVersion,
		Nodes:       nodes,
		Edges:       edges,
		Diagnostics: diags,
		Cycles:      g.Cycles,
	}
}

// Source bundles one analyzed document revision for projection. The
// caller supplies FamilyKey (the instrument family this document is
// known as in the corpus) so that external citations can resolve to it.
type Source struct {
	DocID     string
	RevID     string
	FamilyKey string
	Tree      *logictree.Tree
	Refs      []reference.Reference
	Atoms     []obligation.Atom
	IDs       []obligation.Identity
}

// oblAt returns the OBL-IDs of atoms in the given clause, in atom order.
func (s *Source) oblAt(clauseID string) []string {
	var out []string
	for i, a := range s.Atoms {
		if a.ClauseID == clauseID {
			out = append(out, s.IDs[i].Hash)
		}
	}
	return out
}

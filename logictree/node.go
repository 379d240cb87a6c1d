// Package logictree builds the typed, span-anchored structural parse of a
// legal document revision: ROOT → CLAUSE → {CONDITION, MODAL, EXCEPTION,
// REFERENCE, TOKEN}. The build is total and deterministic — identical
// token streams yield byte-identical trees, node IDs included.
package logictree

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/danharker/lexsem/token"
)

// NodeType is the closed set of logic-tree node types. Consumers switch
// exhaustively over it; adding a type is a compile-visible change.
type NodeType int

const (
	Root NodeType = iota
	Clause
	Condition
	Modal
	Exception
	Reference
	TokenLeaf
)

// String returns the serialized node type label.
func (t NodeType) String() string {
	switch t {
	case Root:
		return "ROOT"
	case Clause:
		return "CLAUSE"
	case Condition:
		return "CONDITION"
	case Modal:
		return "MODAL"
	case Exception:
		return "EXCEPTION"
	case Reference:
		return "REFERENCE"
	case TokenLeaf:
		return "TOKEN"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON serializes the node type as its label.
func (t NodeType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// Node is one node of the logic tree. Children are ordered by span start
// and are contained, non-overlapping, within the parent span.
type Node struct {
	ID       string     `json:"node_id"`
	Type     NodeType   `json:"node_type"`
	Span     token.Span `json:"span"`
	Children []*Node    `json:"children,omitempty"`

	// Marker carries the folded trigger that produced the node, e.g.
	// "unless" for a CONDITION or "must not" for a MODAL. Empty for
	// structural nodes. Not part of the node identity.
	Marker string `json:"marker,omitempty"`
}

// EdgeType distinguishes containment from ordering edges.
type EdgeType int

const (
	// Structural edges form the containment tree: exactly one parent
	// per non-ROOT node.
	Structural EdgeType = iota
	// Sequence edges are a non-constraining total order hint over
	// clauses. They must never be used to infer meaning.
	Sequence
)

// String returns the serialized edge type label.
func (t EdgeType) String() string {
	if t == Sequence {
		return "SEQUENCE"
	}
	return "STRUCTURAL"
}

// MarshalJSON serializes the edge type as its label.
func (t EdgeType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// Edge links two nodes by ID.
type Edge struct {
	Type     EdgeType `json:"type"`
	SourceID string   `json:"source_id"`
	TargetID string   `json:"target_id"`
}

// Tree is the complete structural parse of one document revision.
type Tree struct {
	DocID string `json:"doc_id"`
	RevID string `json:"rev_id"`
	Root  *Node  `json:"root"`

	stream *token.Stream
}

// Stream returns the token stream the tree was built from.
func (t *Tree) Stream() *token.Stream { return t.stream }

// Clauses returns the CLAUSE nodes in document order.
func (t *Tree) Clauses() []*Node {
	var out []*Node
	for _, c := range t.Root.Children {
		if c.Type == Clause {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits nodes depth-first in span order, root included.
func (t *Tree) Walk(fn func(n *Node)) {
	var visit func(n *Node)
	visit = func(n *Node) {
		fn(n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(t.Root)
}

// Edges derives the edge list: STRUCTURAL containment edges in walk
// order plus SEQUENCE edges chaining the clauses in document order.
func (t *Tree) Edges() []Edge {
	var edges []Edge
	var visit func(n *Node)
	visit = func(n *Node) {
		for _, c := range n.Children {
			edges = append(edges, Edge{Type: Structural, SourceID: n.ID, TargetID: c.ID})
			visit(c)
		}
	}
	visit(t.Root)

	clauses := t.Clauses()
	for i := 1; i < len(clauses); i++ {
		edges = append(edges, Edge{Type: Sequence, SourceID: clauses[i-1].ID, TargetID: clauses[i].ID})
	}
	return edges
}

// nodeID derives the deterministic node identifier from position, not
// allocation order: the same (doc, rev, type, span) always produces the
// same ID.
func nodeID(typ NodeType, sp token.Span) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d|%d|%s",
		sp.DocID, sp.RevID, typ, sp.Start, sp.End, sp.Source)))
	return "n_" + hex.EncodeToString(h[:8])
}

// newNode constructs a node with its derived ID.
func newNode(typ NodeType, sp token.Span) *Node {
	return &Node{ID: nodeID(typ, sp), Type: typ, Span: sp}
}

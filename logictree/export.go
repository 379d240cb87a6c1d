package logictree

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/danharker/lexsem/token"
)

// PayloadVersion identifies the serialized tree format.
const PayloadVersion = "logic-tree-v1"

// FlatNode is one node of the serialized tree payload.
type FlatNode struct {
	ID       string     `json:"node_id"`
	Type     NodeType   `json:"node_type"`
	Span     token.Span `json:"span"`
	Marker   string     `json:"marker,omitempty"`
	ParentID string     `json:"parent_id,omitempty"`
}

// Payload is the logic-tree-v1 export shape.
type Payload struct {
	Version string     `json:"version"`
	DocID   string     `json:"doc_id"`
	RevID   string     `json:"rev_id"`
	Nodes   []FlatNode `json:"nodes"`
	Edges   []Edge     `json:"edges"`
}

// Export flattens the tree into its order-stable payload: nodes sorted
// by (span start, span end desc, type), edges in derivation order.
func (t *Tree) Export() Payload {
	var nodes []FlatNode
	var visit func(n *Node, parent string)
	visit = func(n *Node, parent string) {
		nodes = append(nodes, FlatNode{
			ID:       n.ID,
			Type:     n.Type,
			Span:     n.Span,
			Marker:   n.Marker,
			ParentID: parent,
		})
		for _, c := range n.Children {
			visit(c, n.ID)
		}
	}
	visit(t.Root, "")

	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Span.Start != nodes[j].Span.Start {
			return nodes[i].Span.Start < nodes[j].Span.Start
		}
		if nodes[i].Span.End != nodes[j].Span.End {
			return nodes[i].Span.End > nodes[j].Span.End
		}
		return nodes[i].Type < nodes[j].Type
	})

	return Payload{
		Version: PayloadVersion,
		DocID:   t.DocID,
		RevID:   t.RevID,
		Nodes:   nodes,
		Edges:   t.Edges(),
	}
}

// MarshalJSON serializes the stable payload.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Export())
}

// DOT renders the tree in Graphviz format, children ordered by span
// start, for debugging and documentation.
func (t *Tree) DOT() string {
	var b strings.Builder
	b.WriteString("digraph logictree {\n")
	b.WriteString("  rankdir=TB;\n  node [shape=box, fontname=\"Helvetica\"];\n")

	t.Walk(func(n *Node) {
		label := fmt.Sprintf("%s\\n[%d,%d)", n.Type, n.Span.Start, n.Span.End)
		if n.Marker != "" {
			label += "\\n" + n.Marker
		}
		fmt.Fprintf(&b, "  %q [label=%q];\n", n.ID, label)
	})
	t.Walk(func(n *Node) {
		for _, c := range n.Children {
			fmt.Fprintf(&b, "  %q -> %q;\n", n.ID, c.ID)
		}
	})

	clauses := t.Clauses()
	for i := 1; i < len(clauses); i++ {
		fmt.Fprintf(&b, "  %q -> %q [style=dashed, constraint=false];\n",
			clauses[i-1].ID, clauses[i].ID)
	}

	b.WriteString("}\n")
	return b.String()
}

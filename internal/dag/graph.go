// Package dag orders the records of a unit by their value dependencies.
package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

type NodeID uint32

// Graph is a dependency graph over nodes 0..n-1. An edge from -> to means
// "from must be laid out before to".
type Graph struct {
	Names []string   // node names, in declaration order
	Edges [][]NodeID // Edges[from] = []to
	Indeg []int
}

// New allocates a graph with one node per name. Node ids follow the order of
// names.
func New(names []string) *Graph {
	return &Graph{
		Names: append([]string(nil), names...),
		Edges: make([][]NodeID, len(names)),
		Indeg: make([]int, len(names)),
	}
}

func (g *Graph) Len() int { return len(g.Names) }

// ID converts a slice index into a NodeID.
func ID(i int) NodeID {
	id, err := safecast.Conv[NodeID](i)
	if err != nil {
		panic(fmt.Errorf("node id overflow: %w", err))
	}
	return id
}

// AddEdge records that from must precede to. Duplicate edges are ignored;
// self edges are kept so that the node ends up on a cycle.
func (g *Graph) AddEdge(from, to NodeID) {
	if slices.Contains(g.Edges[from], to) {
		return
	}
	g.Edges[from] = append(g.Edges[from], to)
	g.Indeg[to]++
}

// Name returns the name of id.
func (g *Graph) Name(id NodeID) string {
	return g.Names[int(id)]
}

// NamesOf maps ids to node names.
func (g *Graph) NamesOf(ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.Names[int(id)]
	}
	return out
}

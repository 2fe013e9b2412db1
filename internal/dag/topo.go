package dag

import (
	"slices"
)

type Topo struct {
	Order  []NodeID // linear order; lowest ready id first
	Cyclic bool
	Cycles []NodeID // nodes left with unresolved dependencies
}

// ToposortKahn orders g. Among ready nodes the lowest id is always taken
// first, so the order only depends on declaration order.
func ToposortKahn(g *Graph) *Topo {
	n := g.Len()
	indeg := make([]int, n)
	copy(indeg, g.Indeg)

	topo := &Topo{Order: make([]NodeID, 0, n)}

	ready := make([]NodeID, 0, n)
	for i := range n {
		if indeg[i] == 0 {
			ready = append(ready, ID(i))
		}
	}

	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		topo.Order = append(topo.Order, id)

		for _, to := range g.Edges[int(id)] {
			indeg[int(to)]--
			if indeg[int(to)] == 0 {
				pos, _ := slices.BinarySearch(ready, to)
				ready = slices.Insert(ready, pos, to)
			}
		}
	}
	if len(topo.Order) != n {
		topo.Cyclic = true
		for i := range n {
			if indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, ID(i))
			}
		}
	}
	return topo
}

// FindCycle returns one closed path through the unresolved nodes of topo,
// starting at the lowest such node. The first node is not repeated at the
// end. It returns nil when topo is acyclic.
func FindCycle(g *Graph, topo *Topo) []NodeID {
	if topo == nil || !topo.Cyclic {
		return nil
	}
	return findCycleIn(g, topo.Cycles)
}

// Cycles returns every disjoint cycle among the unresolved nodes of topo.
// Nodes that only depend on a cycle are not reported.
func Cycles(g *Graph, topo *Topo) [][]NodeID {
	if topo == nil || !topo.Cyclic {
		return nil
	}
	remaining := append([]NodeID(nil), topo.Cycles...)
	var out [][]NodeID
	for len(remaining) > 0 {
		cycle := findCycleIn(g, remaining)
		if len(cycle) == 0 {
			break
		}
		out = append(out, cycle)
		remaining = slices.DeleteFunc(remaining, func(id NodeID) bool {
			return slices.Contains(cycle, id)
		})
	}
	return out
}

func findCycleIn(g *Graph, nodes []NodeID) []NodeID {
	if len(nodes) == 0 {
		return nil
	}
	stuck := make(map[NodeID]bool, len(nodes))
	for _, id := range nodes {
		stuck[id] = true
	}

	const (
		white = iota
		grey
		black
	)
	color := make(map[NodeID]int, len(nodes))
	var stack []NodeID
	var found []NodeID

	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		color[id] = grey
		stack = append(stack, id)
		for _, to := range g.Edges[int(id)] {
			if !stuck[to] {
				continue
			}
			switch color[to] {
			case grey:
				start := slices.Index(stack, to)
				found = append([]NodeID(nil), stack[start:]...)
				return true
			case white:
				if visit(to) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range nodes {
		if color[id] == white && visit(id) {
			break
		}
	}
	return rotateToMin(found)
}

func rotateToMin(cycle []NodeID) []NodeID {
	if len(cycle) == 0 {
		return cycle
	}
	minAt := 0
	for i, id := range cycle {
		if id < cycle[minAt] {
			minAt = i
		}
	}
	return append(cycle[minAt:], cycle[:minAt]...)
}

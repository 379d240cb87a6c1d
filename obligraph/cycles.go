package obligraph

import "sort"

// findCycles detects strongly connected components over the edge set
// using an iterative Tarjan traversal (no recursion, so pathological
// documents cannot blow the stack). Components with more than one
// member, or a single member with a self loop, are reported as cycles.
// Members are sorted within each cycle and cycles are sorted by first
// member, keeping the payload deterministic.
func findCycles(g *Graph) [][]string {
	ids := make([]string, 0, len(g.Nodes))
	index := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, ok := index[n.OblID]; !ok {
			index[n.OblID] = len(ids)
			ids = append(ids, n.OblID)
		}
	}

	adj := make([][]int, len(ids))
	selfLoop := make([]bool, len(ids))
	for _, e := range g.Edges {
		fi, okF := index[e.From]
		ti, okT := index[e.To]
		if !okF || !okT {
			continue
		}
		if fi == ti {
			selfLoop[fi] = true
			continue
		}
		adj[fi] = append(adj[fi], ti)
	}

	const unvisited = -1
	idx := make([]int, len(ids))
	low := make([]int, len(ids))
	onStack := make([]bool, len(ids))
	for i := range idx {
		idx[i] = unvisited
	}

	var (
		counter int
		stack   []int
		sccs    [][]int
	)

	// frame holds the explicit DFS state: node and the position within
	// its adjacency list.
	type frame struct{ node, next int }

	for start := range ids {
		if idx[start] != unvisited {
			continue
		}
		frames := []frame{{node: start}}
		idx[start], low[start] = counter, counter
		counter++
		stack = append(stack, start)
		onStack[start] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			if f.next < len(adj[f.node]) {
				next := adj[f.node][f.next]
				f.next++
				if idx[next] == unvisited {
					idx[next], low[next] = counter, counter
					counter++
					stack = append(stack, next)
					onStack[next] = true
					frames = append(frames, frame{node: next})
				} else if onStack[next] && idx[next] < low[f.node] {
					low[f.node] = idx[next]
				}
				continue
			}

			// Node finished: close its component if it is a root.
			node := f.node
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].node
				if low[node] < low[parent] {
					low[parent] = low[node]
				}
			}
			if low[node] == idx[node] {
				var comp []int
				for {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[top] = false
					comp = append(comp, top)
					if top == node {
						break
					}
				}
				sccs = append(sccs, comp)
			}
		}
	}

	var cycles [][]string
	for _, comp := range sccs {
		if len(comp) < 2 && !selfLoop[comp[0]] {
			continue
		}
		members := make([]string, len(comp))
		for i, n := range comp {
			members[i] = ids[n]
		}
		sort.Strings(members)
		cycles = append(cycles, members)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

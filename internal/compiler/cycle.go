package compiler

import "sort"

// findDeckCycle runs Tarjan's SCC algorithm over the deck-reference
// graph and returns one cycle path when the graph is not a DAG. Unlike
// runtime cycle detection, a deck cycle is always an error: inlining
// would never terminate.
func findDeckCycle(decks map[string]deckExpr) []string {
	graph := make(map[string][]string, len(decks))
	names := make([]string, 0, len(decks))
	for name, expr := range decks {
		refs := deckRefsOf(expr)
		sort.Strings(refs)
		graph[name] = refs
		names = append(names, name)
	}
	sort.Strings(names)

	for _, scc := range tarjanSCC(names, graph) {
		if len(scc) > 1 {
			// Close the loop for display.
			return append(scc, scc[0])
		}
		if len(scc) == 1 && hasSelfLoop(scc[0], graph) {
			return []string{scc[0], scc[0]}
		}
	}
	return nil
}

func hasSelfLoop(node string, graph map[string][]string) bool {
	for _, next := range graph[node] {
		if next == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components. Single nodes without
// self-loops are not cycles.
func tarjanSCC(names []string, graph map[string][]string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range names {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

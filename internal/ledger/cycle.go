package ledger

import "github.com/roach88/mnemos/internal/ir"

// findCycle checks whether origin can reach itself through the dependency
// index once its outgoing edges are replaced by candidate. Returns the
// cycle path [origin, ..., origin], or nil when the graph stays acyclic.
//
// The committed graph is a DAG, so any cycle the candidate would close
// must pass through origin; a DFS from origin's candidate edges that
// looks for origin is therefore complete.
func (e *Engine[T, M]) findCycle(origin ir.Key, candidate ir.RefMap) []ir.Key {
	direct := candidate.Merged()
	if direct.Has(origin) {
		return []ir.Key{origin, origin}
	}

	visited := make(ir.KeySet)
	parent := make(map[ir.Key]ir.Key)

	// buildPath reconstructs origin -> ... -> node -> origin from the
	// parent pointers laid down by the DFS.
	buildPath := func(node ir.Key) []ir.Key {
		var rev []ir.Key
		for cur := node; cur != origin; cur = parent[cur] {
			rev = append(rev, cur)
		}
		path := make([]ir.Key, 0, len(rev)+2)
		path = append(path, origin)
		for i := len(rev) - 1; i >= 0; i-- {
			path = append(path, rev[i])
		}
		return append(path, origin)
	}

	var dfs func(node ir.Key) []ir.Key
	dfs = func(node ir.Key) []ir.Key {
		for _, next := range e.deps[node].Merged().Sorted() {
			if next == origin {
				return buildPath(node)
			}
			if visited.Has(next) {
				continue
			}
			visited.Add(next)
			parent[next] = node
			if path := dfs(next); path != nil {
				return path
			}
		}
		return nil
	}

	for _, next := range direct.Sorted() {
		if visited.Has(next) {
			continue
		}
		visited.Add(next)
		parent[next] = origin
		if path := dfs(next); path != nil {
			return path
		}
	}
	return nil
}

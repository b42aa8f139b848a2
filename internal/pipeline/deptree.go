package pipeline

import (
	"fmt"
	"sort"

	"repolens/internal/analysis"
)

// buildDependencyTree assembles an acyclic tree from raw import edges. An
// edge whose addition would close a cycle is dropped from the tree, but the
// drop is recorded so the circular-dependency report states it explicitly
// instead of silently under-reporting.
func buildDependencyTree(root string, nodes []analysis.DependencyNode) (analysis.DependencyTree, []analysis.CircularDependency) {
	adj := map[string][]string{}
	var dropped []analysis.CircularDependency

	ordered := make([]analysis.DependencyNode, len(nodes))
	copy(ordered, nodes)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Path < ordered[j].Path })

	for _, n := range ordered {
		imports := make([]string, len(n.Imports))
		copy(imports, n.Imports)
		sort.Strings(imports)
		for _, imp := range imports {
			if imp == n.Path || reaches(adj, imp, n.Path) {
				dropped = append(dropped, analysis.CircularDependency{
					From:    n.Path,
					To:      imp,
					Dropped: true,
					Note:    fmt.Sprintf("edge %s -> %s omitted from the tree to keep it acyclic", n.Path, imp),
				})
				continue
			}
			adj[n.Path] = append(adj[n.Path], imp)
		}
	}

	keys := make([]string, 0, len(adj))
	for k := range adj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tree := analysis.DependencyTree{Root: root}
	for _, k := range keys {
		tree.Nodes = append(tree.Nodes, analysis.DependencyNode{Path: k, Imports: adj[k]})
	}
	return tree, dropped
}

// reaches reports whether to is reachable from from in adj.
func reaches(adj map[string][]string, from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, adj[cur]...)
	}
	return false
}

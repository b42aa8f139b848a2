package pipeline

import (
	"testing"

	"repolens/internal/analysis"
)

func TestBuildDependencyTree_Acyclic(t *testing.T) {
	nodes := []analysis.DependencyNode{
		{Path: "cmd/api", Imports: []string{"internal/server"}},
		{Path: "internal/server", Imports: []string{"internal/store"}},
	}
	tree, circular := buildDependencyTree("demo", nodes)
	if len(circular) != 0 {
		t.Fatalf("unexpected circular edges: %v", circular)
	}
	if tree.Root != "demo" || len(tree.Nodes) != 2 {
		t.Fatalf("tree: %+v", tree)
	}
}

func TestBuildDependencyTree_DropsAndFlagsCircularEdge(t *testing.T) {
	nodes := []analysis.DependencyNode{
		{Path: "a", Imports: []string{"b"}},
		{Path: "b", Imports: []string{"c"}},
		{Path: "c", Imports: []string{"a"}}, // closes the cycle
	}
	tree, circular := buildDependencyTree("demo", nodes)
	if len(circular) != 1 {
		t.Fatalf("expected exactly one dropped edge, got %v", circular)
	}
	edge := circular[0]
	if edge.From != "c" || edge.To != "a" {
		t.Fatalf("wrong edge dropped: %+v", edge)
	}
	if !edge.Dropped || edge.Note == "" {
		t.Fatalf("dropped edge must be flagged explicitly: %+v", edge)
	}
	// The kept tree must stay acyclic and keep the other edges.
	adj := map[string][]string{}
	for _, n := range tree.Nodes {
		adj[n.Path] = n.Imports
	}
	if reaches(adj, "c", "a") {
		t.Fatal("tree still cyclic")
	}
	if !reaches(adj, "a", "c") {
		t.Fatal("non-circular edges were lost")
	}
}

func TestBuildDependencyTree_SelfImport(t *testing.T) {
	nodes := []analysis.DependencyNode{{Path: "a", Imports: []string{"a"}}}
	tree, circular := buildDependencyTree("demo", nodes)
	if len(tree.Nodes) != 0 {
		t.Fatalf("self edge must not enter the tree: %+v", tree.Nodes)
	}
	if len(circular) != 1 || circular[0].From != "a" || circular[0].To != "a" {
		t.Fatalf("self edge must be reported: %v", circular)
	}
}

func TestBuildDependencyTree_Deterministic(t *testing.T) {
	nodes := []analysis.DependencyNode{
		{Path: "b", Imports: []string{"c", "a"}},
		{Path: "a", Imports: []string{"c"}},
	}
	first, _ := buildDependencyTree("demo", nodes)
	for i := 0; i < 5; i++ {
		again, _ := buildDependencyTree("demo", nodes)
		if len(again.Nodes) != len(first.Nodes) {
			t.Fatal("node count varies")
		}
		for j := range first.Nodes {
			if again.Nodes[j].Path != first.Nodes[j].Path {
				t.Fatalf("order varies: %+v vs %+v", again.Nodes, first.Nodes)
			}
		}
	}
}

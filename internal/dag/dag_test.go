// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  []string
	}{
		{name: "empty", want: nil},
		{name: "single", nodes: []string{"core"}, want: []string{"core"}},
		{
			name:  "independent nodes keep insertion order",
			nodes: []string{"core", "bmm", "cis"},
			want:  []string{"core", "bmm", "cis"},
		},
		{
			name:  "dependency moves ahead",
			nodes: []string{"core", "bmm", "cis"},
			edges: [][2]string{{"core", "bmm"}, {"cis", "bmm"}},
			want:  []string{"core", "cis", "bmm"},
		},
		{
			name:  "duplicate edges are ignored",
			edges: [][2]string{{"a", "b"}, {"a", "b"}},
			want:  []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New()
			for _, n := range tt.nodes {
				g.AddNode(n)
			}
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}
			got, err := g.TopologicalSort()
			if err != nil {
				t.Fatalf("TopologicalSort() error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("TopologicalSort() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopologicalSortCycle(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode("core")
	g.AddEdge("core", "a")
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")

	_, err := g.TopologicalSort()
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("TopologicalSort() error = %v, want ErrCycle", err)
	}
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("error is not a *CycleError: %v", err)
	}
	want := []string{"a", "b", "c", "a"}
	if !slices.Equal(ce.Path, want) {
		t.Errorf("Path = %v, want %v", ce.Path, want)
	}
	if got := ce.Error(); got != "dependency cycle detected: a -> b -> c -> a" {
		t.Errorf("Error() = %q", got)
	}
}

func TestSelfLoop(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddEdge("a", "a")
	_, err := g.TopologicalSort()
	var ce *CycleError
	if !errors.As(err, &ce) || !slices.Equal(ce.Path, []string{"a", "a"}) {
		t.Errorf("self loop error = %v", err)
	}
}

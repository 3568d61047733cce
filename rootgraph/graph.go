package rootgraph

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Sentinel errors for graph construction and traversal.
var (
	// ErrEmptyVertexID indicates an empty vertex identifier.
	ErrEmptyVertexID = errors.New("rootgraph: vertex ID is empty")

	// ErrVertexNotFound indicates a missing vertex.
	ErrVertexNotFound = errors.New("rootgraph: vertex not found")

	// ErrOptionViolation indicates an invalid traversal option.
	ErrOptionViolation = errors.New("rootgraph: invalid option supplied")

	// ErrUnreachable indicates no path between two vertices.
	ErrUnreachable = errors.New("rootgraph: vertex unreachable")
)

// Edge weights of the diatonic root graph.
const (
	FifthWeight = 1.0
	ThirdWeight = 0.7
)

// Graph is an undirected weighted graph keyed by string IDs.
type Graph struct {
	mu  sync.RWMutex
	adj map[string]map[string]float64
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{adj: make(map[string]map[string]float64)}
}

// Diatonic returns the root graph over degrees 1..7.
func Diatonic() *Graph {
	g := New()
	for d := 1; d <= 7; d++ {
		_ = g.AddVertex(ID(d))
	}
	for a := 1; a <= 7; a++ {
		for b := a + 1; b <= 7; b++ {
			switch (b - a) % 7 {
			case 2, 5: // third up or down
				_ = g.AddEdge(ID(a), ID(b), ThirdWeight)
			case 3, 4: // fourth or fifth
				_ = g.AddEdge(ID(a), ID(b), FifthWeight)
			}
		}
	}

	return g
}

// ID returns the vertex ID of a scale degree.
func ID(degree int) string { return strconv.Itoa(degree) }

// Degree parses a vertex ID back into a scale degree.
func Degree(id string) (int, error) {
	d, err := strconv.Atoi(id)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrVertexNotFound, id)
	}

	return d, nil
}

// AddVertex inserts id if absent.
func (g *Graph) AddVertex(id string) error {
	if id == "" {
		return ErrEmptyVertexID
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = make(map[string]float64)
	}

	return nil
}

// AddEdge connects a and b with weight w, creating missing vertices.
// Re-adding an edge overwrites its weight.
func (g *Graph) AddEdge(a, b string, w float64) error {
	if a == "" || b == "" {
		return ErrEmptyVertexID
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range []string{a, b} {
		if _, ok := g.adj[id]; !ok {
			g.adj[id] = make(map[string]float64)
		}
	}
	g.adj[a][b] = w
	g.adj[b][a] = w

	return nil
}

// HasVertex reports whether id exists.
func (g *Graph) HasVertex(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.adj[id]

	return ok
}

// Vertices returns all vertex IDs sorted.
func (g *Graph) Vertices() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.adj))
	for id := range g.adj {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// NeighborIDs returns the sorted neighbours of id.
func (g *Graph) NeighborIDs(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	nbrs, ok := g.adj[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrVertexNotFound, id)
	}
	ids := make([]string, 0, len(nbrs))
	for v := range nbrs {
		ids = append(ids, v)
	}
	sort.Strings(ids)

	return ids, nil
}

// Weight returns the edge weight between a and b; ok is false when they are
// not adjacent.
func (g *Graph) Weight(a, b string) (w float64, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	w, ok = g.adj[a][b]

	return w, ok
}

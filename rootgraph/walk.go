package rootgraph

import (
	"fmt"
	"sort"
)

// DefaultMaxDepth bounds Reachable to one- and two-step neighbours.
const DefaultMaxDepth = 2

// Option configures a traversal.
type Option func(*Options)

// Options holds traversal parameters.
type Options struct {
	// MaxDepth, if > 0, stops exploring beyond this depth; 0 disables the limit.
	MaxDepth int

	err error
}

// DefaultOptions returns MaxDepth = DefaultMaxDepth.
func DefaultOptions() Options { return Options{MaxDepth: DefaultMaxDepth} }

// WithMaxDepth limits the search depth.
//
//	d > 0: limit to depth d
//	d == 0: no limit
//	d < 0: ErrOptionViolation at traversal time
func WithMaxDepth(d int) Option {
	return func(o *Options) {
		if d < 0 {
			o.err = fmt.Errorf("%w: MaxDepth cannot be negative (%d)", ErrOptionViolation, d)
			return
		}
		o.MaxDepth = d
	}
}

type item struct {
	id    string
	depth int
}

// Reachable returns the BFS depth of every vertex reachable from start
// within the configured depth, start included at depth 0.
func (g *Graph) Reachable(start string, opts ...Option) (map[string]int, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}
	if start == "" {
		return nil, ErrEmptyVertexID
	}
	if !g.HasVertex(start) {
		return nil, fmt.Errorf("%w: %q", ErrVertexNotFound, start)
	}

	depth := map[string]int{start: 0}
	queue := []item{{id: start}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		next := cur.depth + 1
		if o.MaxDepth > 0 && next > o.MaxDepth {
			continue
		}
		nbrs, err := g.NeighborIDs(cur.id)
		if err != nil {
			return nil, err
		}
		for _, nb := range nbrs {
			if _, seen := depth[nb]; seen {
				continue
			}
			depth[nb] = next
			queue = append(queue, item{id: nb, depth: next})
		}
	}

	return depth, nil
}

// Distance returns the hop count between a and b.
func (g *Graph) Distance(a, b string) (int, error) {
	if !g.HasVertex(b) {
		return 0, fmt.Errorf("%w: %q", ErrVertexNotFound, b)
	}
	depth, err := g.Reachable(a, WithMaxDepth(0))
	if err != nil {
		return 0, err
	}
	d, ok := depth[b]
	if !ok {
		return 0, fmt.Errorf("%w: %q from %q", ErrUnreachable, b, a)
	}

	return d, nil
}

// ReachableDegrees is Reachable over scale degrees, returned ascending.
func (g *Graph) ReachableDegrees(from int, opts ...Option) ([]int, error) {
	depth, err := g.Reachable(ID(from), opts...)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(depth))
	for _, id := range sortedIDs(depth) {
		d, err := Degree(id)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	return out, nil
}

func sortedIDs(m map[string]int) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	// single-digit IDs sort numerically as strings
	sort.Strings(ids)

	return ids
}

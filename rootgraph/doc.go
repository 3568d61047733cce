// Package rootgraph provides the chord-root adjacency graph consumed by the
// functional harmony walk.
//
// What:
//
//	An undirected weighted graph whose vertices are diatonic chord roots
//	"1".."7". Diatonic builds it with an edge between every pair of roots a
//	third apart (weight ThirdWeight) and a fourth/fifth apart (weight
//	FifthWeight). Seconds are not edges; every root still reaches every other
//	within two steps.
//
// Traversal:
//
//	Reachable runs a breadth-first search bounded by WithMaxDepth (default 2)
//	and returns the depth of every vertex reached, the start included at 0.
//	Distance returns the unweighted hop count between two roots.
//
// Determinism:
//
//	NeighborIDs and Vertices are sorted lexicographically, so BFS visit order
//	and every result derived from it are stable across runs.
//
// Concurrency:
//
//	Mutation and lookup are guarded by a sync.RWMutex; a built graph can be
//	shared read-only by concurrent variant pipelines.
//
// Complexity:
//
//	AddEdge O(1); NeighborIDs O(d log d); Reachable and Distance O(V + E).
package rootgraph

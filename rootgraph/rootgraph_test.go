package rootgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/melodia/rootgraph"
)

type DiatonicSuite struct {
	suite.Suite
	g *rootgraph.Graph
}

func (s *DiatonicSuite) SetupTest() { s.g = rootgraph.Diatonic() }

func (s *DiatonicSuite) TestVerticesAndNeighbors() {
	s.Equal([]string{"1", "2", "3", "4", "5", "6", "7"}, s.g.Vertices())

	nbrs, err := s.g.NeighborIDs("1")
	s.Require().NoError(err)
	s.Equal([]string{"3", "4", "5", "6"}, nbrs)

	nbrs, err = s.g.NeighborIDs("7")
	s.Require().NoError(err)
	s.Equal([]string{"2", "3", "4", "5"}, nbrs)
}

func (s *DiatonicSuite) TestWeights() {
	w, ok := s.g.Weight("1", "5")
	s.True(ok)
	s.Equal(rootgraph.FifthWeight, w)

	w, ok = s.g.Weight("6", "1")
	s.True(ok)
	s.Equal(rootgraph.ThirdWeight, w)

	_, ok = s.g.Weight("1", "2")
	s.False(ok, "seconds are not edges")
}

func (s *DiatonicSuite) TestReachable() {
	one, err := s.g.Reachable("1", rootgraph.WithMaxDepth(1))
	s.Require().NoError(err)
	s.Equal(map[string]int{"1": 0, "3": 1, "4": 1, "5": 1, "6": 1}, one)

	two, err := s.g.Reachable("1")
	s.Require().NoError(err)
	s.Len(two, 7, "every root is within two steps")
	s.Equal(2, two["2"])
	s.Equal(2, two["7"])

	degs, err := s.g.ReachableDegrees(5)
	s.Require().NoError(err)
	s.Equal([]int{1, 2, 3, 4, 5, 6, 7}, degs)
}

func (s *DiatonicSuite) TestDistance() {
	d, err := s.g.Distance("2", "5")
	s.Require().NoError(err)
	s.Equal(1, d)

	d, err = s.g.Distance("1", "1")
	s.Require().NoError(err)
	s.Equal(0, d)
}

func TestDiatonicSuite(t *testing.T) {
	suite.Run(t, new(DiatonicSuite))
}

func TestErrors(t *testing.T) {
	g := rootgraph.New()
	assert.ErrorIs(t, g.AddVertex(""), rootgraph.ErrEmptyVertexID)
	assert.ErrorIs(t, g.AddEdge("a", "", 1), rootgraph.ErrEmptyVertexID)

	_, err := g.Reachable("x")
	assert.ErrorIs(t, err, rootgraph.ErrVertexNotFound)

	require.NoError(t, g.AddVertex("a"))
	_, err = g.Reachable("a", rootgraph.WithMaxDepth(-1))
	assert.ErrorIs(t, err, rootgraph.ErrOptionViolation)

	require.NoError(t, g.AddVertex("b"))
	_, err = g.Distance("a", "b")
	assert.ErrorIs(t, err, rootgraph.ErrUnreachable)

	_, err = rootgraph.Degree("x")
	assert.ErrorIs(t, err, rootgraph.ErrVertexNotFound)
}

package generator

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/katalvlaran/melodia/repair"
	"github.com/katalvlaran/melodia/rootgraph"
	"github.com/katalvlaran/melodia/score"
)

// DefaultVariants is the number of variants generated per call.
const DefaultVariants = 4

// Option configures a Generator.
type Option func(*Generator)

// WithVariants sets the number of variants. Panics if n < 1.
func WithVariants(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("generator: WithVariants(%d): must be >= 1", n))
	}

	return func(g *Generator) { g.variants = n }
}

// WithConcurrency bounds the number of variants run at once. Panics if n < 1.
func WithConcurrency(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("generator: WithConcurrency(%d): must be >= 1", n))
	}

	return func(g *Generator) { g.workers = n }
}

// WithLogger sets the logger; nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithOverrides pins attacks to MIDI pitches by attack ID.
func WithOverrides(o map[uuid.UUID]int) Option {
	return func(g *Generator) {
		g.overrides = make(map[uuid.UUID]int, len(o))
		for k, v := range o {
			g.overrides[k] = v
		}
	}
}

// WithWeights replaces the scoring weights.
func WithWeights(w score.Weights) Option {
	return func(g *Generator) { g.weights = w }
}

// WithRootGraph replaces the diatonic chord-root graph.
func WithRootGraph(rg *rootgraph.Graph) Option {
	return func(g *Generator) {
		if rg != nil {
			g.graph = rg
		}
	}
}

// WithRepairIterations sets the repair sweep cap. Panics if n < 1.
func WithRepairIterations(n int) Option {
	opt := repair.WithMaxIterations(n)

	return func(g *Generator) {
		g.repairOpts = append(g.repairOpts, opt)
		g.repairIter = n
	}
}

package generator_test

import (
	"testing"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/generator"
)

// defaultSeeds are cycled through by the benchmarks.
var defaultSeeds = []int64{0, 1, 2, 3, 4, 5, 6, 7}

// benchmarkGenerate runs Generate on spec, cycling through seeds, and fails
// on errors or missing melodies.
func benchmarkGenerate(b *testing.B, spec exercise.Spec, seeds []int64, opts ...generator.Option) {
	g := generator.New(opts...)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seed := seeds[i%len(seeds)]
		res, err := g.Generate(spec, seed)
		if err != nil {
			b.Fatalf("Generate failed: %v", err)
		}
		if !res.OK() {
			b.Fatalf("seed %d: %s", seed, res.Infeasible)
		}
	}
}

// BenchmarkGenerate_SingleVariant isolates one pass through the pipeline.
func BenchmarkGenerate_SingleVariant(b *testing.B) {
	benchmarkGenerate(b, exercise.Default(), defaultSeeds, generator.WithVariants(1))
}

// BenchmarkGenerate_Default uses the default four variants on one worker.
func BenchmarkGenerate_Default(b *testing.B) {
	benchmarkGenerate(b, exercise.Default(), defaultSeeds)
}

// BenchmarkGenerate_Concurrent spreads the four variants over four workers.
func BenchmarkGenerate_Concurrent(b *testing.B) {
	benchmarkGenerate(b, exercise.Default(), defaultSeeds, generator.WithConcurrency(4))
}

// BenchmarkGenerate_Period generates a two-phrase period with reuse, which
// also exercises reprise scoring.
func BenchmarkGenerate_Period(b *testing.B) {
	spec := exercise.Default()
	spec.Phrases = []exercise.Phrase{
		{Label: "A", Cadence: exercise.HalfCadence},
		{Label: "A", Reuse: true, Cadence: exercise.Authentic},
	}
	benchmarkGenerate(b, spec, []int64{3})
}

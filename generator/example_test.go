package generator_test

import (
	"fmt"

	"github.com/katalvlaran/melodia/exercise"
	"github.com/katalvlaran/melodia/generator"
)

// ExampleGenerator_Generate produces a four-measure G major exercise and
// prints it note by note.
func ExampleGenerator_Generate() {
	spec := exercise.Default()
	spec.Key = "G"

	res, err := generator.New(generator.WithVariants(4), generator.WithConcurrency(2)).Generate(spec, 42)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if !res.OK() {
		fmt.Println(res.Infeasible)
		return
	}
	for _, e := range res.Attacks() {
		fmt.Printf("m%d b%-4g %-4s %s\n", e.Measure, e.Onset, e.Pitch, e.Duration)
	}
	fmt.Printf("variant %d score %.2f\n", res.Variant, res.Score.Total)
}

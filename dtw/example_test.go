package dtw_test

import (
	"fmt"

	"github.com/katalvlaran/melodia/dtw"
)

// ExampleAlign compares the interval profile of a phrase with a varied
// repeat that inserts one passing step.
func ExampleAlign() {
	source := []float64{2, 2, -4, 5}
	varied := []float64{2, 2, -2, -2, 5}

	dist, path, err := dtw.Align(source, varied, dtw.WithWindow(2))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(dist, path)
	// Output: 4 [{0 0} {1 1} {2 2} {2 3} {3 4}]
}

package skeleton

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/melodia/exercise"
)

// ErrInfeasible marks an anchor with no legal candidate at any tier.
var ErrInfeasible = errors.New("skeleton: no legal anchor candidate")

// Infeasible describes the blocking anchor and the rule sets in force.
type Infeasible struct {
	Phrase      int
	Measure     int
	Beat        float64
	Degrees     []int
	Intervals   []int
	Transitions []exercise.Transition
	Reason      string
}

func (e *Infeasible) Error() string {
	return fmt.Sprintf("%v: measure %d beat %g: %s (illegal degrees %v)", ErrInfeasible, e.Measure, e.Beat, e.Reason, e.Degrees)
}

// Unwrap returns ErrInfeasible.
func (e *Infeasible) Unwrap() error { return ErrInfeasible }

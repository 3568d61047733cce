package theory

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedMeter indicates a time signature the engine cannot plan for.
var ErrUnsupportedMeter = errors.New("theory: unsupported meter")

// Meter is a simple time signature counted in quarter-note beats.
type Meter struct {
	Beats int `json:"beats"`
	Unit  int `json:"unit"`
}

// CommonTime is 4/4.
var CommonTime = Meter{Beats: 4, Unit: 4}

// Validate accepts 2/4, 3/4 and 4/4.
func (m Meter) Validate() error {
	if m.Unit != 4 || m.Beats < 2 || m.Beats > 4 {
		return fmt.Errorf("%w: %d/%d", ErrUnsupportedMeter, m.Beats, m.Unit)
	}

	return nil
}

func (m Meter) String() string { return fmt.Sprintf("%d/%d", m.Beats, m.Unit) }

// Length is the measure length in beats.
func (m Meter) Length() float64 { return float64(m.Beats) }

// StrongBeats lists the structurally strong beats of a measure.
func (m Meter) StrongBeats() []float64 {
	if m.Beats == 4 {
		return []float64{1, 3}
	}

	return []float64{1}
}

// IsStrong reports whether beat is one of StrongBeats.
func (m Meter) IsStrong(beat float64) bool {
	for _, b := range m.StrongBeats() {
		if math.Abs(b-beat) < 1e-9 {
			return true
		}
	}

	return false
}

// IsOnBeat reports whether beat falls on an integer beat.
func IsOnBeat(beat float64) bool { return math.Abs(beat-math.Round(beat)) < 1e-9 }

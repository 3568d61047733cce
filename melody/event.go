package melody

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/katalvlaran/melodia/theory"
)

// Namespace is the UUID namespace of attack identities.
var Namespace = uuid.MustParse("6f1c52a4-3d0b-5c1e-9a57-0e2f8d4b7c31")

// AttackID returns the stable identity of an attack created at the given
// measure, onset, harmonic context and index.
func AttackID(measure int, onset float64, harmonyID, index int) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(fmt.Sprintf("%d/%.2f/%d/%d", measure, onset, harmonyID, index)))
}

// Event is one MelodyEvent.
type Event struct {
	ID       uuid.UUID       `json:"id"`
	Phrase   int             `json:"phrase"`
	Measure  int             `json:"measure"`
	Onset    float64         `json:"onset"`
	Beats    float64         `json:"beats"`
	Duration theory.Duration `json:"duration"`
	MIDI     int             `json:"midi"`
	Pitch    string          `json:"pitch"`
	Attack   bool            `json:"attack"`
	Role     Role            `json:"role"`
	// HarmonyID indexes the harmony event active at Onset.
	HarmonyID int    `json:"harmony_id"`
	Index     int    `json:"index"`
	Tags      Tags   `json:"tags"`
	Reason    string `json:"reason,omitempty"`
}

// End returns the beat just after the event.
func (e Event) End() float64 { return e.Onset + e.Beats }

// IsEighth reports whether the event lasts half a beat.
func (e Event) IsEighth() bool { return e.Beats == theory.Eighth.Beats() }

// Locked reports whether the event carries a locking tag.
func (e Event) Locked() bool { return e.Tags.Locked() }

// NewAttack returns an attack event with its identity assigned.
func NewAttack(k theory.Key, phrase, measure int, onset, beats float64, midi, harmonyID, index int) Event {
	d, _ := theory.DurationForBeats(beats)

	return Event{
		ID:        AttackID(measure, onset, harmonyID, index),
		Phrase:    phrase,
		Measure:   measure,
		Onset:     onset,
		Beats:     beats,
		Duration:  d,
		MIDI:      midi,
		Pitch:     k.NameOf(midi),
		Attack:    true,
		HarmonyID: harmonyID,
		Index:     index,
	}
}

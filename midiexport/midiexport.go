package midiexport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/katalvlaran/melodia/harmony"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/theory"
)

var (
	// ErrNoEvents indicates a melody without a single attack.
	ErrNoEvents = errors.New("midiexport: no attacks to write")

	// ErrMeter is returned for meters the file header cannot express.
	ErrMeter = errors.New("midiexport: invalid meter")
)

const (
	// DefaultTempo is the playback tempo in quarter notes per minute.
	DefaultTempo = 90.0

	// DefaultResolution is the number of ticks per quarter note.
	DefaultResolution = 960

	// DefaultVelocity is the note-on velocity of melody notes.
	DefaultVelocity = 96

	chordOctaveBase = 48 // C3
	chordVelocity   = 64
)

// Options configures Write.
type Options struct {
	Tempo      float64
	Resolution smf.MetricTicks
	Channel    uint8
	Velocity   uint8
	Name       string
	Harmony    []harmony.Event
}

// Option mutates Options.
type Option func(*Options)

// WithTempo sets the tempo in beats per minute. Panics if bpm <= 0.
func WithTempo(bpm float64) Option {
	if bpm <= 0 || math.IsNaN(bpm) {
		panic(fmt.Sprintf("midiexport: WithTempo(%v): tempo must be positive", bpm))
	}

	return func(o *Options) { o.Tempo = bpm }
}

// WithResolution sets ticks per quarter note. Panics if ticks == 0.
func WithResolution(ticks uint16) Option {
	if ticks == 0 {
		panic("midiexport: WithResolution(0): resolution must be positive")
	}

	return func(o *Options) { o.Resolution = smf.MetricTicks(ticks) }
}

// WithChannel sets the melody channel (0..15). Panics otherwise.
func WithChannel(ch uint8) Option {
	if ch > 15 {
		panic(fmt.Sprintf("midiexport: WithChannel(%d): channel out of range", ch))
	}

	return func(o *Options) { o.Channel = ch }
}

// WithVelocity sets the melody velocity (1..127). Panics otherwise.
func WithVelocity(v uint8) Option {
	if v == 0 || v > 127 {
		panic(fmt.Sprintf("midiexport: WithVelocity(%d): velocity out of range", v))
	}

	return func(o *Options) { o.Velocity = v }
}

// WithName sets the track name of the melody.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithHarmony adds a block-chord accompaniment track.
func WithHarmony(events []harmony.Event) Option {
	return func(o *Options) { o.Harmony = events }
}

// note is one sounding pitch in absolute beats from the start.
type note struct {
	key   uint8
	start float64
	end   float64
}

// Write encodes the melody as an SMF and writes it to w.
func Write(w io.Writer, events []melody.Event, m theory.Meter, opts ...Option) error {
	o := Options{
		Tempo:      DefaultTempo,
		Resolution: smf.MetricTicks(DefaultResolution),
		Velocity:   DefaultVelocity,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if m.Beats <= 0 || m.Unit <= 0 || m.Beats > math.MaxUint8 || m.Unit > math.MaxUint8 {
		return fmt.Errorf("%w: %s", ErrMeter, m)
	}

	// 1) Collect notes, folding ties into the preceding attack.
	notes := melodyNotes(events, m)
	if len(notes) == 0 {
		return ErrNoEvents
	}

	// 2) Melody track with the meta header.
	var tr smf.Track
	if o.Name != "" {
		tr.Add(0, smf.MetaTrackSequenceName(o.Name))
	}
	tr.Add(0, smf.MetaMeter(uint8(m.Beats), uint8(m.Unit)))
	tr.Add(0, smf.MetaTempo(o.Tempo))
	emit(&tr, notes, o.Resolution, o.Channel, o.Velocity)

	s := smf.New()
	s.TimeFormat = o.Resolution
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("midiexport: melody track: %w", err)
	}

	// 3) Optional chord track, ending with the melody.
	if len(o.Harmony) > 0 {
		var ch smf.Track
		ch.Add(0, smf.MetaTrackSequenceName("harmony"))
		emit(&ch, chordNotes(o.Harmony, m, notes[len(notes)-1].end), o.Resolution, (o.Channel+1)%16, chordVelocity)
		if err := s.Add(ch); err != nil {
			return fmt.Errorf("midiexport: harmony track: %w", err)
		}
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("midiexport: write: %w", err)
	}

	return nil
}

// Encode is Write into a fresh buffer.
func Encode(events []melody.Event, m theory.Meter, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, events, m, opts...); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// position converts a 1-based measure and beat into beats from the start.
func position(m theory.Meter, measure int, beat float64) float64 {
	return float64(measure-1)*m.Length() + beat - 1
}

func melodyNotes(events []melody.Event, m theory.Meter) []note {
	var out []note
	for _, e := range events {
		start := position(m, e.Measure, e.Onset)
		if e.Attack || len(out) == 0 {
			out = append(out, note{key: uint8(e.MIDI), start: start, end: start + e.Beats})
			continue
		}
		out[len(out)-1].end = start + e.Beats
	}

	return out
}

func chordNotes(hs []harmony.Event, m theory.Meter, end float64) []note {
	var out []note
	for i, h := range hs {
		start := position(m, h.Measure, h.Beat)
		stop := end
		if i+1 < len(hs) {
			stop = position(m, hs[i+1].Measure, hs[i+1].Beat)
		}
		if stop <= start {
			continue
		}
		for _, pc := range h.ChordPCs.Slice() {
			out = append(out, note{key: uint8(chordOctaveBase + pc), start: start, end: stop})
		}
	}

	return out
}

// emit appends note-on/off pairs in tick order and closes the track.
// At equal ticks note-offs precede note-ons so repeated keys re-strike.
func emit(tr *smf.Track, notes []note, res smf.MetricTicks, ch, vel uint8) {
	type msg struct {
		tick uint32
		on   bool
		key  uint8
	}
	q := float64(res.Ticks4th())
	msgs := make([]msg, 0, 2*len(notes))
	for _, n := range notes {
		msgs = append(msgs,
			msg{tick: uint32(math.Round(n.start * q)), on: true, key: n.key},
			msg{tick: uint32(math.Round(n.end * q)), on: false, key: n.key},
		)
	}
	sort.SliceStable(msgs, func(a, b int) bool {
		if msgs[a].tick != msgs[b].tick {
			return msgs[a].tick < msgs[b].tick
		}

		return !msgs[a].on && msgs[b].on
	})

	var last uint32
	for _, mm := range msgs {
		if mm.on {
			tr.Add(mm.tick-last, midi.NoteOn(ch, mm.key, vel))
		} else {
			tr.Add(mm.tick-last, midi.NoteOff(ch, mm.key))
		}
		last = mm.tick
	}
	tr.Close(0)
}

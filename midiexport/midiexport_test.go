package midiexport_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/katalvlaran/melodia/harmony"
	"github.com/katalvlaran/melodia/melody"
	"github.com/katalvlaran/melodia/midiexport"
	"github.com/katalvlaran/melodia/theory"
)

type played struct {
	key   uint8
	start uint32
	end   uint32
}

func sample() []melody.Event {
	k, _ := theory.ParseKey("C", theory.Major)
	tie := melody.NewAttack(k, 0, 2, 1, 2, 64, 0, 4)
	tie.Attack = false

	return []melody.Event{
		melody.NewAttack(k, 0, 1, 1, 1, 60, 0, 0),
		melody.NewAttack(k, 0, 1, 2, 1, 62, 0, 1),
		melody.NewAttack(k, 0, 1, 3, 2, 64, 0, 2),
		tie,
		melody.NewAttack(k, 0, 2, 3, 2, 60, 1, 5),
	}
}

// decode reads back every track as a list of sounded notes.
func decode(t *testing.T, b []byte) (*smf.SMF, [][]played, float64, [2]uint8) {
	t.Helper()
	s, err := smf.ReadFrom(bytes.NewReader(b))
	require.NoError(t, err)

	var (
		bpm   float64
		meter [2]uint8
		out   [][]played
	)
	for _, tr := range s.Tracks {
		var (
			abs   uint32
			notes []played
			open  = map[uint8]int{}
		)
		for _, ev := range tr {
			abs += ev.Delta
			var ch, key, vel, num, den uint8
			var tempo float64
			msg := midi.Message(ev.Message)
			switch {
			case ev.Message.GetMetaTempo(&tempo):
				bpm = tempo
			case ev.Message.GetMetaMeter(&num, &den):
				meter = [2]uint8{num, den}
			case msg.GetNoteStart(&ch, &key, &vel):
				open[key] = len(notes)
				notes = append(notes, played{key: key, start: abs})
			case msg.GetNoteEnd(&ch, &key):
				notes[open[key]].end = abs
			}
		}
		out = append(out, notes)
	}

	return s, out, bpm, meter
}

func TestWrite_Melody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, midiexport.Write(&buf, sample(), theory.CommonTime, midiexport.WithTempo(120)))

	s, tracks, bpm, meter := decode(t, buf.Bytes())
	assert.Equal(t, smf.MetricTicks(midiexport.DefaultResolution), s.TimeFormat)
	assert.InDelta(t, 120, bpm, 0.01)
	assert.Equal(t, [2]uint8{4, 4}, meter)
	require.Len(t, tracks, 1)
	assert.Equal(t, []played{
		{key: 60, start: 0, end: 960},
		{key: 62, start: 960, end: 1920},
		{key: 64, start: 1920, end: 5760},
		{key: 60, start: 5760, end: 7680},
	}, tracks[0])
}

func TestWrite_Harmony(t *testing.T) {
	hs := []harmony.Event{
		{ID: 0, Measure: 1, Beat: 1, Degree: 1, ChordPCs: theory.PCSet(0).Add(0).Add(4).Add(7)},
		{ID: 1, Measure: 2, Beat: 3, Degree: 1, ChordPCs: theory.PCSet(0).Add(0).Add(4).Add(7)},
	}
	b, err := midiexport.Encode(sample(), theory.CommonTime,
		midiexport.WithHarmony(hs), midiexport.WithResolution(96), midiexport.WithName("exercise"))
	require.NoError(t, err)

	_, tracks, _, _ := decode(t, b)
	require.Len(t, tracks, 2)
	require.Len(t, tracks[1], 6)
	for _, n := range tracks[1][:3] {
		assert.Equal(t, uint32(0), n.start)
		assert.Equal(t, uint32(6*96), n.end)
	}
	assert.Equal(t, uint32(8*96), tracks[1][5].end)
	assert.Equal(t, uint8(48), tracks[1][0].key)
}

func TestWrite_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, midiexport.Write(&buf, nil, theory.CommonTime), midiexport.ErrNoEvents)
	assert.ErrorIs(t, midiexport.Write(&buf, sample(), theory.Meter{}), midiexport.ErrMeter)
}

func TestOptions_Panic(t *testing.T) {
	assert.Panics(t, func() { midiexport.WithTempo(0) })
	assert.Panics(t, func() { midiexport.WithResolution(0) })
	assert.Panics(t, func() { midiexport.WithChannel(16) })
	assert.Panics(t, func() { midiexport.WithVelocity(0) })
}

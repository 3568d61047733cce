// Package midiexport writes a finished melody as a Standard MIDI File so it
// can be auditioned in any player.
//
// The melody occupies the first track: one note per attack, held across its
// tied continuations. An optional second track voices the harmony as block
// chords in the third octave. Meter and tempo meta events lead the first
// track; time is measured in quarter-note beats at the chosen resolution.
package midiexport

// Package melody defines the MelodyEvent model shared by every pipeline stage
// after rhythm planning, and the Sequence helpers the repair passes use to
// mutate it safely.
//
// A Sequence covers every measure contiguously: each measure is a run of
// events whose beat lengths sum to the meter length. An event with Attack
// false is a tied continuation carrying the pitch of the nearest preceding
// attack. Events are never deleted; they are demoted to continuations and a
// measure is re-notated with Rebuild so that every piece has a legal duration
// class.
//
// Every attack carries a stable identity (AttackID) derived from its measure,
// onset, harmonic context and index at creation time. Repair passes retune
// and demote events but never recompute identities, so manual pitch edits keyed
// by ID survive regeneration from the same seed.
package melody

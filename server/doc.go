// Package server exposes the generator over HTTP.
//
// Routes:
//
//	POST /v1/exercises                          generate (or replay) an exercise
//	GET  /v1/exercises/{fingerprint}/{seed}/midi  Standard MIDI File of a cached exercise
//	GET  /health                                liveness
//
// Invalid specs answer 400 with the validation message; a spec with no
// solution answers 422 with the structured result. Results generated without
// overrides are cached by fingerprint and seed.
package server

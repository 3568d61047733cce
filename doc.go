// Package melodia generates sight-singing melodies that obey an instructor's
// constraints: key, register, meter, phrase plan, cadences, rhythm mix,
// leap limits and forbidden degrees, intervals or transitions.
//
// 🚀 What is melodia?
//
//	A deterministic, seed-driven pipeline that turns an exercise.Spec into
//	a singable line plus everything that explains it:
//		• Harmony: a functional chord walk over a diatonic root graph
//		• Planning: a contour and a rhythm grid per phrase
//		• Skeleton: one chord tone per strong beat, chosen by weighted cost
//		• Embellishment: passing, neighbour, suspension and escape tones
//		• Repair: ordered passes that enforce every hard rule and log why
//		• Scoring: several variants rated, the best one returned
//
// ✨ Why melodia?
//
//   - Same spec and seed, same melody, at any concurrency
//   - Infeasible constraints come back as a structured NoSolution, not a panic
//   - Manual edits are keyed by stable attack IDs and survive regeneration
//
// Layout:
//
//	rng/, theory/, exercise/        seeded randomness, music theory, validated specs
//	rootgraph/, harmony/            chord-root graph and harmonic walk
//	contour/, rhythm/               per-phrase shape and duration grids
//	skeleton/, embellish/           structural anchors and full realisation
//	melody/, repair/, score/        event model, rule enforcement, rating
//	dtw/                            profile alignment for reused phrases
//	generator/                      the variant pipeline
//	midiexport/, store/             Standard MIDI File export, SQLite cache
//	config/, server/, cmd/melodiad  HTTP service
//
//	go get github.com/katalvlaran/melodia
package melodia

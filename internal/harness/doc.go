// Package harness runs gameday scenarios end to end.
//
// A scenario applies a template to a fresh gameday and then drives games
// through the same host operations the CLI uses: finishing a game records
// its score, moves it to finished and runs the bracket resolution pass in
// one transaction.
//
// # Scenario Format
//
//	name: bracket_final
//	description: "Semi-final winners meet in the final"
//	template: templates/bracket.yaml
//	gameday: { name: Spieltag 1, start: "2024-05-04T10:00:00Z" }
//	teams: [Lions, Tigers, Bears, Wolves]
//	mapping: { "0_0": Lions, "0_1": Tigers, "0_2": Bears, "0_3": Wolves }
//	strict_ties: false
//	tie_breakers: [head_to_head]
//	steps:
//	  - finish: { slot: 1, home: 2, away: 1 }
//	  - status: { slot: 3, to: started }
//	  - expect: { slot: 3, home: Lions, away: Bears, official: "-" }
//	  - finish: { slot: 2, home: 1, away: 1 }
//	    expect_error: AMBIGUOUS_CANDIDATE
//
// Slots are addressed by their 1-based position in the template document,
// counting field by field. "-" stands for an unassigned role.
//
// # Deterministic Testing
//
// Every run uses an in-memory SQLite store, a fixed audit clock and
// sequential audit ids, so traces are identical across runs and can be
// compared against golden files with RunWithGolden.
package harness

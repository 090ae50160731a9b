// Package seed reads and writes the template import format.
//
// A document lists slots per field (list index = field number - 1, position
// within the list = slot_order) and a parallel list of update rules:
//
//	name: 4 Teams, 1 Feld
//	num_teams: 4
//	num_fields: 1
//	num_groups: 1
//	game_duration: 70
//	fields:
//	  - - {stage: Vorrunde, standing: Gruppe 1, home: "0_0", away: "0_1", official: "0_2", break_after: 10}
//	    - {stage: Finalrunde, standing: Finale, home: Erster, away: Zweiter, official: "0_0"}
//	update_rules:
//	  - name: Finale
//	    pre_finished: Gruppe 1
//	    games:
//	      - home: {standing: Gruppe 1, place: 1}
//	        away: {standing: Gruppe 1, place: 2}
//
// games[i] of a rule binds to the i-th slot (field-major order) whose
// standing equals the rule's name. Placeholders of the form "<group>_<team>"
// are indexed references; any other text is a named reference.
//
// YAML, JSON and CUE documents share the same shape.
package seed

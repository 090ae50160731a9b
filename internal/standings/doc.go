// Package standings ranks the teams of a finished stage.
//
// Ordering is deterministic and explicit:
//  1. points (descending) under the template's win/draw/loss rule
//  2. point differential (descending)
//  3. points scored (descending)
//  4. points conceded (ascending)
//  5. each supplied TieBreaker, in order, applied to still-tied groups
//  6. insertion order: first appearance in (scheduled, field, id) game order
//
// Step 6 never produces a shared rank. Entries that remain tied after step 5
// share the same Rank value so callers can detect residual ties.
package standings

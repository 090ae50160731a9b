// Package model defines the data types shared by every gameday package.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - Placeholders are a tagged variant (TeamRef), parsed once at the boundary
//   - Team mappings are keyed by the TeamKey value type, never by strings
//   - Labels (stage, standing) are NFC normalised before comparison
//   - All JSON tags use snake_case
package model

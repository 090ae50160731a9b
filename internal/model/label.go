package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeLabel trims and NFC-normalises a stage, standing or name label so
// that labels typed with different Unicode compositions ("Gruppe Süd")
// compare equal.
func NormalizeLabel(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

package apply

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/validator"
)

// ErrorCode categorizes application failures.
type ErrorCode string

const (
	// CodeTemplateInvalid indicates the template failed validation.
	CodeTemplateInvalid ErrorCode = "TEMPLATE_INVALID"

	// CodeGamedayNotFound indicates the target gameday does not exist.
	CodeGamedayNotFound ErrorCode = "GAMEDAY_NOT_FOUND"

	// CodeFieldOverflow indicates the template uses more fields than the
	// gameday provides.
	CodeFieldOverflow ErrorCode = "FIELD_OVERFLOW"

	// CodeMappingIncomplete indicates indexed placeholders without a team.
	CodeMappingIncomplete ErrorCode = "MAPPING_INCOMPLETE"

	// CodeUnknownTeam indicates mapped team ids that do not exist.
	CodeUnknownTeam ErrorCode = "UNKNOWN_TEAM"

	// CodeDuplicateTeam indicates one team mapped to several placeholders.
	CodeDuplicateTeam ErrorCode = "DUPLICATE_TEAM"
)

// Error is a precondition failure of Apply. Nothing has been written when
// Apply returns one.
type Error struct {
	Code    ErrorCode
	Message string

	// Placeholders lists unmapped keys (MAPPING_INCOMPLETE) or the keys
	// sharing a team (DUPLICATE_TEAM).
	Placeholders []model.TeamKey

	// Teams lists unknown team ids (UNKNOWN_TEAM) or the shared ids
	// (DUPLICATE_TEAM).
	Teams []model.TeamID

	// Issues carries the validator errors (TEMPLATE_INVALID).
	Issues []validator.Issue
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsApplyError reports whether err is an *Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsApplyError(err error, code ErrorCode) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

func newMappingError(missing []model.TeamKey) *Error {
	keys := make([]string, len(missing))
	for i, k := range missing {
		keys[i] = k.String()
	}
	return &Error{
		Code:         CodeMappingIncomplete,
		Message:      "no team mapped for placeholder(s) " + strings.Join(keys, ", "),
		Placeholders: missing,
	}
}

func newUnknownTeamError(teams []model.TeamID) *Error {
	ids := make([]string, len(teams))
	for i, id := range teams {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return &Error{
		Code:    CodeUnknownTeam,
		Message: "unknown team id(s) " + strings.Join(ids, ", "),
		Teams:   teams,
	}
}

// newDuplicateTeamError takes the clashing keys in placeholder order and
// the team ids they share.
func newDuplicateTeamError(keys []model.TeamKey, teams []model.TeamID, byTeam map[model.TeamID][]model.TeamKey) *Error {
	parts := make([]string, len(teams))
	for i, id := range teams {
		names := make([]string, len(byTeam[id]))
		for j, k := range byTeam[id] {
			names[j] = k.String()
		}
		parts[i] = fmt.Sprintf("team %d mapped to %s", id, strings.Join(names, ", "))
	}
	return &Error{
		Code:         CodeDuplicateTeam,
		Message:      strings.Join(parts, "; "),
		Placeholders: keys,
		Teams:        teams,
	}
}

func newTemplateError(issues []validator.Issue) *Error {
	msgs := make([]string, len(issues))
	for i, is := range issues {
		msgs[i] = is.Error()
	}
	return &Error{
		Code:    CodeTemplateInvalid,
		Message: strings.Join(msgs, "; "),
		Issues:  issues,
	}
}

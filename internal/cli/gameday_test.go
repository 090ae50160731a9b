package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gameday/internal/apply"
	"github.com/roach88/gameday/internal/model"
	"github.com/roach88/gameday/internal/resolve"
)

// setupGameday registers four teams, imports the four team template and
// creates an empty one-field gameday. Ids are 1 throughout.
// setupGameday imports the four-team template with extra import flags and
// creates four teams and one gameday.
func setupGameday(t *testing.T, importFlags ...string) string {
	t.Helper()
	db := tempDB(t)

	var teams []model.Team
	mustJSON(t, db, &teams, "team", "add", "Lions", "Tigers", "Bears", "Wolves")
	require.Len(t, teams, 4)

	var summary TemplateSummary
	mustJSON(t, db, &summary, append([]string{"template", "import", fourTeamsTemplate}, importFlags...)...)
	require.Equal(t, int64(1), summary.ID)

	var gd model.Gameday
	mustJSON(t, db, &gd, "gameday", "create", "--name", "Spieltag 2", "--start", "2024-05-04 10:00", "--fields", "1")
	require.Equal(t, int64(1), gd.ID)
	return db
}

func applyAll(t *testing.T, db string) apply.Result {
	t.Helper()
	var result apply.Result
	mustJSON(t, db, &result, "gameday", "apply", "1", "--template", "1",
		"--map", "0_0=Lions", "--map", "0_1=Tigers", "--map", "0_2=Bears", "--map", "0_3=4",
		"--actor", "tester")
	return result
}

func TestGamedayWorkflow(t *testing.T) {
	db := setupGameday(t)

	result := applyAll(t, db)
	require.Len(t, result.GamesCreated, 3)
	assert.Equal(t, "tester", result.Audit.Actor)
	assert.Len(t, result.Audit.Mapping, 4)
	assert.Equal(t, model.TeamID(4), result.Audit.Mapping[model.TeamKey{Group: 0, Team: 3}])

	var game GameResult
	mustJSON(t, db, &game, "game", "finish", "1", "1", "1")
	assert.Empty(t, game.Changes)
	assert.Equal(t, model.StatusFinished, game.Status)

	mustJSON(t, db, &game, "game", "finish", "2", "3", "1")
	require.Len(t, game.Changes, 3)
	assert.Equal(t, model.RoleHome, game.Changes[0].Role)
	assert.Equal(t, model.TeamID(3), *game.Changes[0].To)

	var schedule []model.Game
	mustJSON(t, db, &schedule, "gameday", "schedule", "1")
	require.Len(t, schedule, 3)
	final := schedule[2]
	assert.Equal(t, "Finale", final.Standing)
	require.NotNil(t, final.Home)
	require.NotNil(t, final.Away)
	require.NotNil(t, final.Official)
	assert.Equal(t, model.TeamID(3), final.Home.Team)
	assert.Equal(t, model.TeamID(1), final.Away.Team)
	assert.Equal(t, model.TeamID(2), *final.Official)

	out, err := execute(t, db, "text", "gameday", "schedule", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "TIME")
	assert.Contains(t, out, "Bears")
	assert.Contains(t, out, "3:1")

	var records []model.AuditRecord
	mustJSON(t, db, &records, "gameday", "audit", "1")
	require.Len(t, records, 1)
	assert.Equal(t, result.Audit.Fingerprint, records[0].Fingerprint)
}

func TestGamedayApply_Reapply(t *testing.T) {
	db := setupGameday(t)
	applyAll(t, db)
	second := applyAll(t, db)

	var schedule []model.Game
	mustJSON(t, db, &schedule, "gameday", "schedule", "1")
	require.Len(t, schedule, 3)
	assert.Equal(t, second.GamesCreated[0].ID, schedule[0].ID)

	var records []model.AuditRecord
	mustJSON(t, db, &records, "gameday", "audit", "1")
	assert.Len(t, records, 2)
}

func TestGamedayApply_Errors(t *testing.T) {
	db := setupGameday(t)

	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantCode string
	}{
		{
			name:     "mapping_incomplete",
			args:     []string{"--map", "0_0=Lions"},
			wantExit: ExitFailure,
			wantCode: string(apply.CodeMappingIncomplete),
		},
		{
			name:     "unknown_team_id",
			args:     []string{"--map", "0_0=1", "--map", "0_1=2", "--map", "0_2=3", "--map", "0_3=99"},
			wantExit: ExitFailure,
			wantCode: string(apply.CodeUnknownTeam),
		},
		{
			name:     "duplicate_team",
			args:     []string{"--map", "0_0=Lions", "--map", "0_1=Lions", "--map", "0_2=Bears", "--map", "0_3=Wolves"},
			wantExit: ExitFailure,
			wantCode: string(apply.CodeDuplicateTeam),
		},
		{
			name:     "unknown_team_name",
			args:     []string{"--map", "0_0=Pumas"},
			wantExit: ExitCommandError,
			wantCode: ErrCodeGeneric,
		},
		{
			name:     "malformed_pair",
			args:     []string{"--map", "0_0"},
			wantExit: ExitCommandError,
			wantCode: ErrCodeGeneric,
		},
		{
			name:     "duplicate_key",
			args:     []string{"--map", "0_0=Lions", "--map", "0_0=Tigers"},
			wantExit: ExitCommandError,
			wantCode: ErrCodeGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"gameday", "apply", "1", "--template", "1"}, tt.args...)
			out, err := execute(t, db, "json", args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Equal(t, tt.wantCode, decodeError(t, out).Code)
		})
	}

	var games []model.Game
	mustJSON(t, db, &games, "gameday", "schedule", "1")
	assert.Empty(t, games)
}

func TestGamedayCommands_NotFound(t *testing.T) {
	db := tempDB(t)

	for _, args := range [][]string{
		{"gameday", "schedule", "7"},
		{"gameday", "apply", "7", "--template", "1"},
		{"template", "export", "7"},
		{"game", "finish", "7", "1", "0"},
	} {
		out, err := execute(t, db, "json", args...)
		require.Error(t, err, args)
		assert.Equal(t, ExitCommandError, GetExitCode(err), args)
		assert.Equal(t, "NOT_FOUND", decodeError(t, out).Code, args)
	}
}

func TestGamedayCreate_Validation(t *testing.T) {
	db := tempDB(t)

	_, err := execute(t, db, "text", "gameday", "create", "--name", "X", "--start", "tomorrow")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, db, "text", "gameday", "create", "--name", "X", "--start", "2024-05-04T10:00:00Z", "--fields", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, db, "text", "gameday", "create", "--start", "2024-05-04T10:00:00Z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"name" not set`)
}

func TestGameStatus(t *testing.T) {
	db := setupGameday(t)
	applyAll(t, db)

	out, err := execute(t, db, "json", "game", "status", "1", "finished")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, out).Code)

	_, err = execute(t, db, "text", "game", "status", "1", "paused")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var game GameResult
	for _, to := range []string{"started", "halftime"} {
		mustJSON(t, db, &game, "game", "status", "1", to)
		assert.Empty(t, game.Changes)
	}
	mustJSON(t, db, nil, "game", "score", "1", "2", "2")
	mustJSON(t, db, &game, "game", "status", "1", "finished")
	assert.Empty(t, game.Changes)

	out, err = execute(t, db, "text", "game", "finish", "1", "3", "2")
	require.Error(t, err)
	assert.Contains(t, out, "INVALID_TRANSITION")

	_, err = execute(t, db, "text", "game", "score", "1", "two", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGameFinish_StrictTies(t *testing.T) {
	db := setupGameday(t, "--strict-ties")
	applyAll(t, db)

	mustJSON(t, db, nil, "game", "finish", "1", "1", "1")

	out, err := execute(t, db, "json", "game", "finish", "2", "1", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, string(resolve.CodeAmbiguousCandidate), decodeError(t, out).Code)

	// The failed finish rolled back, so the game is still open.
	var game GameResult
	mustJSON(t, db, &game, "game", "status", "2", "started")
	assert.Empty(t, game.Changes)

	// Without a stored policy the same results resolve by schedule order.
	lenient := setupGameday(t)
	applyAll(t, lenient)
	mustJSON(t, lenient, nil, "game", "finish", "1", "1", "1")
	mustJSON(t, lenient, &game, "game", "finish", "2", "1", "1")
	assert.Len(t, game.Changes, 3)

	mustJSON(t, lenient, &game, "game", "resolve", "2")
	assert.Empty(t, game.Changes)
}

func TestGameCommands_NoPerCallTieFlags(t *testing.T) {
	db := setupGameday(t)
	applyAll(t, db)

	for _, args := range [][]string{
		{"game", "finish", "1", "1", "0", "--strict-ties"},
		{"game", "resolve", "1", "--tie-breaker", "head_to_head"},
	} {
		_, err := execute(t, db, "text", args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "unknown flag", args)
	}
}

func TestTemplateImport_TiePolicy(t *testing.T) {
	db := tempDB(t)

	var summary TemplateSummary
	mustJSON(t, db, &summary, "template", "import", fourTeamsTemplate, "--tie-breaker", "head_to_head", "--strict-ties")
	require.NotNil(t, summary.Ties)
	assert.Equal(t, []string{"head_to_head"}, summary.Ties.TieBreakers)
	assert.True(t, summary.Ties.Strict)

	var list []TemplateSummary
	mustJSON(t, db, &list, "template", "list")
	require.Len(t, list, 1)
	assert.Equal(t, summary.Ties, list[0].Ties)

	mustJSON(t, db, &summary, "template", "import", fourTeamsTemplate)
	assert.Nil(t, summary.Ties)

	out, err := execute(t, db, "json", "template", "import", fourTeamsTemplate, "--tie-breaker", "coin_flip")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	cliErr := decodeError(t, out)
	assert.Equal(t, string(apply.CodeTemplateInvalid), cliErr.Code)
	assert.Contains(t, cliErr.Message, "coin_flip")
}

func TestTemplateCommands(t *testing.T) {
	db := tempDB(t)

	var imported TemplateSummary
	mustJSON(t, db, &imported, "template", "import", bracketTemplate, "--name", "KO 4")
	assert.Equal(t, "KO 4", imported.Name)
	assert.Len(t, imported.Fingerprint, 64)

	var clone TemplateSummary
	mustJSON(t, db, &clone, "template", "clone", "1", "--name", "KO 4 (Kopie)")
	assert.Equal(t, int64(2), clone.ID)
	assert.Equal(t, imported.Slots, clone.Slots)
	assert.Equal(t, imported.Rules, clone.Rules)

	out, err := execute(t, db, "text", "template", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "KO 4 (Kopie)")

	exported := filepath.Join(t.TempDir(), "ko4.yaml")
	mustJSON(t, db, nil, "template", "export", "2", "-o", exported)
	var validated ValidationResult
	mustJSON(t, db, &validated, "validate", exported)
	assert.True(t, validated.Valid)
	assert.Equal(t, imported.Fingerprint, validated.Fingerprint)

	mustJSON(t, db, nil, "template", "delete", "1")
	var list []TemplateSummary
	mustJSON(t, db, &list, "template", "list")
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)
}

func TestTemplateImport_Invalid(t *testing.T) {
	db := tempDB(t)
	doc, err := os.ReadFile(fourTeamsTemplate)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	broken := strings.Replace(string(doc), "num_teams: 4", "num_teams: 3", 1)
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))

	out, err := execute(t, db, "json", "template", "import", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, string(apply.CodeTemplateInvalid), decodeError(t, out).Code)

	var list []TemplateSummary
	mustJSON(t, db, &list, "template", "list")
	assert.Empty(t, list)
}

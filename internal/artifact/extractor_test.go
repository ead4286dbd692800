package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_EmptyInputReturnsZeroValue(t *testing.T) {
	turn := Extract("")
	assert.Empty(t, turn.Artifacts)
	assert.Zero(t, turn.ToolCallCount)
}

func TestExtract_ReadToolRecordsFileRead(t *testing.T) {
	line := `{"message":{"content":[{"type":"tool_use","name":"Read","input":{"file_path":"/repo/main.go"}}]}}`
	turn := Extract(line)
	require.Len(t, turn.FilesRead, 1)
	assert.Equal(t, "/repo/main.go", turn.FilesRead[0])
	assert.Equal(t, 1, turn.ToolCallCount)
}

func TestExtract_WriteAndEditTrackSeparately(t *testing.T) {
	lines := `{"message":{"content":[{"type":"tool_use","name":"Write","input":{"file_path":"/repo/new.go"}}]}}
{"message":{"content":[{"type":"tool_use","name":"Edit","input":{"file_path":"/repo/old.go","old_string":"x"}}]}}`
	turn := Extract(lines)
	assert.Equal(t, []string{"/repo/new.go"}, turn.FilesWritten)
	assert.Equal(t, []string{"/repo/old.go"}, turn.FilesEdited)
}

func TestExtract_BashRecordsCommand(t *testing.T) {
	line := `{"message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"go test ./..."}}]}}`
	turn := Extract(line)
	assert.Equal(t, []string{"go test ./..."}, turn.CommandsRun)
}

func TestExtract_ToolResultWithIsErrorFlagRecordsError(t *testing.T) {
	line := `{"message":{"content":[{"type":"tool_result","is_error":true,"content":"boom"}]}}`
	turn := Extract(line)
	require.Len(t, turn.ErrorsEncountered, 1)
	assert.Equal(t, "boom", turn.ErrorsEncountered[0])
}

func TestExtract_ToolResultWithErrorSignatureWithoutFlag(t *testing.T) {
	line := `{"message":{"content":[{"type":"tool_result","content":"Traceback (most recent call last): ..."}]}}`
	turn := Extract(line)
	require.Len(t, turn.ErrorsEncountered, 1)
}

func TestExtract_ToolResultWithoutErrorSignatureIsIgnored(t *testing.T) {
	line := `{"message":{"content":[{"type":"tool_result","content":"all good"}]}}`
	turn := Extract(line)
	assert.Empty(t, turn.ErrorsEncountered)
}

func TestExtract_SkipsMalformedLines(t *testing.T) {
	lines := "not json\n" + `{"message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"ls"}}]}}`
	turn := Extract(lines)
	assert.Equal(t, []string{"ls"}, turn.CommandsRun)
}

func TestExtract_DedupesRepeatedCommandAndError(t *testing.T) {
	lines := `{"message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"go test ./..."}}]}}
{"message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"go test ./..."}}]}}
{"message":{"content":[{"type":"tool_result","is_error":true,"content":"boom"}]}}
{"message":{"content":[{"type":"tool_result","is_error":true,"content":"boom"}]}}`
	turn := Extract(lines)
	assert.Equal(t, []string{"go test ./..."}, turn.CommandsRun)
	assert.Equal(t, []string{"boom"}, turn.ErrorsEncountered)
	assert.Equal(t, 2, turn.ToolCallCount)
}

func TestTurn_FilesTouchedDedupesAcrossReadWriteEdit(t *testing.T) {
	turn := Turn{
		FilesRead:    []string{"a.go", "b.go"},
		FilesWritten: []string{"b.go"},
		FilesEdited:  []string{"c.go"},
	}
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, turn.FilesTouched())
}

func TestExtractFilePathsFromText_MatchesAbsoluteAndRootedRelativePaths(t *testing.T) {
	paths := ExtractFilePathsFromText("see /repo/internal/store/jobs.go and src/worker/worker.go")
	assert.Contains(t, paths, "/repo/internal/store/jobs.go")
	assert.Contains(t, paths, "src/worker/worker.go")
}

func TestExtractFilePathsFromText_NoMatchesReturnsNil(t *testing.T) {
	assert.Nil(t, ExtractFilePathsFromText("nothing relevant here"))
}

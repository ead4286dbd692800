// Package artifact extracts files, commands, and errors surfaced by tool
// invocations within a turn's raw transcript lines.
package artifact

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Kind is the fine-grained artifact classification used while processing a
// turn, richer than the three-way store.ArtifactType it eventually
// collapses into.
type Kind string

const (
	KindFileRead  Kind = "file_read"
	KindFileWrite Kind = "file_write"
	KindFileEdit  Kind = "file_edit"
	KindCommand   Kind = "command"
	KindError     Kind = "error"
	KindToolCall  Kind = "tool_call"
)

// Artifact is one extracted item.
type Artifact struct {
	Kind     Kind
	Value    string
	Metadata map[string]any
}

// Turn holds everything extracted from one turn's raw JSONL.
type Turn struct {
	Artifacts         []Artifact
	FilesRead         []string
	FilesWritten      []string
	FilesEdited       []string
	CommandsRun       []string
	ErrorsEncountered []string
	ToolCallCount     int
}

// FilesTouched is the deduplicated union of read/written/edited paths.
func (t Turn) FilesTouched() []string {
	seen := map[string]bool{}
	var out []string
	for _, group := range [][]string{t.FilesRead, t.FilesWritten, t.FilesEdited} {
		for _, f := range group {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

var toolTypeMap = map[string]Kind{
	"Read":         KindFileRead,
	"Glob":         KindFileRead,
	"Grep":         KindFileRead,
	"Write":        KindFileWrite,
	"Edit":         KindFileEdit,
	"NotebookEdit": KindFileEdit,
	"Bash":         KindCommand,
}

// errorSignatures are substrings that flag a block as an error even absent
// an explicit is_error flag, per the extractor's stated contract.
var errorSignatures = []string{"Traceback", "error:", "Error:"}

type jsonlLine struct {
	Message struct {
		Content []contentBlock `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type    string          `json:"type"`
	Name    string          `json:"name"`
	Input   json.RawMessage `json:"input"`
	IsError bool            `json:"is_error"`
	Content json.RawMessage `json:"content"`
}

type toolInput struct {
	FilePath     string `json:"file_path"`
	NotebookPath string `json:"notebook_path"`
	Pattern      string `json:"pattern"`
	Path         string `json:"path"`
	Command      string `json:"command"`
	OldString    string `json:"old_string"`
}

// Extract parses raw JSONL turn content into a Turn's worth of artifacts.
func Extract(rawJSONL string) Turn {
	var result Turn
	if rawJSONL == "" {
		return result
	}

	for _, line := range strings.Split(rawJSONL, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec jsonlLine
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		for _, block := range rec.Message.Content {
			switch block.Type {
			case "tool_use":
				processToolUse(block, &result)
			case "tool_result":
				processToolResult(block, &result)
			}
		}
	}
	result.CommandsRun = dedupeStrings(result.CommandsRun)
	result.ErrorsEncountered = dedupeStrings(result.ErrorsEncountered)
	return result
}

// dedupeStrings collapses repeated entries while preserving first-seen
// order, same contract as FilesTouched's union.
func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func processToolUse(block contentBlock, result *Turn) {
	result.ToolCallCount++

	var in toolInput
	_ = json.Unmarshal(block.Input, &in)

	switch block.Name {
	case "Read":
		if in.FilePath != "" {
			result.FilesRead = append(result.FilesRead, in.FilePath)
			result.Artifacts = append(result.Artifacts, Artifact{Kind: KindFileRead, Value: in.FilePath, Metadata: map[string]any{"tool": block.Name}})
		}
	case "Glob", "Grep":
		value := in.Pattern
		if value == "" {
			value = in.Path
		}
		result.Artifacts = append(result.Artifacts, Artifact{
			Kind: KindFileRead, Value: value,
			Metadata: map[string]any{"tool": block.Name, "pattern": in.Pattern, "path": in.Path},
		})
	case "Write":
		if in.FilePath != "" {
			result.FilesWritten = append(result.FilesWritten, in.FilePath)
			result.Artifacts = append(result.Artifacts, Artifact{Kind: KindFileWrite, Value: in.FilePath, Metadata: map[string]any{"tool": block.Name}})
		}
	case "Edit", "NotebookEdit":
		path := in.FilePath
		if path == "" {
			path = in.NotebookPath
		}
		if path != "" {
			result.FilesEdited = append(result.FilesEdited, path)
			result.Artifacts = append(result.Artifacts, Artifact{
				Kind: KindFileEdit, Value: path,
				Metadata: map[string]any{"tool": block.Name, "old_string": truncate(in.OldString, 100)},
			})
		}
	case "Bash":
		if in.Command != "" {
			result.CommandsRun = append(result.CommandsRun, in.Command)
			result.Artifacts = append(result.Artifacts, Artifact{Kind: KindCommand, Value: truncate(in.Command, 500), Metadata: map[string]any{"tool": block.Name}})
		}
	default:
		result.Artifacts = append(result.Artifacts, Artifact{Kind: KindToolCall, Value: block.Name, Metadata: map[string]any{"tool": block.Name}})
	}
}

func processToolResult(block contentBlock, result *Turn) {
	text := extractResultText(block.Content)
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	isError := block.IsError
	if !isError {
		for _, sig := range errorSignatures {
			if strings.Contains(text, sig) {
				isError = true
				break
			}
		}
	}
	if !isError {
		return
	}

	msg := truncate(text, 500)
	result.ErrorsEncountered = append(result.ErrorsEncountered, msg)
	result.Artifacts = append(result.Artifacts, Artifact{Kind: KindError, Value: msg, Metadata: map[string]any{}})
}

func extractResultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var (
	absolutePathRE = regexp.MustCompile(`(^|[^\w])(/[\w./-]+\.\w+)`)
	relativePathRE = regexp.MustCompile(`(^|[^\w])((?:src|tests|lib|app|pkg)/[\w./-]+\.\w+)`)
)

// ExtractFilePathsFromText scans free text (a prompt, a message) for
// absolute paths and src/tests/lib/app/pkg-rooted relative paths that carry
// a file extension.
func ExtractFilePathsFromText(text string) []string {
	if text == "" {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, re := range []*regexp.Regexp{absolutePathRE, relativePathRE} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			path := strings.TrimSpace(m[2])
			if len(path) > 3 && !seen[path] {
				seen[path] = true
				out = append(out, path)
			}
		}
	}
	return out
}

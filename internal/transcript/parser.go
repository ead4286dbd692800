// Package transcript parses a line-delimited coding-assistant transcript
// into ordered turns. Parsing is pure: it takes only what an io.Reader
// hands it and performs no I/O of its own.
package transcript

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// Turn is one user message plus the assistant's contiguous response, up to
// (but not including) the next user message.
type Turn struct {
	TurnNumber    int
	UserMessage   string
	AssistantText string
	ToolNames     []string
	ModelName     string
	StartedAt     time.Time
	EndedAt       time.Time
	RawJSONL      string
	ContentHash   string
}

// Transcript is the parsed result of one session file.
type Transcript struct {
	Turns        []Turn
	SkippedLines int
}

// rawRecord matches the subset of fields every line-tagged record type
// (user, assistant, tool_use, tool_result, meta) may carry. Unknown record
// types and malformed lines are skipped, never fatal.
type rawRecord struct {
	Type        string `json:"type"`
	IsSidechain bool   `json:"isSidechain"`
	IsMeta      bool   `json:"isMeta"`
	Timestamp   string `json:"timestamp"`
	Message     struct {
		Role    string          `json:"role"`
		Model   string          `json:"model"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Name string `json:"name"`
}

// Parse reads a line-delimited transcript and groups it into turns. A new
// `user` record is treated as the unambiguous turn boundary: everything
// from one user message up to (not including) the next belongs to that
// turn, including any tool calls and results the assistant produced along
// the way. A trailing user message with no assistant reply becomes a turn
// with empty assistant content.
func Parse(r io.Reader) (*Transcript, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	type message struct {
		role      string
		text      string
		tools     []string
		model     string
		timestamp string
		rawLine   string
	}

	var messages []message
	var skipped int

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec rawRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			skipped++
			continue
		}
		if rec.Type != "user" && rec.Type != "assistant" {
			continue
		}
		if rec.IsSidechain || rec.IsMeta {
			continue
		}

		text, tools := extractContent(rec.Message.Content)
		if strings.HasPrefix(strings.TrimSpace(text), "<command-name>") ||
			strings.HasPrefix(strings.TrimSpace(text), "<local-command") {
			continue
		}

		messages = append(messages, message{
			role:      rec.Message.Role,
			text:      text,
			tools:     tools,
			model:     rec.Message.Model,
			timestamp: rec.Timestamp,
			rawLine:   line,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var turns []Turn
	var current *Turn
	var rawLines []string
	var assistantParts []string
	var toolSeen map[string]bool

	finalize := func() {
		if current == nil || current.UserMessage == "" {
			return
		}
		current.AssistantText = strings.Join(assistantParts, "\n")
		current.RawJSONL = strings.Join(rawLines, "\n")
		current.ContentHash = ComputeContentHash(current.UserMessage, current.AssistantText, current.ToolNames)
		turns = append(turns, *current)
	}

	for _, msg := range messages {
		ts, _ := time.Parse(time.RFC3339, strings.Replace(msg.timestamp, "Z", "+00:00", 1))

		switch msg.role {
		case "user":
			finalize()
			current = &Turn{
				TurnNumber:  len(turns),
				UserMessage: msg.text,
				StartedAt:   ts,
				EndedAt:     ts,
			}
			rawLines = []string{msg.rawLine}
			assistantParts = nil
			toolSeen = map[string]bool{}
		case "assistant":
			if current == nil {
				continue
			}
			if msg.text != "" {
				assistantParts = append(assistantParts, msg.text)
			}
			for _, t := range msg.tools {
				if !toolSeen[t] {
					toolSeen[t] = true
					current.ToolNames = append(current.ToolNames, t)
				}
			}
			if msg.model != "" && current.ModelName == "" {
				current.ModelName = msg.model
			}
			if !ts.IsZero() {
				current.EndedAt = ts
			}
			rawLines = append(rawLines, msg.rawLine)
		}
	}
	finalize()

	return &Transcript{Turns: turns, SkippedLines: skipped}, nil
}

// extractContent pulls plain text and tool names out of a message's
// content field, which is a bare string for user messages or a list of
// typed blocks for assistant messages.
func extractContent(raw json.RawMessage) (text string, tools []string) {
	if len(raw) == 0 {
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", nil
	}

	var textParts []string
	seen := map[string]bool{}
	for _, b := range blocks {
		switch b.Type {
		case "text":
			textParts = append(textParts, b.Text)
		case "tool_use":
			if b.Name != "" && !seen[b.Name] {
				seen[b.Name] = true
				tools = append(tools, b.Name)
			}
		}
	}
	return strings.Join(textParts, "\n"), tools
}

// ComputeContentHash returns the 64-hex-character SHA-256 digest over the
// deterministic combination of user message, assistant text, and ordered
// tool names, used to detect byte-identical re-ingestion.
func ComputeContentHash(userMessage, assistantText string, toolNames []string) string {
	h := sha256.New()
	h.Write([]byte(userMessage))
	h.Write([]byte{0})
	h.Write([]byte(assistantText))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(toolNames, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

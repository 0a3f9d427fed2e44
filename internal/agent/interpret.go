package agent

import (
	"encoding/json"
	"strings"
)

// ToolCall is a request from the model to run one tool.
type ToolCall struct {
	Tool  string
	Input string
}

// Interpret decides whether model output is a tool call. It returns
// ok=false for anything that is not a well-formed call; the caller then
// treats the text as a final answer. Registration is not checked here.
func Interpret(text string) (ToolCall, bool) {
	span, ok := extractBraceSpan(text)
	if !ok {
		return ToolCall{}, false
	}
	return decodeToolCall(span)
}

// extractBraceSpan returns the text from the first '{' through the last
// '}' inclusive. Prose or markdown fences around a JSON object are
// dropped; unrelated braces in that prose can widen the span and make
// decoding fail.
func extractBraceSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, '}')
	if end < start {
		return "", false
	}
	return text[start : end+1], true
}

// decodeToolCall parses span as a single JSON object. Keys match
// exactly: "tool" must be a non-empty string; "input" must be a string
// when present and defaults to empty. Other keys, including case
// variants such as "Tool", are ignored.
func decodeToolCall(span string) (ToolCall, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return ToolCall{}, false
	}

	var call ToolCall
	raw, ok := fields["tool"]
	if !ok || !decodeString(raw, &call.Tool) || call.Tool == "" {
		return ToolCall{}, false
	}
	if raw, ok := fields["input"]; ok && !decodeString(raw, &call.Input) {
		return ToolCall{}, false
	}
	return call, true
}

// decodeString reports whether raw is a JSON string, storing it in dst.
// null is rejected.
func decodeString(raw json.RawMessage, dst *string) bool {
	if len(raw) == 0 || raw[0] != '"' {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// Package memory holds the agent's conversation log: an append-only,
// ordered list of turns that survives restarts through a pluggable
// persistence backend.
package memory

import (
	"encoding/json"
	"fmt"
)

// Speaker identifies who produced a turn.
type Speaker int

const (
	// User turns carry console input and tool results.
	User Speaker = iota
	// Agent turns carry raw model output.
	Agent
)

// Persisted role labels. Agent turns are stored as "model".
const (
	roleUser  = "user"
	roleModel = "model"
)

// String returns the persisted role label for the speaker.
func (s Speaker) String() string {
	if s == Agent {
		return roleModel
	}
	return roleUser
}

func parseSpeaker(role string) (Speaker, error) {
	switch role {
	case roleUser:
		return User, nil
	case roleModel:
		return Agent, nil
	default:
		return User, fmt.Errorf("unknown role %q", role)
	}
}

// Turn is one entry of the conversation log.
type Turn struct {
	Speaker Speaker
	Text    string
}

// ToolResultPrefix starts every turn that carries a tool result back to
// the model.
const ToolResultPrefix = "Tool Result: "

// wireTurn is the on-disk shape of a turn.
type wireTurn struct {
	Role  string   `json:"role"`
	Parts []string `json:"parts"`
}

// Encode renders turns as a JSON array of {"role", "parts"} objects.
// An empty log encodes as [].
func Encode(turns []Turn) ([]byte, error) {
	wire := make([]wireTurn, len(turns))
	for i, t := range turns {
		wire[i] = wireTurn{Role: t.Speaker.String(), Parts: []string{t.Text}}
	}
	return json.MarshalIndent(wire, "", "  ")
}

// Decode parses the format written by Encode. Multiple parts are joined
// without a separator; a turn with no parts has empty text.
func Decode(data []byte) ([]Turn, error) {
	var wire []wireTurn
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}

	turns := make([]Turn, 0, len(wire))
	for i, w := range wire {
		speaker, err := parseSpeaker(w.Role)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
		var text string
		for _, p := range w.Parts {
			text += p
		}
		turns = append(turns, Turn{Speaker: speaker, Text: text})
	}
	return turns, nil
}

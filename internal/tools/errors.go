package tools

import "fmt"

// ErrUnknownTool is returned when a call names a tool that is not in the
// registry. The agent loop treats such a call as a plain answer rather
// than retrying.
type ErrUnknownTool struct {
	ToolName string
}

// Error implements the error interface.
func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("tool %q is not registered", e.ToolName)
}

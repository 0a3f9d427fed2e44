package prompts

import "fmt"

// TurnLimitMessage is returned when a request uses every model turn
// without producing a final answer. It is never stored in the
// conversation.
const TurnLimitMessage = "Error: Maximum turn limit reached."

// ModelErrorMessage is returned when the model call itself fails.
func ModelErrorMessage(err error) string {
	return fmt.Sprintf("Error communicating with model: %v", err)
}

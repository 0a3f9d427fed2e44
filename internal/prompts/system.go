package prompts

import (
	"fmt"
	"strings"

	"github.com/nugget/scout/internal/tools"
)

// systemTemplate is the preamble sent as the single system message on
// every model call. The format verb receives the tool list.
const systemTemplate = `You are a helpful AI assistant with access to the following tools:
%s

To use a tool, you MUST respond with a JSON object in the following format:
{"tool": "tool_name", "input": "tool_input"}

When you call a tool, your response must contain only that JSON object
and nothing else. Do not add an answer, explanation or markdown around it.

If you do not need to use a tool, just respond normally.
When you receive a message starting with "Tool Result: ", use it to answer the user's question.
Always verify news by checking multiple sources if possible.`

// searchHints is appended when a search tool is available.
const searchHints = `

IMPORTANT: When using the 'search' tool, you can use natural language queries, but specific keywords often yield better results.
The search tool returns content snippets. You may not always need to scrape if the snippet answers the question.`

// SystemPrompt renders the preamble for the given tools, one
// "- name: description" line each, in the order given.
func SystemPrompt(descs []tools.Descriptor) string {
	var list strings.Builder
	hasSearch := false
	for i, d := range descs {
		if i > 0 {
			list.WriteByte('\n')
		}
		fmt.Fprintf(&list, "- %s: %s", d.Name, d.Description)
		if d.Name == "search" {
			hasSearch = true
		}
	}

	prompt := fmt.Sprintf(systemTemplate, list.String())
	if hasSearch {
		prompt += searchHints
	}
	return prompt
}

// Package prompts contains the prompt text and fixed user-facing
// messages Scout sends to models and prints to the console.
//
// Prompt text is Go code rather than config files because it is program
// logic: templates are built from the live tool registry and can be
// validated by tests.
//
// Convention: each prompt category gets its own file with an exported
// function that accepts the dynamic parts and returns the fully
// interpolated string.
package prompts

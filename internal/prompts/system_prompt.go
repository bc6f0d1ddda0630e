// Package prompts holds the default prompts that open a navigation session.
package prompts

import "strings"

// DefaultSystem is the system prompt used when none is configured.
const DefaultSystem = "You are a helpful webpage navigation assistant. Use the supplied tools to assist the user."

// DefaultUser is the request sent when the command line gives none.
const DefaultUser = "Hi, can you go to the career page of the xAI website?"

// System returns override, or DefaultSystem when override is blank.
// A single "-" disables the system prompt.
func System(override string) string {
	switch strings.TrimSpace(override) {
	case "":
		return DefaultSystem
	case "-":
		return ""
	}
	return override
}

// User joins the command line words into a request, falling back to
// DefaultUser.
func User(args []string) string {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		return DefaultUser
	}
	return prompt
}

package oracle

import (
	_ "embed"
)

//go:embed prompts/system_prompt.md
var systemPrompt string

// SystemPrompt returns the reviewer persona sent with every consultation.
func SystemPrompt() string {
	return systemPrompt
}

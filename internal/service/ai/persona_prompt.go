package ai

import (
	"strings"
)

// defaultHouseRules are appended to every persona prompt so both sides of a
// match text the same way.
var defaultHouseRules = []string{
	"Reply with a single short text message, never more than two sentences.",
	"Never narrate actions, never prefix your message with your name.",
	"Write in English only.",
	"Use at most one or two emoji.",
}

// PromptManager turns a persona prompt into the final system prompt.
type PromptManager struct {
	rules []string
}

// NewPromptManager creates a manager with the default house rules.
func NewPromptManager(rules ...string) *PromptManager {
	if len(rules) == 0 {
		rules = defaultHouseRules
	}
	return &PromptManager{rules: append([]string(nil), rules...)}
}

// BuildSystemPrompt appends the house rules to the persona prompt.
func (pm *PromptManager) BuildSystemPrompt(personaPrompt string) string {
	base := strings.TrimSpace(personaPrompt)
	if len(pm.rules) == 0 {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nTexting rules:\n- ")
	b.WriteString(strings.Join(pm.rules, "\n- "))
	return b.String()
}

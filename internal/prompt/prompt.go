// Package prompt builds the per-request chat prompt and renders it into the
// text form expected by the model runtime.
package prompt

import "strings"

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a role-tagged chat message.
type Message struct {
	Role    Role
	Content string
}

// Prompt is the ordered pair of system instructions and user input sent for
// one reply. It is immutable once built.
type Prompt struct {
	system Message
	user   Message
}

// Build constructs the two-message prompt. The user message is trimmed; the
// instructions are kept verbatim and may be empty.
func Build(instructions, message string) Prompt {
	return Prompt{
		system: Message{Role: RoleSystem, Content: instructions},
		user:   Message{Role: RoleUser, Content: strings.TrimSpace(message)},
	}
}

// Messages returns a copy of the prompt's messages in order.
func (p Prompt) Messages() []Message {
	return []Message{p.system, p.user}
}

// User returns the user turn's text.
func (p Prompt) User() string { return p.user.Content }

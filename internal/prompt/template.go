package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Template renders messages into a single prompt string ending with the
// assistant generation header. Templates never emit a BOS token: both runtimes
// add it during tokenization.
type Template struct {
	Name   string
	render func(b *strings.Builder, msgs []Message)
}

var templates = map[string]Template{
	"llama3": {Name: "llama3", render: renderLlama3},
	"chatml": {Name: "chatml", render: renderChatML},
	"plain":  {Name: "plain", render: renderPlain},
}

// Lookup returns the template registered under name.
func Lookup(name string) (Template, error) {
	t, ok := templates[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Template{}, fmt.Errorf("unknown chat template %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return t, nil
}

// Names lists the registered template names, sorted.
func Names() []string {
	out := make([]string, 0, len(templates))
	for n := range templates {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Render renders p including the generation prompt for the assistant turn.
func (t Template) Render(p Prompt) string {
	var b strings.Builder
	t.render(&b, p.Messages())
	return b.String()
}

func renderLlama3(b *strings.Builder, msgs []Message) {
	for _, m := range msgs {
		b.WriteString("<|start_header_id|>")
		b.WriteString(string(m.Role))
		b.WriteString("<|end_header_id|>\n\n")
		b.WriteString(strings.TrimSpace(m.Content))
		b.WriteString("<|eot_id|>")
	}
	b.WriteString("<|start_header_id|>assistant<|end_header_id|>\n\n")
}

func renderChatML(b *strings.Builder, msgs []Message) {
	for _, m := range msgs {
		b.WriteString("<|im_start|>")
		b.WriteString(string(m.Role))
		b.WriteByte('\n')
		b.WriteString(m.Content)
		b.WriteString("<|im_end|>\n")
	}
	b.WriteString("<|im_start|>assistant\n")
}

// renderPlain is for base models without chat special tokens; empty system
// instructions are omitted.
func renderPlain(b *strings.Builder, msgs []Message) {
	for _, m := range msgs {
		if m.Role == RoleSystem && strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case RoleSystem:
			b.WriteString("System: ")
		case RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("Assistant:")
}

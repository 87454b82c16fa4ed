package prompts

import "strings"

// ReplyContract is appended to every persona prompt. It is the only place the
// reply schema is described to the model.
const ReplyContract = `When responding, **ONLY return valid JSON** formatted exactly as follows:
{
    "sensations": ["string1", "string2", "string3"],
    "thoughts": ["string1", "string2", "string3"],
    "memories": "string",
    "self_reflection": "string",
    "response": "string - your direct response to the user"
}`

// ContinuityReminder follows the prior conversation block.
const ContinuityReminder = "Remember to maintain continuity with any previous interactions and reference past exchanges when relevant."

// Builder assembles the single-string model prompt using a fluent interface.
type Builder struct {
	persona   string
	context   string
	userInput string
}

// New creates an empty prompt builder.
func New() *Builder {
	return &Builder{}
}

// WithPersona sets the rendered persona preamble.
func (b *Builder) WithPersona(persona string) *Builder {
	b.persona = persona
	return b
}

// WithContext sets the assembled conversation context.
func (b *Builder) WithContext(context string) *Builder {
	b.context = context
	return b
}

// WithUserInput sets the current user utterance.
func (b *Builder) WithUserInput(input string) *Builder {
	b.userInput = input
	return b
}

// Build renders the prompt. The JSON contract is always last before the user turn.
func (b *Builder) Build() string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(b.persona))
	sb.WriteString("\n\nPrevious conversation:\n")
	sb.WriteString(b.context)
	sb.WriteString("\n\n")
	sb.WriteString(ContinuityReminder)
	sb.WriteString("\n\n")
	sb.WriteString(ReplyContract)
	sb.WriteString("\nUser: ")
	sb.WriteString(b.userInput)
	sb.WriteString("\nAssistant:\n")
	return sb.String()
}

package chat

import "strings"

// Invocation is the runtime payload accepted by POST /invocations and sent
// by the runtime invoker. A caller provides either a ready prompt or the
// variables to render one.
type Invocation struct {
	Prompt    string            `json:"prompt,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
	Persona   InvocationPersona `json:"persona"`
	Context   string            `json:"context,omitempty"`
	Message   InvocationMessage `json:"message"`
}

type InvocationPersona struct {
	Name        string   `json:"name,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

type InvocationMessage struct {
	ID    string `json:"id,omitempty"`
	Owner string `json:"owner,omitempty"`
}

// UserInput returns the user utterance carried in the variables.
func (inv *Invocation) UserInput() string {
	return strings.TrimSpace(inv.Variables["user_input"])
}

// ContextText returns the conversation context, preferring the variables.
func (inv *Invocation) ContextText() string {
	if c, ok := inv.Variables["context"]; ok {
		return c
	}
	return inv.Context
}

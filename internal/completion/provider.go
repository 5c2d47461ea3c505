// Package completion talks to the upstream text-completion backend. The rest
// of the system treats it as an opaque service behind the Provider interface.
package completion

import "context"

// Provider produces summaries for user prompts.
type Provider interface {
	// Complete returns the full reply in one piece.
	Complete(ctx context.Context, prompt, style string) (string, error)

	// Stream returns a channel of reply fragments in arrival order and a
	// channel carrying the terminal error. Both are closed when the upstream
	// finishes; the error channel yields at most one value, nil-or-closed
	// meaning the reply is complete and non-nil meaning it was cut short.
	// Cancelling ctx stops the relay and releases the upstream connection.
	Stream(ctx context.Context, prompt, style string) (<-chan string, <-chan error, error)
}

// DefaultStyle is applied when a request carries no style.
const DefaultStyle = "brief"

// systemPrompts maps a summary style to the instruction sent upstream.
var systemPrompts = map[string]string{
	"brief":    "You are a summarization assistant. Reply with a short, plain summary of the user's text in at most three sentences.",
	"detailed": "You are a summarization assistant. Reply with a thorough summary of the user's text, keeping all key points.",
	"bullets":  "You are a summarization assistant. Reply with a bullet-point summary of the user's text.",
}

// SystemPrompt returns the instruction for a style, falling back to brief.
func SystemPrompt(style string) string {
	if p, ok := systemPrompts[style]; ok {
		return p
	}
	return systemPrompts[DefaultStyle]
}

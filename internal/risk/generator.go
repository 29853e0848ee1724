// Package risk classifies student messages into risk tiers and produces supportive
// replies on top of a pluggable text-generation backend.
package risk

import "context"

// Generator produces a completion for a system instruction and a user message.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

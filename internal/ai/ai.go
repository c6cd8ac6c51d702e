// Package ai defines the language-model collaborator and the prompt it receives.
package ai

import (
	"context"
	"errors"
)

// ErrPayloadTooLarge is returned by providers when the request is rejected for its size.
var ErrPayloadTooLarge = errors.New("payload too large")

// Generator sends a system instruction and a message to a model and returns its text.
type Generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Package ai describes the single-turn completion endpoint used for extraction.
package ai

import (
	"context"
	"fmt"
)

// Completer sends one user prompt and returns the text of the first response segment.
// maxOutputTokens bounds the size of the generated answer.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxOutputTokens int32) (string, error)
}

// ConfigurationError reports a completion client that cannot be built from its settings.
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Setting == "" {
		return fmt.Sprintf("ai configuration: %s", e.Message)
	}
	return fmt.Sprintf("ai configuration: %s: %s", e.Setting, e.Message)
}

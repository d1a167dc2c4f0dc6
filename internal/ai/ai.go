// Package ai defines the inference boundary the pipeline talks to. The
// concrete provider lives in subpackages; everything else depends only on
// the Generator contract and the response-repair helpers here.
package ai

import "context"

// Generator produces a textual completion for a prompt. Implementations must
// be safe for sequential reuse across pipeline steps. Responses are never
// trusted to be schema-compliant; callers repair them with the helpers in
// this package.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

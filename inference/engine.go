// Package inference - Inference engine interface and implementations.
package inference

import "context"

// Engine is the capability interface for an external inference engine: a
// black-box function from named input tensors to named output tensors. The
// pipeline treats every call as an asynchronous boundary and never starts a
// downstream stage before the call returns. Implementations must be safe for
// sequential reuse across requests; the pipeline never calls Infer
// concurrently on one engine.
type Engine interface {
	// Infer runs the model on the given named inputs and returns its named
	// outputs.
	Infer(ctx context.Context, inputs map[string]*Tensor) (map[string]*Tensor, error)
	// Close releases the engine's resources.
	Close() error
}

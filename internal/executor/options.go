package executor

import (
	"fmt"
	"time"

	"manifold/internal/llm"
)

// Options configures a single Execute/Stream call.
type Options struct {
	Model            string
	MaxIterations    int
	MaxDepth         int
	SandboxTimeout   time.Duration
	Temperature      float64
	MaxCostUSD       float64
	MaxTokens        int64
	Verbose          bool
	ExtendedThinking *llm.ExtendedThinking

	// ImageBase64/ImageMIMEType are copied into every turn's completion
	// request. The bundled anthropic, openai and google providers do not
	// read these fields, so no image reaches the model through them.
	ImageBase64   string
	ImageMIMEType string
}

// withDefaults returns a copy of o with zero-valued fields replaced by the
// documented defaults.
func (o Options) withDefaults() Options {
	if o.MaxIterations == 0 {
		o.MaxIterations = 20
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = 1
	}
	if o.SandboxTimeout == 0 {
		o.SandboxTimeout = 10 * time.Second
	}
	return o
}

func (o Options) validate() error {
	if o.Model == "" {
		return fmt.Errorf("model is required")
	}
	if o.MaxIterations < 1 {
		return fmt.Errorf("maxIterations must be >= 1, got %d", o.MaxIterations)
	}
	if o.MaxDepth < 0 {
		return fmt.Errorf("maxDepth must be >= 0, got %d", o.MaxDepth)
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", o.Temperature)
	}
	if o.SandboxTimeout < time.Second {
		return fmt.Errorf("sandboxTimeout must be at least 1s, got %s", o.SandboxTimeout)
	}
	return nil
}

package render

import (
	"context"
)

// Renderer converts a Page snapshot into a byte representation (HTML, JSON,
// plain text). Interactive renderers that drive a session directly still
// implement this contract for their static output.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, page Page) ([]byte, error)
}

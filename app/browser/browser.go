package browser

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("browser is closed")

// Renderer returns the rendered HTML of a page. Stages hold a Renderer and
// never close it.
type Renderer interface {
	Render(ctx context.Context, pageURL string, waitSelector string) (string, error)
}

// Browser is a Renderer owned by the caller that launched it.
type Browser interface {
	Renderer
	Close() error
}

// Launcher starts a browser for a single pipeline run.
type Launcher func(ctx context.Context) (Browser, error)

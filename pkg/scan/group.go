package scan

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAll runs every scanner concurrently, each on its own goroutine. The
// first error cancels the others and is returned. Scanners must not share a
// Stepper or a Program.
func RunAll(ctx context.Context, scanners ...*Scanner) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range scanners {
		s := s // per-iteration copy; go directive is below 1.22
		g.Go(func() error {
			return s.Run(gctx)
		})
	}
	return g.Wait()
}

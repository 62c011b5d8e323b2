package segment

import "context"

// NoopPreloader is used when no sidecar is configured. Preload returns
// immediately so the analysis pair still runs both units.
type NoopPreloader struct{}

// Ensure NoopPreloader implements Preloader interface
var _ Preloader = NoopPreloader{}

// Preload implements the Preloader interface as a no-op.
func (NoopPreloader) Preload(context.Context, string) error {
	return nil
}

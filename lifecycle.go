package kestrel

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// Service is anything the service group runs for the lifetime of the
// application: the HTTP server, the date cache, auxiliary background
// workers, shutdown jobs. `Run` should return promptly once ctx is
// cancelled, per `spec.md` §4.6.
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc adapts a plain function to `Service`.
type ServiceFunc func(ctx context.Context) error

// Run implements `Service`.
func (f ServiceFunc) Run(ctx context.Context) error { return f(ctx) }

// Precursor wraps a `Service` so a one-shot callback (`Pre`) must
// complete before `Inner.Run` is entered, per `spec.md` §4.6/§9 ("compose
// rather than inherit"). `Application` uses this to defer HTTP server
// start until the user's `ProcessesRunBeforeServerStart` callbacks finish
// while other services are already running.
type Precursor struct {
	Pre   func(ctx context.Context) error
	Inner Service
}

// Run implements `Service`.
func (p *Precursor) Run(ctx context.Context) error {
	if p.Pre != nil {
		if err := p.Pre(ctx); err != nil {
			return err
		}
	}

	return p.Inner.Run(ctx)
}

// ServiceGroup runs a fixed set of `Service`s concurrently, cancelling
// all of them as soon as any one returns (error or not) or a configured
// OS signal arrives, using `golang.org/x/sync/errgroup` the way
// `go-mizu-mizu`'s lifecycle does for its own service set.
type ServiceGroup struct {
	Services        []Service
	ShutdownSignals []os.Signal
}

// NewServiceGroup returns a `ServiceGroup` running services, shut down by
// SIGTERM/SIGINT unless overridden via `ShutdownSignals`.
func NewServiceGroup(services ...Service) *ServiceGroup {
	return &ServiceGroup{Services: services}
}

// Run starts every service in its own goroutine and blocks until all of
// them have returned: either because one of them returned on its own
// (error or nil, which cancels the rest), or because a shutdown signal
// arrived and every service observed the resulting context cancellation.
func (g *ServiceGroup) Run(parent context.Context) error {
	signals := g.ShutdownSignals
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}

	ctx, stop := signal.NotifyContext(parent, signals...)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, gctx := errgroup.WithContext(ctx)

	for _, svc := range g.Services {
		svc := svc
		eg.Go(func() error {
			// errgroup cancels only on a non-nil error; a nil return
			// must end the group as well.
			defer cancel()
			return svc.Run(gctx)
		})
	}

	return eg.Wait()
}

package webnav

import (
	"context"

	"github.com/roach88/navexpect/internal/engine"
)

// Source delivers observed navigation events in host arrival order.
type Source interface {
	// Events returns the stream of observed events. The channel closes
	// after Close.
	Events() <-chan engine.ObservedEvent
	Close() error
}

// Navigator starts navigations in the host.
type Navigator interface {
	// Navigate points tab (a normalized tab id) at url.
	Navigate(ctx context.Context, tab int64, url string) error
}

// Browser is a host that both navigates and reports events.
type Browser interface {
	Source
	Navigator
}

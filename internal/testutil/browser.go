package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/webnav"
)

// ScriptedBrowser is an in-process webnav.Browser. Navigating to a scripted
// URL replays that script's host records through a real Normalizer and
// Queue, so tests exercise the same path as a live browser.
type ScriptedBrowser struct {
	mu          sync.Mutex
	scripts     map[string][]webnav.Record
	navigations []string
	navErr      error

	norm  *webnav.Normalizer
	queue *webnav.Queue
	clock *DeterministicClock
}

// NewScriptedBrowser returns a browser with no scripts.
func NewScriptedBrowser() *ScriptedBrowser {
	return &ScriptedBrowser{
		scripts: make(map[string][]webnav.Record),
		norm:    webnav.NewNormalizer(),
		queue:   webnav.NewQueue(),
		clock:   NewDeterministicClock(),
	}
}

// Script sets the records emitted when url is navigated to.
func (b *ScriptedBrowser) Script(url string, records ...webnav.Record) *ScriptedBrowser {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts[url] = records
	return b
}

// FailNavigate makes every later Navigate return err.
func (b *ScriptedBrowser) FailNavigate(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.navErr = err
}

// Navigations returns the URLs navigated to, in order.
func (b *ScriptedBrowser) Navigations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.navigations))
	copy(out, b.navigations)
	return out
}

// Emit normalizes rec and queues it. A zero TimeStamp is filled from the
// deterministic clock.
func (b *ScriptedBrowser) Emit(rec webnav.Record) error {
	if rec.TimeStamp == 0 {
		rec.TimeStamp = b.clock.Now().UnixMilli()
	}
	ev, err := b.norm.Normalize(rec)
	if err != nil {
		return err
	}
	if !b.queue.Push(ev) {
		return errors.New("scripted browser is closed")
	}
	return nil
}

// Navigate implements webnav.Navigator.
func (b *ScriptedBrowser) Navigate(ctx context.Context, tab int64, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tab != 0 {
		return fmt.Errorf("scripted browser has no tab %d", tab)
	}

	b.mu.Lock()
	b.navigations = append(b.navigations, url)
	navErr := b.navErr
	script := b.scripts[url]
	b.mu.Unlock()

	if navErr != nil {
		return navErr
	}
	for _, rec := range script {
		if err := b.Emit(rec); err != nil {
			return err
		}
	}
	return nil
}

// Events implements webnav.Source.
func (b *ScriptedBrowser) Events() <-chan engine.ObservedEvent {
	return b.queue.Events()
}

// Close implements webnav.Source.
func (b *ScriptedBrowser) Close() error {
	b.queue.Close()
	return nil
}

var _ webnav.Browser = (*ScriptedBrowser)(nil)

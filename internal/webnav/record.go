package webnav

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/ir"
)

// ErrUnknownEvent is returned when a record names no lifecycle event.
var ErrUnknownEvent = errors.New("unknown navigation event")

// ErrMissingTransition is returned for a commit record without a
// transition type.
var ErrMissingTransition = errors.New("commit record has no transition type")

// Record is a navigation event as the host reports it, before frame and
// tab ids are normalized.
type Record struct {
	Event      string
	RawFrameID string
	IsTopFrame bool
	RawTabID   string

	// TimeStamp is in milliseconds since the epoch.
	TimeStamp int64
	URL       string

	// RequestID is set on onBeforeNavigate only.
	RequestID string

	// Transition fields are set on onCommitted only.
	TransitionType       TransitionType
	TransitionQualifiers []string
}

// Normalizer assigns deterministic frame and tab ids to host records.
// It is safe for concurrent use.
type Normalizer struct {
	mu        sync.Mutex
	frames    map[string]int64
	nextFrame int64
	tabs      map[string]int64
	nextTab   int64
}

// NewNormalizer returns a normalizer with no frames or tabs seen.
func NewNormalizer() *Normalizer {
	n := &Normalizer{}
	n.Reset()
	return n
}

// Reset forgets every frame and tab, so the next top frame seen is 0 again
// and subframes restart at 1.
func (n *Normalizer) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.frames = make(map[string]int64)
	n.nextFrame = 1
	n.tabs = make(map[string]int64)
	n.nextTab = 0
}

// FrameID returns the normalized id for a host frame.
func (n *Normalizer) FrameID(raw string, top bool) int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.frameLocked(raw, top)
}

func (n *Normalizer) frameLocked(raw string, top bool) int64 {
	if top {
		n.frames[raw] = 0
		return 0
	}
	if id, ok := n.frames[raw]; ok {
		return id
	}
	id := n.nextFrame
	n.nextFrame++
	n.frames[raw] = id
	return id
}

// TabID returns the normalized id for a host tab.
func (n *Normalizer) TabID(raw string) int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if id, ok := n.tabs[raw]; ok {
		return id
	}
	id := n.nextTab
	n.nextTab++
	n.tabs[raw] = id
	return id
}

// Normalize converts r into an observed event carrying the attribute set of
// its event type.
func (n *Normalizer) Normalize(r Record) (engine.ObservedEvent, error) {
	if !KnownEvent(r.Event) {
		return engine.ObservedEvent{}, fmt.Errorf("%w: %q", ErrUnknownEvent, r.Event)
	}
	if r.Event == EventCommitted && r.TransitionType == "" {
		return engine.ObservedEvent{}, fmt.Errorf("frame %s: %w", r.RawFrameID, ErrMissingTransition)
	}

	n.mu.Lock()
	frame := n.frameLocked(r.RawFrameID, r.IsTopFrame)
	n.mu.Unlock()
	tab := n.TabID(r.RawTabID)

	attrs := ir.Object{
		FieldFrameID:   ir.Int(frame),
		FieldTabID:     ir.Int(tab),
		FieldTimeStamp: ir.Int(r.TimeStamp),
		FieldURL:       ir.String(r.URL),
	}
	switch r.Event {
	case EventBeforeNavigate:
		attrs[FieldRequestID] = ir.String(r.RequestID)
	case EventCommitted:
		attrs[FieldTransitionType] = ir.String(r.TransitionType)
		attrs[FieldTransitionQualifiers] = qualifierArray(r.TransitionQualifiers)
	}
	return engine.ObservedEvent{Name: r.Event, Attributes: attrs}, nil
}

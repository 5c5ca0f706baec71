package webnav

import (
	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/ir"
)

// Lifecycle event names, in the order a single frame emits them.
const (
	EventBeforeNavigate   = "onBeforeNavigate"
	EventCommitted        = "onCommitted"
	EventDOMContentLoaded = "onDOMContentLoaded"
	EventCompleted        = "onCompleted"
)

// Attribute names.
const (
	FieldFrameID              = "frameId"
	FieldTabID                = "tabId"
	FieldTimeStamp            = "timeStamp"
	FieldURL                  = "url"
	FieldRequestID            = "requestId"
	FieldTransitionType       = "transitionType"
	FieldTransitionQualifiers = "transitionQualifiers"
)

// TransitionType is the opaque reason tag on onCommitted. It is compared by
// exact string match only.
type TransitionType string

const (
	TransitionLink             TransitionType = "link"
	TransitionTyped            TransitionType = "typed"
	TransitionAutoBookmark     TransitionType = "auto_bookmark"
	TransitionAutoSubframe     TransitionType = "auto_subframe"
	TransitionManualSubframe   TransitionType = "manual_subframe"
	TransitionGenerated        TransitionType = "generated"
	TransitionStartPage        TransitionType = "start_page"
	TransitionFormSubmit       TransitionType = "form_submit"
	TransitionReload           TransitionType = "reload"
	TransitionKeyword          TransitionType = "keyword"
	TransitionKeywordGenerated TransitionType = "keyword_generated"
)

var knownTransitions = map[TransitionType]bool{
	TransitionLink:             true,
	TransitionTyped:            true,
	TransitionAutoBookmark:     true,
	TransitionAutoSubframe:     true,
	TransitionManualSubframe:   true,
	TransitionGenerated:        true,
	TransitionStartPage:        true,
	TransitionFormSubmit:       true,
	TransitionReload:           true,
	TransitionKeyword:          true,
	TransitionKeywordGenerated: true,
}

// Known reports whether t is one of the host's transition types.
func (t TransitionType) Known() bool { return knownTransitions[t] }

// KnownEvent reports whether name is a lifecycle event this package emits.
func KnownEvent(name string) bool {
	switch name {
	case EventBeforeNavigate, EventCommitted, EventDOMContentLoaded, EventCompleted:
		return true
	}
	return false
}

// Fields returns the attribute set an event of the given name carries.
func Fields(name string) []string {
	base := []string{FieldFrameID, FieldTabID, FieldTimeStamp, FieldURL}
	switch name {
	case EventBeforeNavigate:
		return append(base, FieldRequestID)
	case EventCommitted:
		return append(base, FieldTransitionQualifiers, FieldTransitionType)
	}
	return base
}

func expected(name string, frame int64, url string) engine.ExpectedEvent {
	return engine.ExpectedEvent{
		Name: name,
		Attributes: map[string]engine.Expectation{
			FieldFrameID:   engine.Equal(ir.Int(frame)),
			FieldTabID:     engine.Equal(ir.Int(0)),
			FieldTimeStamp: engine.Any(),
			FieldURL:       engine.Equal(ir.String(url)),
		},
	}
}

// BeforeNavigate expects a navigation to url to start in frame.
func BeforeNavigate(frame int64, url string) engine.ExpectedEvent {
	return expected(EventBeforeNavigate, frame, url).With(FieldRequestID, engine.Any())
}

// Committed expects frame to commit url with the given transition.
func Committed(frame int64, transition TransitionType, url string, qualifiers ...string) engine.ExpectedEvent {
	return expected(EventCommitted, frame, url).
		With(FieldTransitionType, engine.Equal(ir.String(transition))).
		With(FieldTransitionQualifiers, engine.Equal(qualifierArray(qualifiers)))
}

// DOMContentLoaded expects frame's document to finish parsing.
func DOMContentLoaded(frame int64, url string) engine.ExpectedEvent {
	return expected(EventDOMContentLoaded, frame, url)
}

// Completed expects frame to finish loading.
func Completed(frame int64, url string) engine.ExpectedEvent {
	return expected(EventCompleted, frame, url)
}

func qualifierArray(qs []string) ir.Array {
	arr := make(ir.Array, len(qs))
	for i, q := range qs {
		arr[i] = ir.String(q)
	}
	return arr
}

package cdp

import (
	"time"

	cdptypes "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"

	"github.com/roach88/navexpect/internal/webnav"
)

// Lifecycle event names Chrome reports through Page.lifecycleEvent.
const (
	lifecycleDOMContentLoaded = "DOMContentLoaded"
	lifecycleLoad             = "load"
)

// translator turns raw protocol events for one tab into webnav records.
// It tracks frame parentage and commit counts, which the protocol does not
// carry on every event.
type translator struct {
	tab     string
	parents map[cdptypes.FrameID]cdptypes.FrameID
	commits map[cdptypes.FrameID]int
	urls    map[cdptypes.FrameID]string
	now     func() time.Time
}

func newTranslator(tab string, now func() time.Time) *translator {
	if now == nil {
		now = time.Now
	}
	return &translator{
		tab:     tab,
		parents: make(map[cdptypes.FrameID]cdptypes.FrameID),
		commits: make(map[cdptypes.FrameID]int),
		urls:    make(map[cdptypes.FrameID]string),
		now:     now,
	}
}

func (t *translator) isTop(id cdptypes.FrameID) bool {
	return t.parents[id] == ""
}

func (t *translator) record(event string, frame cdptypes.FrameID, url string, ts time.Time) webnav.Record {
	return webnav.Record{
		Event:      event,
		RawFrameID: string(frame),
		IsTopFrame: t.isTop(frame),
		RawTabID:   t.tab,
		TimeStamp:  ts.UnixMilli(),
		URL:        url,
	}
}

// translate returns the record for ev, if ev is a lifecycle event.
func (t *translator) translate(ev any) (webnav.Record, bool) {
	switch ev := ev.(type) {
	case *page.EventFrameAttached:
		t.parents[ev.FrameID] = ev.ParentFrameID

	case *page.EventFrameDetached:
		delete(t.commits, ev.FrameID)
		delete(t.urls, ev.FrameID)

	case *network.EventRequestWillBeSent:
		// Server redirects continue the same navigation.
		if ev.Type != network.ResourceTypeDocument || ev.RedirectResponse != nil {
			return webnav.Record{}, false
		}
		url := ev.DocumentURL
		if ev.Request != nil {
			url = ev.Request.URL
		}
		ts := t.now()
		if ev.WallTime != nil {
			ts = ev.WallTime.Time()
		}
		rec := t.record(webnav.EventBeforeNavigate, ev.FrameID, url, ts)
		rec.RequestID = string(ev.RequestID)
		return rec, true

	case *page.EventFrameNavigated:
		if ev.Frame == nil {
			return webnav.Record{}, false
		}
		f := ev.Frame
		if f.ParentID != "" {
			t.parents[f.ID] = f.ParentID
		}
		t.commits[f.ID]++
		t.urls[f.ID] = f.URL + f.URLFragment

		rec := t.record(webnav.EventCommitted, f.ID, t.urls[f.ID], t.now())
		rec.TransitionType = t.transition(f.ID)
		return rec, true

	case *page.EventLifecycleEvent:
		var name string
		switch ev.Name {
		case lifecycleDOMContentLoaded:
			name = webnav.EventDOMContentLoaded
		case lifecycleLoad:
			name = webnav.EventCompleted
		default:
			return webnav.Record{}, false
		}
		return t.record(name, ev.FrameID, t.urls[ev.FrameID], t.now()), true
	}
	return webnav.Record{}, false
}

// transition classifies a commit. Top-level navigations are issued as
// links; a subframe's first commit is automatic and any later one was
// started by the subframe itself.
func (t *translator) transition(id cdptypes.FrameID) webnav.TransitionType {
	if t.isTop(id) {
		return webnav.TransitionLink
	}
	if t.commits[id] <= 1 {
		return webnav.TransitionAutoSubframe
	}
	return webnav.TransitionManualSubframe
}

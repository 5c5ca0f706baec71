package testutil

import "github.com/roach88/navexpect/internal/webnav"

type frameRecorder struct {
	raw string
	top bool
}

func (f frameRecorder) rec(event, url string) webnav.Record {
	return webnav.Record{Event: event, RawFrameID: f.raw, IsTopFrame: f.top, RawTabID: "TAB-1", URL: url}
}

func (f frameRecorder) before(url, req string) webnav.Record {
	r := f.rec(webnav.EventBeforeNavigate, url)
	r.RequestID = req
	return r
}

func (f frameRecorder) commit(url string, tr webnav.TransitionType) webnav.Record {
	r := f.rec(webnav.EventCommitted, url)
	r.TransitionType = tr
	return r
}

// IframeRecords is what a browser reports when page a loads page b in an
// iframe and b then redirects the frame to c.
func IframeRecords(a, b, c string) []webnav.Record {
	top := frameRecorder{raw: "F-TOP", top: true}
	sub := frameRecorder{raw: "F-SUB-B"}
	return []webnav.Record{
		top.before(a, "1"),
		top.commit(a, webnav.TransitionLink),
		sub.before(b, "2"),
		top.rec(webnav.EventDOMContentLoaded, a),
		sub.commit(b, webnav.TransitionAutoSubframe),
		sub.rec(webnav.EventDOMContentLoaded, b),
		sub.rec(webnav.EventCompleted, b),
		top.rec(webnav.EventCompleted, a),
		sub.before(c, "3"),
		sub.commit(c, webnav.TransitionManualSubframe),
		sub.rec(webnav.EventDOMContentLoaded, c),
		sub.rec(webnav.EventCompleted, c),
	}
}

// IframeMultipleRecords is what a browser reports when page d loads e in
// a static iframe, script then adds an iframe for f, and f navigates to g.
func IframeMultipleRecords(d, e, f, g string) []webnav.Record {
	top := frameRecorder{raw: "F-TOP", top: true}
	subE := frameRecorder{raw: "F-SUB-E"}
	subF := frameRecorder{raw: "F-SUB-F"}
	return []webnav.Record{
		top.before(d, "1"),
		top.commit(d, webnav.TransitionLink),
		subE.before(e, "2"),
		top.rec(webnav.EventDOMContentLoaded, d),
		subE.commit(e, webnav.TransitionAutoSubframe),
		subE.rec(webnav.EventDOMContentLoaded, e),
		subF.before(f, "3"),
		subE.rec(webnav.EventCompleted, e),
		subF.commit(f, webnav.TransitionAutoSubframe),
		subF.rec(webnav.EventDOMContentLoaded, f),
		subF.rec(webnav.EventCompleted, f),
		top.rec(webnav.EventCompleted, d),
		subF.before(g, "4"),
		subF.commit(g, webnav.TransitionManualSubframe),
		subF.rec(webnav.EventDOMContentLoaded, g),
		subF.rec(webnav.EventCompleted, g),
	}
}

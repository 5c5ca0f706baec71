package webnav

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/ir"
)

func TestNormalizer_FrameIDs(t *testing.T) {
	n := NewNormalizer()

	assert.Equal(t, int64(0), n.FrameID("TOP", true))
	assert.Equal(t, int64(1), n.FrameID("F-b", false))
	assert.Equal(t, int64(2), n.FrameID("F-f", false))
	assert.Equal(t, int64(1), n.FrameID("F-b", false))
	// The top frame keeps 0 even when reported without the flag.
	assert.Equal(t, int64(0), n.FrameID("TOP", false))

	n.Reset()
	assert.Equal(t, int64(1), n.FrameID("F-f", false))
}

func TestNormalizer_TabIDs(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, int64(0), n.TabID("T-9"))
	assert.Equal(t, int64(1), n.TabID("T-3"))
	assert.Equal(t, int64(0), n.TabID("T-9"))
}

func TestNormalizer_PerEventFields(t *testing.T) {
	n := NewNormalizer()

	before, err := n.Normalize(Record{
		Event: EventBeforeNavigate, RawFrameID: "TOP", IsTopFrame: true, RawTabID: "T",
		TimeStamp: 1000, URL: "http://x/a.html", RequestID: "1234.5",
	})
	require.NoError(t, err)
	assert.Equal(t, ir.Object{
		FieldFrameID:   ir.Int(0),
		FieldTabID:     ir.Int(0),
		FieldTimeStamp: ir.Int(1000),
		FieldURL:       ir.String("http://x/a.html"),
		FieldRequestID: ir.String("1234.5"),
	}, before.Attributes)
	assert.Equal(t, int64(0), before.Seq)

	committed, err := n.Normalize(Record{
		Event: EventCommitted, RawFrameID: "TOP", IsTopFrame: true, RawTabID: "T",
		URL: "http://x/a.html", TransitionType: TransitionLink,
	})
	require.NoError(t, err)
	assert.Equal(t, ir.String("link"), committed.Attributes[FieldTransitionType])
	assert.Equal(t, ir.Array{}, committed.Attributes[FieldTransitionQualifiers])
	assert.NotContains(t, committed.Attributes, FieldRequestID)

	loaded, err := n.Normalize(Record{Event: EventCompleted, RawFrameID: "TOP", IsTopFrame: true, RawTabID: "T"})
	require.NoError(t, err)
	assert.Len(t, loaded.Attributes, 4)

	for _, ev := range []engine.ObservedEvent{before, committed, loaded} {
		assert.Len(t, ev.Attributes, len(Fields(ev.Name)), ev.Name)
	}
}

func TestNormalizer_Errors(t *testing.T) {
	n := NewNormalizer()

	_, err := n.Normalize(Record{Event: "onErrorOccurred"})
	assert.True(t, errors.Is(err, ErrUnknownEvent))

	_, err = n.Normalize(Record{Event: EventCommitted, RawFrameID: "F"})
	assert.True(t, errors.Is(err, ErrMissingTransition))
}

func TestBuilders(t *testing.T) {
	c := Committed(1, TransitionAutoSubframe, "b.html", "from_address_bar")
	assert.Equal(t, EventCommitted, c.Name)
	assert.Equal(t, engine.Equal(ir.String("auto_subframe")), c.Attributes[FieldTransitionType])
	assert.Equal(t, engine.Equal(ir.Array{ir.String("from_address_bar")}), c.Attributes[FieldTransitionQualifiers])
	assert.True(t, c.Attributes[FieldTimeStamp].IsWildcard())

	b := BeforeNavigate(0, "a.html")
	assert.True(t, b.Attributes[FieldRequestID].IsWildcard())
	assert.Equal(t, engine.Equal(ir.Int(0)), b.Attributes[FieldTabID])

	assert.Len(t, DOMContentLoaded(0, "a.html").Attributes, 4)
	assert.Len(t, Completed(0, "a.html").Attributes, 4)
}

func TestTransitionType_Known(t *testing.T) {
	assert.True(t, TransitionKeywordGenerated.Known())
	assert.False(t, TransitionType("bookmark").Known())
}

// hostIframe replays what a browser reports when a.html loads b.html in an
// iframe and b.html redirects to c.html.
func hostIframe() []Record {
	top := func(ev, url string, ts int64) Record {
		return Record{Event: ev, RawFrameID: "A1F0", IsTopFrame: true, RawTabID: "TAB-77", TimeStamp: ts, URL: url}
	}
	sub := func(ev, url string, ts int64) Record {
		return Record{Event: ev, RawFrameID: "B9C2", RawTabID: "TAB-77", TimeStamp: ts, URL: url}
	}
	withReq := func(r Record, id string) Record { r.RequestID = id; return r }
	withTr := func(r Record, tr TransitionType) Record { r.TransitionType = tr; return r }

	return []Record{
		withReq(top(EventBeforeNavigate, "a.html", 5), "41.1"),
		withTr(top(EventCommitted, "a.html", 9), TransitionLink),
		withReq(sub(EventBeforeNavigate, "b.html", 12), "41.2"),
		top(EventDOMContentLoaded, "a.html", 13),
		withTr(sub(EventCommitted, "b.html", 14), TransitionAutoSubframe),
		sub(EventDOMContentLoaded, "b.html", 15),
		sub(EventCompleted, "b.html", 15),
		top(EventCompleted, "a.html", 16),
		withReq(sub(EventBeforeNavigate, "c.html", 20), "41.3"),
		withTr(sub(EventCommitted, "c.html", 21), TransitionManualSubframe),
		sub(EventDOMContentLoaded, "c.html", 22),
		sub(EventCompleted, "c.html", 23),
	}
}

func iframeExpectation() []engine.ExpectedEvent {
	return []engine.ExpectedEvent{
		BeforeNavigate(0, "a.html"),
		Committed(0, TransitionLink, "a.html"),
		BeforeNavigate(1, "b.html"),
		DOMContentLoaded(0, "a.html"),
		Committed(1, TransitionAutoSubframe, "b.html"),
		DOMContentLoaded(1, "b.html"),
		Completed(1, "b.html"),
		Completed(0, "a.html"),
		BeforeNavigate(1, "c.html"),
		Committed(1, TransitionManualSubframe, "c.html"),
		DOMContentLoaded(1, "c.html"),
		Completed(1, "c.html"),
	}
}

func TestIframeTraceSatisfies(t *testing.T) {
	n := NewNormalizer()
	e := engine.New()
	require.NoError(t, e.Expect(iframeExpectation()))

	for _, r := range hostIframe() {
		ev, err := n.Normalize(r)
		require.NoError(t, err)
		require.NoError(t, e.OnEvent(ev))
	}
	assert.Equal(t, engine.StateSatisfied, e.State())
}

func TestIframeTrace_RedirectCommittedAsLinkFails(t *testing.T) {
	records := hostIframe()
	records[9].TransitionType = TransitionLink

	n := NewNormalizer()
	e := engine.New()
	require.NoError(t, e.Expect(iframeExpectation()))

	var err error
	for _, r := range records {
		ev, nerr := n.Normalize(r)
		require.NoError(t, nerr)
		if err = e.OnEvent(ev); err != nil {
			break
		}
	}
	require.Error(t, err)

	var ee *engine.ExpectationError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 9, ee.Index)
	assert.Equal(t, FieldTransitionType, ee.Diffs[0].Field)
}

func TestIframeTrace_TruncatedIsIncomplete(t *testing.T) {
	n := NewNormalizer()
	e := engine.New()
	require.NoError(t, e.Expect(iframeExpectation()))

	for _, r := range hostIframe()[:8] {
		ev, err := n.Normalize(r)
		require.NoError(t, err)
		require.NoError(t, e.OnEvent(ev))
	}
	err := e.Finish()
	assert.True(t, engine.IsIncompleteSequence(err))
}

package harness

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/navexpect/internal/testutil"
	"github.com/roach88/navexpect/internal/webnav"
)

const testBase = "http://127.0.0.1:8080/"

func fixtureURL(name string) string { return testBase + name }

// scriptedEnv returns an Env whose browsers replay the iframe fixtures.
// extra runs against each new browser before it is handed out.
func scriptedEnv(t *testing.T, extra func(b *testutil.ScriptedBrowser)) (Env, *[]*testutil.ScriptedBrowser) {
	t.Helper()
	resolver, err := webnav.NewURLResolver(testBase)
	require.NoError(t, err)

	var mu sync.Mutex
	var opened []*testutil.ScriptedBrowser
	factory := func(ctx context.Context) (webnav.Browser, error) {
		b := testutil.NewScriptedBrowser()
		b.Script(fixtureURL("a.html"), testutil.IframeRecords(fixtureURL("a.html"), fixtureURL("b.html"), fixtureURL("c.html"))...)
		b.Script(fixtureURL("d.html"), testutil.IframeMultipleRecords(fixtureURL("d.html"), fixtureURL("e.html"), fixtureURL("f.html"), fixtureURL("g.html"))...)
		if extra != nil {
			extra(b)
		}
		mu.Lock()
		opened = append(opened, b)
		mu.Unlock()
		return b, nil
	}

	env := Env{
		Browser:  factory,
		Resolver: resolver,
		RunIDs:   testutil.NewFixedRunIDs("run-1", "run-2", "run-3"),
	}
	return env, &opened
}

func loadTestScenario(t *testing.T, path string) *Scenario {
	t.Helper()
	s, err := LoadScenario(path)
	require.NoError(t, err)
	return s
}

// fakeMetrics records what the harness reports.
type fakeMetrics struct {
	mu        sync.Mutex
	events    map[string]int
	failures  map[string]int
	scenarios map[bool]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		events:    make(map[string]int),
		failures:  make(map[string]int),
		scenarios: make(map[bool]int),
	}
}

func (m *fakeMetrics) ObserveEvent(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[name]++
}

func (m *fakeMetrics) ObserveFailure(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[code]++
}

func (m *fakeMetrics) ObserveScenario(pass bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[pass]++
}

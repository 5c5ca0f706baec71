package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/navexpect/internal/harness"
	"github.com/roach88/navexpect/internal/testutil"
	"github.com/roach88/navexpect/internal/webnav"
)

const testBase = "http://127.0.0.1:8080/"

// scriptedBrowsers serves the iframe fixtures without Chrome.
func scriptedBrowsers(ctx context.Context) (webnav.Browser, error) {
	u := func(name string) string { return testBase + name }
	b := testutil.NewScriptedBrowser()
	b.Script(u("a.html"), testutil.IframeRecords(u("a.html"), u("b.html"), u("c.html"))...)
	b.Script(u("d.html"), testutil.IframeMultipleRecords(u("d.html"), u("e.html"), u("f.html"), u("g.html"))...)
	return b, nil
}

// scenarioDir copies the harness scenario fixtures into a temp directory.
// edit, when set, rewrites each file's contents.
func scenarioDir(t *testing.T, edit func(name, content string) string) string {
	t.Helper()
	src := filepath.Join("..", "harness", "testdata", "scenarios")
	dst := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dst, 0755))

	entries, err := os.ReadDir(src)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		require.NoError(t, err)
		content := string(data)
		if edit != nil {
			content = edit(e.Name(), content)
		}
		require.NoError(t, os.WriteFile(filepath.Join(dst, e.Name()), []byte(content), 0644))
	}
	return dst
}

// breakIframe changes the expected transition of c.html in iframe.yaml.
func breakIframe(name, content string) string {
	if name != "iframe.yaml" {
		return content
	}
	return strings.Replace(content, "url: c.html, transition: manual_subframe", "url: c.html, transition: auto_subframe", 1)
}

// runCLI executes the run command with scripted browsers.
func runCLI(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: format},
		Browser:     scriptedBrowsers,
		RunIDs:      testutil.NewFixedRunIDs("run-1", "run-2", "run-3", "run-4"),
	}
	cmd := newRunCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeData unmarshals the data of a JSON response into v.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

var _ harness.BrowserFactory = scriptedBrowsers

package webnav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLResolver(t *testing.T) {
	r, err := NewURLResolver("http://127.0.0.1:8080/webnavigation/iframe")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/webnavigation/iframe/", r.Base())

	tests := []struct{ in, want string }{
		{"a.html", "http://127.0.0.1:8080/webnavigation/iframe/a.html"},
		{"sub/b.html", "http://127.0.0.1:8080/webnavigation/iframe/sub/b.html"},
		{"/c.html", "http://127.0.0.1:8080/c.html"},
		{"https://example.com/d.html", "https://example.com/d.html"},
		{"about:blank", "about:blank"},
	}
	for _, tt := range tests {
		got, err := r.Resolve(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestURLResolver_NoBase(t *testing.T) {
	r, err := NewURLResolver("")
	require.NoError(t, err)
	got, err := r.Resolve("a.html")
	require.NoError(t, err)
	assert.Equal(t, "a.html", got)
	assert.Equal(t, "", r.Base())
}

func TestURLResolver_RelativeBaseRejected(t *testing.T) {
	_, err := NewURLResolver("fixtures/")
	assert.Error(t, err)
}

package webnav

import (
	"fmt"
	"net/url"
	"strings"
)

// URLResolver maps fixture paths such as "a.html" to absolute URLs under a
// base. Absolute URLs pass through unchanged.
type URLResolver struct {
	base *url.URL
}

// NewURLResolver parses base. A base without a trailing slash is treated as
// a directory.
func NewURLResolver(base string) (*URLResolver, error) {
	if base == "" {
		return &URLResolver{}, nil
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("base url %q is not absolute", base)
	}
	return &URLResolver{base: u}, nil
}

// Resolve returns the absolute URL for ref. With no base, ref is returned
// as is.
func (r *URLResolver) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	if u.IsAbs() || r == nil || r.base == nil {
		return ref, nil
	}
	return r.base.ResolveReference(u).String(), nil
}

// Base returns the base URL, or "" when none is set.
func (r *URLResolver) Base() string {
	if r == nil || r.base == nil {
		return ""
	}
	return r.base.String()
}

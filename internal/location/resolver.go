// Package location builds the public URL of an archived object.
package location

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidBase is returned when the configured public base URL cannot have
// a path appended to it.
var ErrInvalidBase = errors.New("public base url cannot be joined")

// Resolver joins the public base URL with bucket and key.
type Resolver struct {
	base *url.URL
}

// New creates a Resolver for base. The URL is copied; base may be nil, in which
// case every Resolve fails.
func New(base *url.URL) *Resolver {
	if base == nil {
		return &Resolver{}
	}
	b := *base
	return &Resolver{base: &b}
}

// Resolve returns {base}/{bucket}/{key}. Any path on the base is kept; its
// query and fragment are dropped.
func (r *Resolver) Resolve(bucket, key string) (string, error) {
	b := r.base
	if b == nil || b.Opaque != "" || b.Scheme == "" || b.Host == "" {
		return "", ErrInvalidBase
	}
	if bucket == "" || key == "" {
		return "", errors.New("bucket and key are required")
	}

	u := url.URL{
		Scheme: b.Scheme,
		User:   b.User,
		Host:   b.Host,
		Path:   strings.TrimSuffix(b.Path, "/") + "/" + bucket + "/" + key,
	}
	return u.String(), nil
}

// Package storage talks to the object store (Cloudflare R2) holding the
// images and files referenced by inventory items and publications.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ObjectStore is the part of the object store the services use.
type ObjectStore interface {
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PublicURL(key string) string
	KeyFromURL(url string) (string, bool)
	Resolve(ref string) (string, error)
}

var (
	ErrBadReference = errors.New("invalid object reference")
	ErrNoPublicBase = errors.New("public base url is not configured")
)

// Links converts between object keys and public URLs: {Base}/{key}.
type Links struct {
	Base string
}

func (l Links) base() string { return strings.TrimRight(l.Base, "/") }

func (l Links) PublicURL(key string) string {
	return l.base() + "/" + strings.TrimLeft(key, "/")
}

// KeyFromURL returns the key of a URL under Base. URLs from elsewhere are
// not ours to delete.
func (l Links) KeyFromURL(u string) (string, bool) {
	if l.Base == "" || u == "" {
		return "", false
	}
	key, ok := strings.CutPrefix(u, l.base()+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Resolve turns a client supplied path fragment into a public URL. A URL
// already under Base is accepted as is.
func (l Links) Resolve(ref string) (string, error) {
	if l.base() == "" {
		return "", ErrNoPublicBase
	}
	ref = strings.TrimSpace(ref)
	if key, ok := l.KeyFromURL(ref); ok {
		ref = key
	}
	ref = strings.TrimLeft(ref, "/")
	if ref == "" || strings.Contains(ref, "://") {
		return "", ErrBadReference
	}
	for _, seg := range strings.Split(ref, "/") {
		if seg == ".." || seg == "." {
			return "", ErrBadReference
		}
	}
	return l.PublicURL(ref), nil
}

// CheckBase accepts an absolute http(s) URL. Without one no stored
// reference could be mapped back to its key.
func CheckBase(base string) error {
	if strings.TrimSpace(base) == "" {
		return ErrNoPublicBase
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("public base url %q must be an absolute http(s) url", base)
	}
	return nil
}

// NewObjectKey builds "<folder>/<uuid>-<slug><ext>" for an upload.
func NewObjectKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	name := slug.Make(strings.TrimSuffix(path.Base(filename), path.Ext(filename)))
	if name == "" {
		name = "file"
	}
	object := uuid.NewString() + "-" + name + ext
	if f := slug.Make(folder); f != "" {
		return f + "/" + object
	}
	return object
}

package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"research_portal_api/apperr"
	"research_portal_api/storage"
)

// Objects is an in-memory object store with the same URL rules as R2.
type Objects struct {
	storage.Links

	mu      sync.Mutex
	keys    map[string]bool
	deleted []string

	// FailDelete, when set, makes every Delete fail with a storage error.
	FailDelete error
}

func NewObjects(base string, keys ...string) *Objects {
	o := &Objects{Links: storage.Links{Base: base}, keys: map[string]bool{}}
	for _, k := range keys {
		o.keys[k] = true
	}
	return o
}

func (o *Objects) Put(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.keys[key] = true
}

func (o *Objects) Has(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.keys[key]
}

// Deleted lists the keys passed to successful Delete calls, in order.
func (o *Objects) Deleted() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.deleted...)
}

func (o *Objects) Delete(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.FailDelete != nil {
		return apperr.Storage("delete", o.FailDelete)
	}
	delete(o.keys, key)
	o.deleted = append(o.deleted, key)
	return nil
}

func (o *Objects) List(_ context.Context, prefix string) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := []string{}
	for k := range o.keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (o *Objects) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return o.PublicURL(key) + "?X-Amz-Expires=" + ttl.String() + "&content-type=" + contentType, nil
}

var _ storage.ObjectStore = (*Objects)(nil)

// Package blob keeps transient object URLs for file content handed to previews and downloads.
package blob

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"time"

	"LocalVault/internal/metrics"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// URLPrefix starts every object URL.
const URLPrefix = "blob:localvault/"

// ErrRevoked is returned for URLs that were revoked, expired or never issued.
var ErrRevoked = errors.New("object url revoked")

// Object is a live object URL over record content.
type Object struct {
	URL     string
	Token   string
	Type    string
	OwnerID uint64

	data []byte
}

// Reader returns a fresh reader over the content.
func (o *Object) Reader() *bytes.Reader {
	return bytes.NewReader(o.data)
}

// Size returns the content length.
func (o *Object) Size() int64 {
	return int64(len(o.data))
}

// WriteTo copies the content to w.
func (o *Object) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(o.data)
	return int64(n), err
}

// Registry tracks outstanding object URLs. Entries are evicted on revoke,
// on expiry, or when the registry is full.
type Registry struct {
	cache *expirable.LRU[string, *Object]
}

// New creates a registry holding at most size live URLs, each for at most ttl.
func New(size int, ttl time.Duration) *Registry {
	if size <= 0 {
		size = 256
	}
	onEvict := func(_ string, _ *Object) {
		metrics.ObjectURLsLive.Dec()
	}
	return &Registry{cache: expirable.NewLRU[string, *Object](size, onEvict, ttl)}
}

// Create issues a new object URL for content.
// Content is not copied; callers must not modify it afterwards.
func (r *Registry) Create(ownerID uint64, typ string, content []byte) *Object {
	token := uuid.NewString()
	obj := &Object{
		URL:     URLPrefix + token,
		Token:   token,
		Type:    typ,
		OwnerID: ownerID,
		data:    content,
	}
	r.cache.Add(token, obj)
	metrics.ObjectURLsLive.Inc()
	metrics.ObjectURLsCreated.Inc()
	return obj
}

// Resolve returns the object behind a full URL.
func (r *Registry) Resolve(url string) (*Object, error) {
	token, ok := strings.CutPrefix(url, URLPrefix)
	if !ok {
		return nil, ErrRevoked
	}
	return r.ResolveToken(token)
}

// ResolveToken returns the object behind a token.
func (r *Registry) ResolveToken(token string) (*Object, error) {
	obj, ok := r.cache.Get(token)
	if !ok {
		return nil, ErrRevoked
	}
	return obj, nil
}

// Revoke releases one URL. Revoking twice is a no-op.
func (r *Registry) Revoke(url string) bool {
	token, ok := strings.CutPrefix(url, URLPrefix)
	if !ok {
		return false
	}
	return r.cache.Remove(token)
}

// RevokeOwner releases every URL issued for the record ownerID.
func (r *Registry) RevokeOwner(ownerID uint64) int {
	revoked := 0
	for _, token := range r.cache.Keys() {
		obj, ok := r.cache.Peek(token)
		if !ok || obj.OwnerID != ownerID {
			continue
		}
		if r.cache.Remove(token) {
			revoked++
		}
	}
	return revoked
}

// Purge releases every URL.
func (r *Registry) Purge() {
	r.cache.Purge()
}

// Len returns the number of live URLs.
func (r *Registry) Len() int {
	return r.cache.Len()
}

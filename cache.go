// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package xpkdecomp

import (
	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-tinylfu"
)

// cacheEntry records whether the memoized result was itself produced with
// verification on, so a later call asking for verify=true never gets
// handed a result that skipped the checksum check.
type cacheEntry struct {
	raw      []byte
	verified bool
}

// Cache memoizes decompression of byte-identical packed buffers, keyed by
// an xxhash of the packed bytes. Adapted from internal/decompressioncache,
// which cached decoded blocks of a single streaming archive keyed by
// offset; this module's formats are one-shot (no streaming, per spec
// Non-goals), so the cache instead memoizes whole-buffer results keyed by
// content hash. The eviction policy comes from the same go-tinylfu the
// teacher uses for its block cache (internal/spinner), in place of the
// teacher's undeclared bigcache dependency.
type Cache struct {
	entries *tinylfu.T[uint64, cacheEntry]
}

// NewCache builds a memo cache holding up to size decoded results.
func NewCache(size int) *Cache {
	return &Cache{entries: tinylfu.New[uint64, cacheEntry](size, size*10, identityHash)}
}

func identityHash(k uint64) uint64 { return k }

func (c *Cache) key(packed []byte) uint64 {
	return xxhash.Sum64(packed)
}

// get returns a memoized result, but only if it satisfies wantVerify: a
// result produced without verification must not be handed back to a
// caller that asked for verify=true, since that would silently skip the
// embedded checksum check.
func (c *Cache) get(packed []byte, wantVerify bool) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	entry, hit := c.entries.Get(c.key(packed))
	if !hit || (wantVerify && !entry.verified) {
		return nil, false
	}
	return entry.raw, true
}

func (c *Cache) put(packed []byte, raw []byte, verified bool) {
	if c == nil {
		return
	}
	c.entries.Add(c.key(packed), cacheEntry{raw: raw, verified: verified})
}

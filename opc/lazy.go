package opc

import "sync"

// LazyReader wraps a Reader with a concurrent cache of decompressed
// parts, keyed by normalized name. Reads race-free across goroutines: a
// read lock covers the common cache-hit path, and a write lock guarded
// by a double-check populates the cache on miss without duplicating
// work already committed by a concurrent caller. Ported from
// LazyArchiveReader's RwLock<HashMap<...>> cache.
type LazyReader struct {
	inner *Reader
	mu    sync.RWMutex
	cache map[string][]byte
}

// NewLazyReader builds a lazy reader over an already-indexed Reader.
func NewLazyReader(r *Reader) *LazyReader {
	return &LazyReader{inner: r, cache: make(map[string][]byte)}
}

// NewLazyReaderFromBytes indexes data and wraps it in a LazyReader.
func NewLazyReaderFromBytes(data []byte) (*LazyReader, error) {
	r, err := NewReader(data)
	if err != nil {
		return nil, err
	}
	return NewLazyReader(r), nil
}

func (lr *LazyReader) Len() int                  { return lr.inner.Len() }
func (lr *LazyReader) Contains(name string) bool { return lr.inner.Contains(name) }
func (lr *LazyReader) Names() []string           { return lr.inner.Names() }

// Read decompresses name on first access and returns the cached bytes
// on every subsequent call.
func (lr *LazyReader) Read(name string) ([]byte, error) {
	key := normalizeName(name)

	lr.mu.RLock()
	if data, ok := lr.cache[key]; ok {
		lr.mu.RUnlock()
		return data, nil
	}
	lr.mu.RUnlock()

	data, err := lr.inner.Read(key)
	if err != nil {
		return nil, err
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	if existing, ok := lr.cache[key]; ok {
		// Another goroutine populated the cache while we decompressed.
		return existing, nil
	}
	lr.cache[key] = data
	return data, nil
}

// ReadMany decompresses an uncached subset of names in parallel and
// merges the results into the cache, mirroring read_many_parallel_cached.
func (lr *LazyReader) ReadMany(names []string) map[string][]byte {
	lr.mu.RLock()
	var uncached []string
	out := make(map[string][]byte, len(names))
	for _, name := range names {
		key := normalizeName(name)
		if data, ok := lr.cache[key]; ok {
			out[key] = data
		} else {
			uncached = append(uncached, key)
		}
	}
	lr.mu.RUnlock()

	if len(uncached) == 0 {
		return out
	}

	for _, res := range lr.inner.ReadMany(uncached) {
		if res.Err != nil {
			continue
		}
		out[res.Name] = res.Data
	}

	lr.mu.Lock()
	for name, data := range out {
		if _, ok := lr.cache[name]; !ok {
			lr.cache[name] = data
		}
	}
	lr.mu.Unlock()

	return out
}

// CacheSize returns the number of parts currently cached.
func (lr *LazyReader) CacheSize() int {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	return len(lr.cache)
}

// ClearCache discards all cached decompressed parts.
func (lr *LazyReader) ClearCache() {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.cache = make(map[string][]byte)
}

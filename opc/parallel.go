package opc

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// NamedResult pairs a requested part name with its decompressed bytes
// or the error encountered reading it.
type NamedResult struct {
	Name string
	Data []byte
	Err  error
}

// maxParallelReads bounds the worker count for bulk decompression, the
// idiomatic Go analogue of the original's rayon work-stealing pool.
const maxParallelReads = 8

// ReadMany decompresses the named parts concurrently and returns results
// in the same order as names, mirroring read_many_parallel.
func (r *Reader) ReadMany(names []string) []NamedResult {
	results := make([]NamedResult, len(names))

	var g errgroup.Group
	g.SetLimit(maxParallelReads)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			data, err := r.Read(name)
			results[i] = NamedResult{Name: name, Data: data, Err: err}
			return nil
		})
	}
	_ = g.Wait() // individual errors are carried per-result, never aggregated

	return results
}

// ReadAll decompresses every part in the archive concurrently. The
// result is an unordered map, matching read_all_parallel: entries whose
// decompression failed are omitted.
func (r *Reader) ReadAll() map[string][]byte {
	names := r.Names()
	out := make(map[string][]byte, len(names))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(maxParallelReads)
	for _, name := range names {
		name := name
		g.Go(func() error {
			data, err := r.Read(name)
			if err != nil {
				return nil
			}
			mu.Lock()
			out[name] = data
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

package service

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"redcapprep/internal/domain"
)

// ExportedBatchGuard is an exported alias so _test packages can test the guard.
type ExportedBatchGuard = batchGuard

// ── Batch guard ────────────────────────────────────────────
// A cron tick and a file event can fire together. Two batches of the same
// kind writing into the same output directory must not interleave, so
// each (kind, output dir) pair is held by at most one run.

type batchGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup
}

// batchKey identifies a batch slot. The output directory is cleaned so that
// "out" and "out/" share a slot.
func batchKey(kind domain.BatchKind, outputDir string) string {
	return string(kind) + ":" + filepath.Clean(outputDir)
}

// Acquire claims the slot for kind writing into outputDir. It returns the
// slot key and false when another run already holds it.
func (g *batchGuard) Acquire(kind domain.BatchKind, outputDir string) (string, bool) {
	key := batchKey(kind, outputDir)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		g.active = make(map[string]struct{})
	}
	if _, busy := g.active[key]; busy {
		return key, false
	}
	g.active[key] = struct{}{}
	g.wg.Add(1)
	return key, true
}

// Release frees a slot returned by a successful Acquire.
func (g *batchGuard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.active[key]; !ok {
		return
	}
	delete(g.active, key)
	g.wg.Done()
}

// Active lists the held slots, sorted.
func (g *batchGuard) Active() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	keys := make([]string, 0, len(g.active))
	for k := range g.active {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WaitAll blocks until every held slot is released or ctx is cancelled.
func (g *batchGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

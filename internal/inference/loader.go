package inference

import (
	"context"
	"sort"
	"sync"
	"time"

	"predictd/pkg/types"
)

// Defaults applied when corresponding LoaderConfig fields are unset.
const (
	defaultCapacity      = 5
	defaultMaxQueueDepth = 32
	defaultMaxInflight   = 4
	defaultMaxWait       = 30 * time.Second
)

// LoaderConfig encapsulates all tunables for Loader construction.
type LoaderConfig struct {
	// Capacity is the fixed maximum number of resident models.
	Capacity int
	// MaxQueueDepth bounds queued executions per model before backpressure.
	MaxQueueDepth int
	// MaxInflight bounds concurrent executions per model.
	MaxInflight int
	// MaxWait bounds how long admission may block before a too-busy error.
	MaxWait time.Duration
	// Opener maps metadata to a runtime; defaults to OpenRuntime.
	Opener RuntimeOpener
	// Publisher receives lifecycle events; defaults to a no-op.
	Publisher EventPublisher
}

// Loader owns the mapping from model identifier to LoadedModel: a bounded
// cache with least-recently-used eviction, single-flight loads and pinned
// handles so eviction never closes a runtime mid-prediction.
type Loader struct {
	mu       sync.Mutex
	entries  map[string]*entry
	inflight map[string]*loadCall

	capacity      int
	maxQueueDepth int
	maxInflight   int
	maxWait       time.Duration
	opener        RuntimeOpener
	publisher     EventPublisher

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewLoader constructs a Loader from LoaderConfig, applying defaults for
// unset fields.
func NewLoader(cfg LoaderConfig) *Loader {
	l := &Loader{
		entries:       make(map[string]*entry),
		inflight:      make(map[string]*loadCall),
		capacity:      cfg.Capacity,
		maxQueueDepth: cfg.MaxQueueDepth,
		maxInflight:   cfg.MaxInflight,
		maxWait:       cfg.MaxWait,
		opener:        cfg.Opener,
		publisher:     cfg.Publisher,
	}
	if l.capacity <= 0 {
		l.capacity = defaultCapacity
	}
	if l.maxQueueDepth <= 0 {
		l.maxQueueDepth = defaultMaxQueueDepth
	}
	if l.maxInflight <= 0 {
		l.maxInflight = defaultMaxInflight
	}
	if l.maxWait <= 0 {
		l.maxWait = defaultMaxWait
	}
	if l.opener == nil {
		l.opener = OpenRuntime
	}
	if l.publisher == nil {
		l.publisher = noopPublisher{}
	}
	return l
}

// Load makes the model resident. Already-cached identifiers are a no-op that
// refreshes recency. Concurrent loads for the same identifier collapse to a
// single underlying open; every caller observes the same outcome.
func (l *Loader) Load(ctx context.Context, md types.ModelMetadata) error {
	l.mu.Lock()
	if e, ok := l.entries[md.ID]; ok {
		e.lastAccess = time.Now()
		l.mu.Unlock()
		return nil
	}
	if call, ok := l.inflight[md.ID]; ok {
		l.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &loadCall{done: make(chan struct{})}
	l.inflight[md.ID] = call
	l.mu.Unlock()

	l.publisher.Publish(Event{Name: "load_start", ModelID: md.ID, Fields: map[string]any{"format": string(md.Format)}})
	start := time.Now()

	rt, err := l.opener(md)

	l.mu.Lock()
	delete(l.inflight, md.ID)
	if err != nil {
		l.mu.Unlock()
		if !IsUnsupportedFormat(err) {
			err = ErrLoad(md.ID, err)
		}
		call.err = err
		close(call.done)
		l.publisher.Publish(Event{Name: "load_error", ModelID: md.ID, Fields: map[string]any{"error": err.Error()}})
		return err
	}
	for len(l.entries) >= l.capacity {
		l.evictLRULocked()
	}
	l.entries[md.ID] = &entry{
		model:      &LoadedModel{Metadata: md, Runtime: rt, LoadedAt: time.Now()},
		lastAccess: time.Now(),
		queueCh:    make(chan struct{}, l.maxQueueDepth),
		execCh:     make(chan struct{}, l.maxInflight),
	}
	l.misses++
	l.mu.Unlock()

	call.err = nil
	close(call.done)
	l.publisher.Publish(Event{Name: "load_ready", ModelID: md.ID, Fields: map[string]any{
		"format": string(md.Format),
		"dur_ms": int(time.Since(start) / time.Millisecond),
	}})
	return nil
}

// Acquire returns the cached handle pinned for the caller, refreshing
// recency (a read counts as use). The release func must be called when the
// caller is done with the handle; the last release of a condemned entry
// closes its runtime.
func (l *Loader) Acquire(modelID string) (*LoadedModel, func(), bool) {
	l.mu.Lock()
	e, ok := l.entries[modelID]
	if !ok {
		l.mu.Unlock()
		return nil, nil, false
	}
	e.lastAccess = time.Now()
	e.pins++
	l.hits++
	l.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() { l.unpin(e) })
	}
	return e.model, release, true
}

func (l *Loader) unpin(e *entry) {
	l.mu.Lock()
	e.pins--
	closeNow := e.condemned && e.pins == 0
	l.mu.Unlock()
	if closeNow {
		_ = e.model.Runtime.Close()
	}
}

// IsLoaded is a pure membership check; it does not touch recency.
func (l *Loader) IsLoaded(modelID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[modelID]
	return ok
}

// Unload removes the model and releases its resources. No-op when absent.
// If predictions still hold the handle, the close is deferred to the last
// release; the entry leaves the cache immediately either way.
func (l *Loader) Unload(modelID string) {
	l.mu.Lock()
	e, ok := l.entries[modelID]
	if !ok {
		l.mu.Unlock()
		return
	}
	delete(l.entries, modelID)
	e.condemned = true
	closeNow := e.pins == 0
	l.mu.Unlock()
	if closeNow {
		_ = e.model.Runtime.Close()
	}
	l.publisher.Publish(Event{Name: "unload", ModelID: modelID, Fields: map[string]any{}})
}

// evictLRULocked removes the least-recently-used entry. Unpinned entries
// are preferred; when every entry is pinned the LRU one is condemned so the
// capacity bound holds while in-flight borrowers keep a valid handle.
// Caller must hold l.mu.
func (l *Loader) evictLRULocked() {
	var lru *entry
	var lruID string
	for id, e := range l.entries {
		if e.pins > 0 {
			continue
		}
		if lru == nil || e.lastAccess.Before(lru.lastAccess) {
			lru, lruID = e, id
		}
	}
	if lru == nil {
		// Every entry is mid-use; condemn the LRU one so the capacity
		// bound holds while borrowers keep a valid handle.
		for id, e := range l.entries {
			if lru == nil || e.lastAccess.Before(lru.lastAccess) {
				lru, lruID = e, id
			}
		}
	}
	if lru == nil {
		return
	}
	delete(l.entries, lruID)
	l.evictions++
	if lru.pins == 0 {
		_ = lru.model.Runtime.Close()
	} else {
		lru.condemned = true
	}
	l.publisher.Publish(Event{Name: "evict", ModelID: lruID, Fields: map[string]any{"pinned": lru.pins > 0}})
}

// admit reserves a queue slot and then an execution slot for the model.
// Returns a release func to be deferred. Admission failing with a full
// queue or an expired wait maps to 429.
func (l *Loader) admit(ctx context.Context, modelID string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[modelID]
	l.mu.Unlock()
	if !ok {
		return func() {}, ErrNotLoaded(modelID)
	}
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()
	select {
	case e.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, ErrTooBusy(modelID)
	}

	acquired := false
	defer func() {
		if !acquired {
			<-e.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(l.maxWait)
	defer timer2.Stop()
	select {
	case e.execCh <- struct{}{}:
		acquired = true
		return func() { <-e.execCh; <-e.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		return func() {}, ErrTooBusy(modelID)
	}
}

// Stats returns a snapshot of the cache for observability.
func (l *Loader) Stats() types.CacheStatsResponse {
	l.mu.Lock()
	defer l.mu.Unlock()
	resp := types.CacheStatsResponse{
		Size:      len(l.entries),
		Capacity:  l.capacity,
		Hits:      l.hits,
		Misses:    l.misses,
		Evictions: l.evictions,
		Entries:   make([]types.CacheEntryStats, 0, len(l.entries)),
	}
	for id, e := range l.entries {
		resp.Entries = append(resp.Entries, types.CacheEntryStats{
			ModelID:        id,
			Format:         e.model.Metadata.Format,
			LastAccessUnix: e.lastAccess.Unix(),
			Pins:           e.pins,
		})
	}
	sort.Slice(resp.Entries, func(i, j int) bool { return resp.Entries[i].ModelID < resp.Entries[j].ModelID })
	return resp
}

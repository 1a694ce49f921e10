package operation

import (
	"fmt"
	"sync"
)

// storeEntry is a Client's registry record for one Path: the Store itself
// kept behind an any so the registry can hold heterogeneous
// Store[S, R] instantiations, plus enough type identity to reject a
// conflicting second registration.
type storeEntry struct {
	path            Path
	stateType       string
	store           any
	mask            PressureMask
	loading         func() bool // reports whether the bound Store currently has a task in flight
	subscriberCount func() int  // reports the bound Store's current subscriber count
	dispose         func()
}

// evictableAt reports whether this entry may be reclaimed on a pressure
// event at level p: its mask must include p, and per §4.8 it must currently
// have zero subscribers. A task in flight with no subscriber watching it is
// still evictable; a subscribed, idle store is not.
func (e *storeEntry) evictableAt(p Pressure) bool {
	return e.mask.Contains(p) && e.subscriberCount() == 0
}

// Client is the registry a program builds operations against: it owns one
// Store per distinct Path, a shared ambient Context every Store is rooted
// in, and the eviction policy driven by a MemoryPressureSource.
type Client struct {
	mu       sync.RWMutex
	entries  map[string]*storeEntry
	trie     *pathTrie
	baseCtx  *Context
	reporter IssueReporter
	pressure MemoryPressureSource
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithBaseContext seeds every Store a Client creates from ctx instead of an
// empty background Context.
func WithBaseContext(ctx *Context) ClientOption {
	return func(c *Client) { c.baseCtx = ctx }
}

// WithIssueReporter installs a reporter for non-fatal issues such as
// DuplicatePathError, replacing the default no-op.
func WithIssueReporter(r IssueReporter) ClientOption {
	return func(c *Client) { c.reporter = r }
}

// WithMemoryPressureSource attaches a MemoryPressureSource; Client
// subscribes to it for the Client's lifetime and evicts entries whose
// EvictablePressureKey mask contains the reported level and whose Store has
// no subscribers: each such entry is removed from the registry and its
// Store is reset.
func WithMemoryPressureSource(src MemoryPressureSource) ClientOption {
	return func(c *Client) { c.pressure = src }
}

// NewClient builds a Client ready to register operations.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		entries:  make(map[string]*storeEntry),
		trie:     newPathTrie(),
		baseCtx:  NewContext(nil),
		reporter: defaultIssueReporter,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pressure != nil {
		c.pressure.Subscribe(c.onPressure)
	}
	return c
}

// ClientStore resolves or lazily creates the Store backing op within c. A
// second registration at the same Path with a differing state type is
// reported through the Client's IssueReporter instead of panicking; it
// returns the existing Store only if that Store is a *Store[S, R], and nil
// otherwise. No Store of the requested type is created for that Path.
func ClientStore[S any, R any](c *Client, op Operation[S, R]) *Store[S, R] {
	path := op.Path()
	stateType := typeNameOf[S]()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[path.Key()]; ok {
		if existing.stateType != stateType {
			c.reporter(&DuplicatePathError{Path: path, ExistingTy: existing.stateType, RequestedTy: stateType})
			if store, ok := existing.store.(*Store[S, R]); ok {
				return store
			}
			var zero *Store[S, R]
			return zero
		}
		return existing.store.(*Store[S, R])
	}

	return registerLocked(c, path, stateType, op)
}

// registerLocked creates and indexes the Store backing op. Callers must
// hold c.mu for writing.
func registerLocked[S any, R any](c *Client, path Path, stateType string, op Operation[S, R]) *Store[S, R] {
	storeCtx := c.baseCtx.clone()
	store := NewStore(path, op, storeCtx)
	entry := &storeEntry{
		path:            path,
		stateType:       stateType,
		store:           store,
		mask:            Get(op.setup(storeCtx), EvictablePressureKey),
		loading:         func() bool { return store.IsLoading() },
		subscriberCount: func() int { return store.SubscriberCount() },
		dispose:         func() { store.Reset() },
	}
	c.entries[path.Key()] = entry
	c.trie.insert(path, entry)
	return store
}

// Store is the type-erased single-path lookup: nil if no Store is
// registered at path.
func (c *Client) Store(path Path) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[path.Key()]
	if !ok {
		return nil
	}
	return entry.store
}

// StoresMatching returns every registered entry whose Path has prefix as a
// prefix. The order of the returned entries is not defined.
func (c *Client) StoresMatching(prefix Path) []any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := c.trie.matching(prefix)
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.store)
	}
	return out
}

// StoresMatchingOf is the typed, downcast-filtered variant of
// StoresMatching: entries whose Store does not downcast to *Store[S, R]
// (a state-type mismatch) are silently skipped, not reported as an error.
func StoresMatchingOf[S any, R any](c *Client, prefix Path) []*Store[S, R] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := c.trie.matching(prefix)
	out := make([]*Store[S, R], 0, len(entries))
	for _, e := range entries {
		if store, ok := e.store.(*Store[S, R]); ok {
			out = append(out, store)
		}
	}
	return out
}

// ClearStore removes the registry entry at path, if any, and reports
// whether one was removed. It does not reset the removed Store; a caller
// holding a reference to it may still use it, but it is no longer
// reachable through the Client.
func (c *Client) ClearStore(path Path) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(path)
}

// ClearStores removes every registry entry whose Path has prefix as a
// prefix and reports how many were removed.
func (c *Client) ClearStores(prefix Path) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	matched := c.trie.matching(prefix)
	for _, e := range matched {
		c.removeLocked(e.path)
	}
	return len(matched)
}

// removeLocked removes the entry at path from both indexes. Callers must
// hold c.mu.
func (c *Client) removeLocked(path Path) bool {
	if _, ok := c.entries[path.Key()]; !ok {
		return false
	}
	delete(c.entries, path.Key())
	c.trie.remove(path)
	return true
}

// StoreMutator is the bound handle WithStores hands to its body: every
// nested mutation call made through it reuses the single critical section
// WithStores already holds, instead of acquiring a true reentrant lock
// (sync.Mutex in Go is not reentrant, and goroutine-id tricks are not
// idiomatic here).
type StoreMutator struct {
	c       *Client
	entries []*storeEntry
}

// Reset resets every Store this mutator was bound to.
func (m *StoreMutator) Reset() {
	for _, e := range m.entries {
		if r, ok := e.store.(interface{ Reset() }); ok {
			r.Reset()
		}
	}
}

// Entries exposes the raw Store handles (as any) bound to this mutator, for
// callers that need type-specific access via a type switch or assertion.
func (m *StoreMutator) Entries() []any {
	out := make([]any, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.store)
	}
	return out
}

// Lookup returns the registered Store at path (type-erased), nil if
// absent. It reads directly off the Client's registry under the critical
// section WithStores is already holding.
func (m *StoreMutator) Lookup(path Path) any {
	entry, ok := m.c.entries[path.Key()]
	if !ok {
		return nil
	}
	return entry.store
}

// Remove deletes the registered entry at path and reports whether one was
// present, without acquiring the registry lock a second time.
func (m *StoreMutator) Remove(path Path) bool {
	removed := m.c.removeLocked(path)
	if !removed {
		return false
	}
	filtered := m.entries[:0]
	for _, e := range m.entries {
		if !e.path.Equal(path) {
			filtered = append(filtered, e)
		}
	}
	m.entries = filtered
	return true
}

// MutatorCreate is the creation helper of with_stores' mutable view: it
// resolves or lazily registers the Store backing op exactly as ClientStore
// does, but reuses the critical section WithStores already holds instead
// of acquiring the registry lock again.
func MutatorCreate[S any, R any](m *StoreMutator, op Operation[S, R]) *Store[S, R] {
	path := op.Path()
	stateType := typeNameOf[S]()

	if existing, ok := m.c.entries[path.Key()]; ok {
		if existing.stateType != stateType {
			m.c.reporter(&DuplicatePathError{Path: path, ExistingTy: existing.stateType, RequestedTy: stateType})
			if store, ok := existing.store.(*Store[S, R]); ok {
				return store
			}
			var zero *Store[S, R]
			return zero
		}
		return existing.store.(*Store[S, R])
	}

	store := registerLocked(m.c, path, stateType, op)
	m.entries = append(m.entries, m.c.entries[path.Key()])
	return store
}

// WithStores takes the registry lock once and holds it for the full
// duration of body, handing it a StoreMutator bound to every entry whose
// Path has prefix as a prefix. Insert, remove and lookup performed through
// the mutator reuse this single critical section instead of acquiring a
// reentrant lock (sync.Mutex in Go is not reentrant, and goroutine-id
// tricks are not idiomatic here), so the whole mutation is atomic with
// respect to other registry operations.
func (c *Client) WithStores(prefix Path, body func(*StoreMutator)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.trie.matching(prefix)
	mutator := &StoreMutator{c: c, entries: entries}
	body(mutator)
}

// PathEntryInfo is the read-only view of a registry entry exposed for
// debugging/visualization tools outside the core package.
type PathEntryInfo struct {
	Path      Path
	StateType string
	Loading   bool
}

// DebugEntries snapshots every registered entry for inspection tools such
// as extensions.RenderTree.
func (c *Client) DebugEntries() []PathEntryInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]PathEntryInfo, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, PathEntryInfo{Path: e.path, StateType: e.stateType, Loading: e.loading()})
	}
	return out
}

func (c *Client) onPressure(p Pressure) {
	c.mu.Lock()
	var toDispose []*storeEntry
	for _, e := range c.entries {
		if e.evictableAt(p) {
			toDispose = append(toDispose, e)
		}
	}
	for _, e := range toDispose {
		c.removeLocked(e.path)
	}
	c.mu.Unlock()

	for _, e := range toDispose {
		e.dispose()
	}
}

func typeNameOf[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

package store

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	jsonpatch "github.com/evanphx/json-patch"
)

// Memory is the in-process store implementation. It backs the server binary
// and every test, the semantics are those of the hosted realtime store the
// production clients talk to.
type Memory struct {
	mu       sync.Mutex
	records  map[string]json.RawMessage
	watchers map[string][]*memoryWatcher
}

func NewMemory() *Memory {
	return &Memory{
		records:  map[string]json.RawMessage{},
		watchers: map[string][]*memoryWatcher{},
	}
}

// Connect opens a new connection scope, hooks and watchers are tied to it.
func (m *Memory) Connect() Conn {
	return &memoryConn{store: m}
}

type memoryConn struct {
	store *Memory

	mu       sync.Mutex
	closed   bool
	hooks    []*memoryHook
	watchers []*memoryWatcher
}

type memoryHook struct {
	conn    *memoryConn
	path    string
	partial json.RawMessage // nil means delete the record
	spent   bool
}

func (h *memoryHook) Cancel() {
	h.conn.mu.Lock()
	defer h.conn.mu.Unlock()
	h.spent = true
}

func (h *memoryHook) isSpent() bool {
	h.conn.mu.Lock()
	defer h.conn.mu.Unlock()

	return h.spent
}

type memoryWatcher struct {
	path      string
	ch        chan json.RawMessage
	cancelled bool
}

func (w *memoryWatcher) Snapshots() <-chan json.RawMessage {
	return w.ch
}

// push delivers a snapshot without ever blocking a writer: if the consumer
// lags, the oldest undelivered snapshot is dropped in favor of the new one.
// Always called with the store lock held.
func (w *memoryWatcher) push(snapshot json.RawMessage) {
	for {
		select {
		case w.ch <- snapshot:
			return
		default:
			select {
			case <-w.ch:
			default:
			}
		}
	}
}

func (m *Memory) notify(path string, snapshot json.RawMessage) {
	for _, w := range m.watchers[path] {
		w.push(snapshot)
	}
}

func (m *Memory) cancelWatcher(target *memoryWatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if target.cancelled {
		return
	}
	target.cancelled = true

	watchers := m.watchers[target.path]
	for k, w := range watchers {
		if w == target {
			m.watchers[target.path] = append(watchers[:k], watchers[k+1:]...)
			break
		}
	}

	close(target.ch)
}

func (c *memoryConn) Create(path string, record interface{}) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if err := c.guard(); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if _, ok := c.store.records[path]; ok {
		return ErrExists
	}

	c.store.records[path] = raw
	c.store.notify(path, raw)

	return nil
}

func (c *memoryConn) Read(path string, dst interface{}) error {
	if err := c.guard(); err != nil {
		return err
	}

	c.store.mu.Lock()
	raw, ok := c.store.records[path]
	c.store.mu.Unlock()

	if !ok {
		return ErrAbsent
	}

	return json.Unmarshal(raw, dst)
}

func (c *memoryConn) Update(path string, partial interface{}) error {
	patch, err := json.Marshal(partial)
	if err != nil {
		return err
	}

	if err := c.guard(); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	return c.store.update(path, patch)
}

// update applies a merge patch with the store lock held so every mutation of
// a path is atomic relative to readers and other writers.
func (m *Memory) update(path string, patch json.RawMessage) error {
	current, ok := m.records[path]
	if !ok {
		return ErrAbsent
	}

	merged, err := jsonpatch.MergePatch(current, patch)
	if err != nil {
		return err
	}

	m.records[path] = merged
	m.notify(path, merged)

	return nil
}

func (c *memoryConn) Delete(path string) error {
	if err := c.guard(); err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if _, ok := c.store.records[path]; !ok {
		return ErrAbsent
	}

	delete(c.store.records, path)
	c.store.notify(path, nil)

	return nil
}

func (c *memoryConn) Keys(prefix string) ([]string, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	var ret []string
	for path := range c.store.records {
		if strings.HasPrefix(path, prefix) {
			ret = append(ret, path)
		}
	}
	sort.Strings(ret)

	return ret, nil
}

func (c *memoryConn) Watch(path string) (Watcher, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}

	w := &memoryWatcher{
		path: path,
		ch:   make(chan json.RawMessage, 8),
	}

	c.store.mu.Lock()
	c.store.watchers[path] = append(c.store.watchers[path], w)
	w.push(c.store.records[path]) // immediate replay, nil if absent
	c.store.mu.Unlock()

	c.mu.Lock()
	c.watchers = append(c.watchers, w)
	c.mu.Unlock()

	return &connWatcher{store: c.store, watcher: w}, nil
}

// connWatcher routes Cancel through the store so the watcher list and the
// channel close stay under one lock.
type connWatcher struct {
	store   *Memory
	watcher *memoryWatcher
}

func (w *connWatcher) Snapshots() <-chan json.RawMessage {
	return w.watcher.Snapshots()
}

func (w *connWatcher) Cancel() {
	w.store.cancelWatcher(w.watcher)
}

func (c *memoryConn) OnDisconnectUpdate(path string, partial interface{}) (Hook, error) {
	patch, err := json.Marshal(partial)
	if err != nil {
		return nil, err
	}

	return c.arm(&memoryHook{conn: c, path: path, partial: patch})
}

func (c *memoryConn) OnDisconnectDelete(path string) (Hook, error) {
	return c.arm(&memoryHook{conn: c, path: path})
}

func (c *memoryConn) arm(hook *memoryHook) (Hook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	c.hooks = append(c.hooks, hook)

	return hook, nil
}

func (c *memoryConn) guard() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	return nil
}

func (c *memoryConn) Close() {
	c.teardown(false)
}

func (c *memoryConn) Drop() {
	c.teardown(true)
}

func (c *memoryConn) teardown(fireHooks bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	hooks := c.hooks
	watchers := c.watchers
	c.hooks, c.watchers = nil, nil
	c.mu.Unlock()

	for _, w := range watchers {
		c.store.cancelWatcher(w)
	}

	if !fireHooks {
		return
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	for _, h := range hooks {
		if h.isSpent() {
			continue
		}

		if h.partial == nil {
			if _, ok := c.store.records[h.path]; ok {
				delete(c.store.records, h.path)
				c.store.notify(h.path, nil)
			}
			continue
		}

		// The record may be long gone (eg. the opponent finalized and
		// deleted the duel), an armed patch on an absent path is a no-op.
		_ = c.store.update(h.path, h.partial)
	}
}

// Package scratch holds the per-batch key/value store that mapping transforms
// use to talk to each other.
//
// Keys live in one of two namespaces. Record keys are cleared by ResetRecord
// before each record is mapped (cover candidates, the record being mapped).
// Batch keys survive the whole batch (deferred deletes, configurator creates,
// id-mapping updates) and are read once when the batch is flushed.
package scratch

import "sync"

type Context struct {
	mu     sync.RWMutex
	record map[string]any
	batch  map[string]any
}

func New() *Context {
	return &Context{
		record: map[string]any{},
		batch:  map[string]any{},
	}
}

// ResetRecord drops every record-scoped key.
func (c *Context) ResetRecord() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = map[string]any{}
}

func (c *Context) SetRecord(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record[key] = val
}

func (c *Context) GetRecord(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.record[key]
	return val, ok
}

func (c *Context) SetBatch(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batch[key] = val
}

func (c *Context) GetBatch(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.batch[key]
	return val, ok
}

func (c *Context) DeleteBatch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.batch, key)
}

// Record returns a typed record-scoped value.
func Record[T any](c *Context, key string) (T, bool) {
	var zero T
	raw, ok := c.GetRecord(key)
	if !ok {
		return zero, false
	}
	val, ok := raw.(T)
	return val, ok
}

// Batch returns a typed batch-scoped value.
func Batch[T any](c *Context, key string) (T, bool) {
	var zero T
	raw, ok := c.GetBatch(key)
	if !ok {
		return zero, false
	}
	val, ok := raw.(T)
	return val, ok
}

// BatchOrInit returns the batch value under key, creating it with init when
// it does not exist yet. The value is expected to be a pointer or a map so
// callers can mutate it in place.
func BatchOrInit[T any](c *Context, key string, init func() T) T {
	c.mu.Lock()
	defer c.mu.Unlock()

	if raw, ok := c.batch[key]; ok {
		if val, ok := raw.(T); ok {
			return val
		}
	}
	val := init()
	c.batch[key] = val
	return val
}

// Package reqcontext implements the per-request ambient storage described
// in spec.md §3 and §4.3: a stable request id, a metadata map, a slot map
// for request-scoped container instances, and reverse-order cleanup
// callbacks.
package reqcontext

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/loomkit/loom/pkg/logging"
)

type ctxKey struct{}

// Context is the per-request ambient object. Exactly one is active per
// request on whatever scheduling primitive carries the request (a
// goroutine, in Go's case).
type Context struct {
	id       string
	mu       sync.Mutex
	metadata map[string]any
	slots    map[string]any
	cleanups []func()
	log      logging.Logger
}

// New creates a fresh Request Context with a newly minted request id.
func New(log logging.Logger) *Context {
	if log == nil {
		log = logging.NoOp()
	}
	return &Context{
		id:       uuid.NewString(),
		metadata: make(map[string]any),
		slots:    make(map[string]any),
		log:      log,
	}
}

// ID returns the stable request id.
func (c *Context) ID() string { return c.id }

// SetMetadata stores a key under application control.
func (c *Context) SetMetadata(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

// Metadata reads a previously stored key.
func (c *Context) Metadata(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.metadata[key]
	return v, ok
}

// AddCleanup registers a callback to run in reverse insertion order when
// the context ends. Exceptions during cleanup are logged and do not
// prevent subsequent cleanups from running.
func (c *Context) AddCleanup(callback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanups = append(c.cleanups, callback)
}

// RunCleanups runs every registered cleanup in reverse insertion order.
// A panicking cleanup is recovered, logged, and does not stop the rest.
func (c *Context) RunCleanups() {
	c.mu.Lock()
	cleanups := c.cleanups
	c.cleanups = nil
	c.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		c.runOne(cleanups[i])
	}
}

func (c *Context) runOne(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("request cleanup panicked", "request_id", c.id, "panic", r)
		}
	}()
	fn()
}

// Slot returns the request-scoped instance stored under name, if any.
// It takes the lock itself; callers already holding the lock (between
// Lock and Unlock) must use SlotLocked instead, to avoid relocking the
// same non-reentrant mutex.
func (c *Context) Slot(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.SlotLocked(name)
}

// StoreSlot stores a request-scoped instance under name. Construction and
// storage are not atomic together: callers that need "construct once per
// request" must hold their own lock around the check-then-store sequence
// (see pkg/container's request-scope resolution path), using Lock/Unlock
// plus SlotLocked/StoreSlotLocked rather than Slot/StoreSlot directly.
func (c *Context) StoreSlot(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StoreSlotLocked(name, value)
}

// SlotLocked and StoreSlotLocked are the lock-free bodies of Slot and
// StoreSlot. Callers must already hold c.mu (via Lock) before calling
// either — typically to bracket a "check slot, else construct and
// store" sequence atomically, as pkg/container's request-scope
// resolution does. Slot/StoreSlot are the entry points safe to call
// without already holding the lock.
func (c *Context) SlotLocked(name string) (any, bool) {
	v, ok := c.slots[name]
	return v, ok
}

func (c *Context) StoreSlotLocked(name string, value any) {
	c.slots[name] = value
}

// Lock/Unlock expose the context's mutex so callers needing an atomic
// "resolve-or-construct" sequence for a single slot (pkg/container) can
// serialize on the same lock the slot map itself uses. Code running
// between Lock and Unlock must use SlotLocked/StoreSlotLocked, never
// Slot/StoreSlot, to avoid relocking the same non-reentrant mutex.
func (c *Context) Lock()   { c.mu.Lock() }
func (c *Context) Unlock() { c.mu.Unlock() }

// WithContext attaches rc to ctx, making it the active Request Context
// for any code that runs with the returned context.
func WithContext(ctx context.Context, rc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext retrieves the active Request Context, if any. Resolving a
// request-scoped dependency with no active context found here fails with
// NoActiveRequestScope (see pkg/container).
func FromContext(ctx context.Context) (*Context, bool) {
	rc, ok := ctx.Value(ctxKey{}).(*Context)
	return rc, ok
}

package debug

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Registry holds the providers consulted when a call starts.
type Registry struct {
	logger *zap.Logger

	mu      sync.Mutex
	entries []*registration
}

type registration struct {
	provider Provider
}

// NewRegistry returns an empty Registry. Panicking providers are reported to
// logger, which may be nil.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// Register adds p and returns a function that removes it again. Calls that
// already started keep the debuggers they were given.
func (r *Registry) Register(p Provider) (unregister func()) {
	if p == nil {
		return func() {}
	}
	reg := &registration{provider: p}
	r.mu.Lock()
	r.entries = append(r.entries, reg)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(reg) })
	}
}

func (r *Registry) remove(reg *registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e == reg {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot returns the registered providers in registration order.
func (r *Registry) Snapshot() []Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	providers := make([]Provider, len(r.entries))
	for i, e := range r.entries {
		providers[i] = e.provider
	}
	return providers
}

// DebuggersFor asks every registered provider for its Debugger of callID. A
// provider that panics is skipped for this call.
func (r *Registry) DebuggersFor(callID uint64) []Debugger {
	providers := r.Snapshot()
	debuggers := make([]Debugger, 0, len(providers))
	for i, p := range providers {
		if d := r.debuggerFor(i, p, callID); d != nil {
			debuggers = append(debuggers, d)
		}
	}
	return debuggers
}

func (r *Registry) debuggerFor(index int, p Provider, callID uint64) (d Debugger) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("debugger provider panicked",
				zap.Uint64("call", callID),
				zap.Int("provider", index),
				zap.String("panic", fmt.Sprint(rec)),
			)
			d = nil
		}
	}()
	return p.DebuggerFor(callID)
}

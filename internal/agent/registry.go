package agent

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultToolTimeout bounds tool execution when a tool declares no
// timeout of its own. Individual tool timeouts are authoritative.
const DefaultToolTimeout = 10 * time.Second

// Tool is a named capability the reasoning loop may invoke on the
// model's request. Parameters is a JSON-schema object describing the
// accepted arguments; Execute receives parsed arguments with the acting
// user's identity merged in under "user_id".
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Timeout     time.Duration
	Execute     func(ctx context.Context, params map[string]any) (any, error)
}

// Registry maps tool names to definitions. It is read-mostly and safe
// for concurrent use across reasoning loops. Registration is expected at
// process start, but nothing forbids registering or removing tools while
// conversations are in flight — an executor resolves names at call time
// and treats a missing name as an unknown-tool failure.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool, replacing any existing tool with the same name.
func (r *Registry) Register(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
	slog.Info("registered tool", "name", t.Name)
}

// Remove deletes a tool by name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the tool with the given name, or false if not registered.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools sorted by name, so the definitions
// presented to the model are stable across iterations.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

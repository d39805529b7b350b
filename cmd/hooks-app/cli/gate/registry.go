package gate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/event"
)

// ErrBuiltinNotFound is wrapped by Execute when a gate with no command and
// no plugin reference names no registered built-in.
var ErrBuiltinNotFound = errors.New("built-in gate not found")

// Builtin is a gate implemented in Go.
type Builtin interface {
	Evaluate(ctx context.Context, ev *event.Event) (*Result, error)
}

// BuiltinFunc adapts a function to Builtin.
type BuiltinFunc func(ctx context.Context, ev *event.Event) (*Result, error)

// Evaluate calls f.
func (f BuiltinFunc) Evaluate(ctx context.Context, ev *event.Event) (*Result, error) {
	return f(ctx, ev)
}

// Registry maps normalized gate names to built-ins. The zero value is
// ready to use.
type Registry struct {
	mu    sync.RWMutex
	gates map[string]registered
}

type registered struct {
	name    string
	builtin Builtin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NormalizeName folds a gate name for lookup: lower-cased with '-' and '_'
// removed, so "plugin-path", "plugin_path" and "PluginPath" are one gate.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	return strings.NewReplacer("-", "", "_", "").Replace(name)
}

// Register adds b under name, replacing any built-in with the same
// normalized name.
func (r *Registry) Register(name string, b Builtin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gates == nil {
		r.gates = make(map[string]registered)
	}
	r.gates[NormalizeName(name)] = registered{name: name, builtin: b}
}

// Lookup returns the built-in registered under name.
//
//nolint:ireturn // Registry returns whichever implementation was registered
func (r *Registry) Lookup(name string) (Builtin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if reg, ok := r.gates[NormalizeName(name)]; ok {
		return reg.builtin, nil
	}
	return nil, fmt.Errorf("Failed to load built-in gate %s: %w", name, ErrBuiltinNotFound) //nolint:staticcheck // message surfaces to the host verbatim
}

// Names returns the registered names as given to Register, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.gates))
	for _, reg := range r.gates {
		names = append(names, reg.name)
	}
	sort.Strings(names)
	return names
}

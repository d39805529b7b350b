package gate

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/config"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/paths"
	"github.com/turboshovel/hooks/cmd/hooks-app/cli/validation"
)

// MaxPluginDepth bounds how many plugin references one gate may traverse.
const MaxPluginDepth = 10

var (
	// ErrCircularReference marks a plugin:gate that already appears in the
	// resolution chain.
	ErrCircularReference = errors.New("circular reference")

	// ErrChainTooDeep marks a chain that reached MaxPluginDepth.
	ErrChainTooDeep = errors.New("maximum plugin chain depth exceeded")

	// ErrPluginNotConfigured marks a sibling plugin without a readable
	// hooks/gates.json.
	ErrPluginNotConfigured = errors.New("plugin has no gate configuration")

	// ErrGateNotFound marks a gate missing from the sibling plugin's map.
	ErrGateNotFound = errors.New("gate not found in plugin")
)

// ResolutionError reports a failed cross-plugin lookup. It is fatal to a
// dispatch.
type ResolutionError struct {
	Plugin string
	Gate   string
	Chain  []string
	Err    error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve gate '%s' from plugin '%s'", e.Gate, e.Plugin)
	if len(e.Chain) > 0 {
		msg += " (chain: " + strings.Join(e.Chain, " -> ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Resolution is a gate found in a sibling plugin.
type Resolution struct {
	// PluginRoot is the sibling's bundle directory. Its commands run there.
	PluginRoot string

	// Spec is the gate as the sibling defines it.
	Spec config.GateSpec
}

// Resolver finds gates defined by plugins installed next to this one.
type Resolver struct {
	// PluginRoot is this plugin's bundle directory; siblings share its
	// parent. Empty means cross-plugin references cannot be resolved.
	PluginRoot string
}

// NewResolver creates a resolver for the plugin installed at pluginRoot.
func NewResolver(pluginRoot string) *Resolver {
	return &Resolver{PluginRoot: pluginRoot}
}

// Resolve looks up ref in its plugin. chain lists the plugin:gate ids
// already visited by this resolution; ref must not be among them.
func (r *Resolver) Resolve(ref config.PluginTarget, chain []string) (*Resolution, error) {
	fail := func(err error) error {
		return &ResolutionError{Plugin: ref.Plugin, Gate: ref.Gate, Chain: slices.Clone(chain), Err: err}
	}

	if err := validation.ValidatePluginName(ref.Plugin); err != nil {
		return nil, fail(err)
	}
	if slices.Contains(chain, ref.ID()) {
		return nil, fail(fmt.Errorf("%w: %s", ErrCircularReference, ref.ID()))
	}
	if len(chain) >= MaxPluginDepth {
		return nil, fail(fmt.Errorf("%w (%d)", ErrChainTooDeep, MaxPluginDepth))
	}
	if r.PluginRoot == "" {
		return nil, fail(fmt.Errorf("%w: plugin root is not set", ErrPluginNotConfigured))
	}

	root := paths.SiblingPluginRoot(r.PluginRoot, ref.Plugin)
	cfg, err := config.ReadFile(paths.PluginGatesFile(root))
	if err != nil {
		return nil, fail(fmt.Errorf("%w: %w", ErrPluginNotConfigured, err))
	}
	if cfg == nil {
		return nil, fail(fmt.Errorf("%w: %s", ErrPluginNotConfigured, paths.PluginGatesFile(root)))
	}

	spec, ok := cfg.Gates[ref.Gate]
	if !ok {
		return nil, fail(ErrGateNotFound)
	}
	return &Resolution{PluginRoot: root, Spec: spec}, nil
}

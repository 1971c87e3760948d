package strategy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	apperrors "kiwoom-trader/internal/errors"
)

// Descriptor describes one registered strategy.
type Descriptor struct {
	// Name is the lookup key used on the command line.
	Name string
	// Source identifies the file that registered the strategy. Sources
	// starting with "_" are private and never discovered.
	Source      string
	Description string
	Factory     Factory
	// Abstract marks the shared base, which is registered but never runnable.
	Abstract bool
}

// Registry holds strategy descriptors. The zero value is ready to use.
type Registry struct {
	mu      sync.RWMutex
	entries []Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Default is the registry bundled strategies register into from init.
var Default = NewRegistry()

// Register adds d to the Default registry.
func Register(d Descriptor) {
	Default.Register(d)
}

// Register adds d. It never fails; conflicts are resolved by Discover.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, d)
}

// Loaded returns the runnable descriptors sorted by name. Descriptors are
// scanned in (Source, Name) order; abstract, private and broken entries
// are skipped and a later duplicate replaces an earlier one.
func (r *Registry) Loaded(logger zerolog.Logger) []Descriptor {
	r.mu.RLock()
	entries := make([]Descriptor, len(r.entries))
	copy(entries, r.entries)
	r.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Source != entries[j].Source {
			return entries[i].Source < entries[j].Source
		}
		return entries[i].Name < entries[j].Name
	})

	found := make(map[string]Descriptor)
	for _, d := range entries {
		switch {
		case d.Abstract:
			continue
		case strings.HasPrefix(d.Source, "_"):
			continue
		case d.Name == "" || d.Factory == nil:
			logger.Warn().Str("source", d.Source).Str("strategy", d.Name).Msg("Skipping incomplete strategy registration")
			continue
		}

		if err := probe(d.Factory); err != nil {
			logger.Warn().Err(err).Str("source", d.Source).Str("strategy", d.Name).Msg("Failed to load strategy")
			continue
		}

		if prev, dup := found[d.Name]; dup {
			logger.Warn().
				Str("strategy", d.Name).
				Str("replaced", prev.Source).
				Str("source", d.Source).
				Msg("Duplicate strategy name, last one wins")
		}
		found[d.Name] = d
	}

	out := make([]Descriptor, 0, len(found))
	for _, d := range found {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Discover returns the runnable strategies keyed by name.
func (r *Registry) Discover(logger zerolog.Logger) map[string]Factory {
	loaded := r.Loaded(logger)
	out := make(map[string]Factory, len(loaded))
	for _, d := range loaded {
		out[d.Name] = d.Factory
	}
	return out
}

// Names returns the sorted names of the runnable strategies.
func (r *Registry) Names(logger zerolog.Logger) []string {
	loaded := r.Loaded(logger)
	names := make([]string, len(loaded))
	for i, d := range loaded {
		names[i] = d.Name
	}
	return names
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string, logger zerolog.Logger) (Factory, error) {
	factory, ok := r.Discover(logger)[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownStrategy, name)
	}
	return factory, nil
}

// probe builds the strategy with empty settings to make sure it loads.
func probe(factory Factory) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	s, err := factory(Settings{}, zerolog.Nop())
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("factory returned no strategy")
	}
	return nil
}

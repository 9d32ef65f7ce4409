package moulinette

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds an evaluator from a criterion's settings blob.
type Constructor func(settings map[string]any) (Evaluator, error)

// Registry maps evaluator slugs to constructors. Criterion rows reference
// evaluators by slug; the registry replaces the original's runtime class
// lookup by dotted path.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates an empty evaluator registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register installs a constructor under a slug. Registering the same slug
// twice is a programming error.
func (r *Registry) Register(slug string, c Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.constructors[slug]; ok {
		return fmt.Errorf("evaluator %q already registered", slug)
	}
	r.constructors[slug] = c
	return nil
}

// MustRegister is Register for package init blocks.
func (r *Registry) MustRegister(slug string, c Constructor) {
	if err := r.Register(slug, c); err != nil {
		panic(err)
	}
}

// New constructs the evaluator registered under slug.
func (r *Registry) New(slug string, settings map[string]any) (Evaluator, error) {
	r.mu.RLock()
	c, ok := r.constructors[slug]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown evaluator %q", slug)
	}
	ev, err := c(settings)
	if err != nil {
		return nil, fmt.Errorf("construct evaluator %q: %w", slug, err)
	}
	return ev, nil
}

// Has reports whether a slug is registered.
func (r *Registry) Has(slug string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[slug]
	return ok
}

// List returns registered slugs, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slugs := make([]string, 0, len(r.constructors))
	for slug := range r.constructors {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// DefaultRegistry is the process-wide registry concrete evaluators attach
// to from their package init, database/sql driver style.
var DefaultRegistry = NewRegistry()

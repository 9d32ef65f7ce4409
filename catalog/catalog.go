// Package catalog implements the lazy derived-facts store shared by all
// criterion evaluators during one moulinette evaluation.
//
// A catalog starts from seeded input values. Reading a missing key invokes
// the producer registered under that name, memoizes its value and returns
// it. Producers may read other catalog keys; cycles are detected and
// reported instead of deadlocking the evaluation.
package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingKey reports a read of a key that is neither seeded nor
	// produced. This is a programming error and stops the evaluation.
	ErrMissingKey = errors.New("missing catalog key")

	// ErrCycle reports a producer that transitively reads its own key.
	ErrCycle = errors.New("catalog producer cycle")
)

// Producer computes the value for a catalog key. It receives the catalog
// itself so it can read other keys.
type Producer func(c *Catalog) (any, error)

// Contribution declares a producer for a key, as contributed statically by
// an evaluator.
type Contribution struct {
	Key     string
	Produce Producer
}

// Catalog is a per-evaluation key/value store with lazy producers. It is
// not safe for concurrent use; one evaluation owns one catalog.
type Catalog struct {
	values    map[string]any
	producers map[string]Producer
	inflight  map[string]bool
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		values:    make(map[string]any),
		producers: make(map[string]Producer),
		inflight:  make(map[string]bool),
	}
}

// Seed stores a value directly, bypassing producers.
func (c *Catalog) Seed(key string, value any) {
	c.values[key] = value
}

// Register installs a producer for a key. The first registration wins so
// an orchestrator-seeded producer cannot be displaced by an evaluator's
// default contribution.
func (c *Catalog) Register(key string, p Producer) {
	if _, ok := c.producers[key]; ok {
		return
	}
	c.producers[key] = p
}

// Has reports whether the key is already materialized.
func (c *Catalog) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Provides reports whether the key is seeded or has a producer, i.e.
// whether Get can succeed without ErrMissingKey.
func (c *Catalog) Provides(key string) bool {
	if _, ok := c.values[key]; ok {
		return true
	}
	_, ok := c.producers[key]
	return ok
}

// Get returns the value for key, invoking and memoizing its producer when
// needed.
func (c *Catalog) Get(key string) (any, error) {
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	p, ok := c.producers[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingKey, key)
	}
	if c.inflight[key] {
		return nil, fmt.Errorf("%w: %q", ErrCycle, key)
	}
	c.inflight[key] = true
	defer delete(c.inflight, key)

	v, err := p(c)
	if err != nil {
		return nil, fmt.Errorf("produce catalog key %q: %w", key, err)
	}
	c.values[key] = v
	return v, nil
}

// Float reads a numeric key. Integer values are widened.
func (c *Catalog) Float(key string) (float64, error) {
	v, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("catalog key %q: expected number, got %T", key, v)
	}
}

// Int reads an integer key.
func (c *Catalog) Int(key string) (int, error) {
	f, err := c.Float(key)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Bool reads a boolean key.
func (c *Catalog) Bool(key string) (bool, error) {
	v, err := c.Get(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("catalog key %q: expected bool, got %T", key, v)
	}
	return b, nil
}

// String reads a string key.
func (c *Catalog) String(key string) (string, error) {
	v, err := c.Get(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("catalog key %q: expected string, got %T", key, v)
	}
	return s, nil
}

// StringDefault reads a string key, returning def when the key is neither
// seeded nor produced.
func (c *Catalog) StringDefault(key, def string) string {
	s, err := c.String(key)
	if err != nil {
		return def
	}
	return s
}

// FloatDefault reads a numeric key with a fallback.
func (c *Catalog) FloatDefault(key string, def float64) float64 {
	f, err := c.Float(key)
	if err != nil {
		return def
	}
	return f
}

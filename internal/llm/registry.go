package llm

import (
	"fmt"
	"strings"
	"sync"
)

// Registry resolves "provider/model" strings to a concrete Provider,
// grounded on the teacher's provider.Registry.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider, keyed by its own ID.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Get looks up a provider by id.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("llm: provider not found: %s", providerID)
	}
	return p, nil
}

// ParseModelString splits a "provider/model" string. A string with no
// slash is treated as a bare model id with an empty provider id.
func ParseModelString(s string) (providerID, modelID string) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", s
}

// Resolve returns the Provider and ModelInfo a "provider/model" string
// names.
func (r *Registry) Resolve(spec string) (Provider, *ModelInfo, error) {
	providerID, modelID := ParseModelString(spec)
	p, err := r.Get(providerID)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range p.Models() {
		if m.ID == modelID {
			mm := m
			return p, &mm, nil
		}
	}
	return nil, nil, fmt.Errorf("llm: model not found: %s", spec)
}

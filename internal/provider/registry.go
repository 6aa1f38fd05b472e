package provider

import "sync"

// Registry holds all registered provider adapters keyed by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[ProviderName]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[ProviderName]Provider),
	}
}

// Register adds a provider to the registry, replacing any adapter already
// registered under the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not registered.
func (r *Registry) Get(name ProviderName) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// All returns all registered providers in classification priority order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Provider
	for _, name := range AllProviderNames() {
		if p, ok := r.providers[name]; ok {
			result = append(result, p)
		}
	}
	return result
}

// Except returns all registered providers other than exclude, in priority
// order. An empty exclude returns every provider.
func (r *Registry) Except(exclude ProviderName) []Provider {
	all := r.All()
	if exclude == "" {
		return all
	}
	result := all[:0:0]
	for _, p := range all {
		if p.Name() != exclude {
			result = append(result, p)
		}
	}
	return result
}

// Classify picks the registered adapter responsible for rawURL.
func (r *Registry) Classify(rawURL string) (Provider, error) {
	return Classify(rawURL, r.All())
}

// Package providers holds the provider strategy registry. Each wearable
// provider registers one ProviderStrategy; callers select by name.
package providers

import (
	"sort"

	"healthsync/internal/domain"
	apperrors "healthsync/internal/errors"
)

type Registry struct {
	strategies map[string]domain.ProviderStrategy
}

func NewRegistry(strategies ...domain.ProviderStrategy) *Registry {
	r := &Registry{strategies: make(map[string]domain.ProviderStrategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Name()] = s
	}
	return r
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (domain.ProviderStrategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, apperrors.NewValidationError("unknown provider").WithContext("provider", name)
	}
	return s, nil
}

// Names lists the registered provider names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package policy

import "fmt"

// Registry is the process-wide table of compiled-in policies keyed by
// (provider, resource kind). It is assembled once at startup and never
// mutated afterwards, which makes lookups safe from any number of evaluator
// workers without locking.
type Registry struct {
	byVariant map[string][]Definition
	count     int
}

func variantKey(provider, kind string) string {
	return provider + "/" + kind
}

// NewRegistry builds a registry from the given definitions. Registration
// order within a variant is preserved; it is the order checks run in.
func NewRegistry(defs ...[]Definition) (*Registry, error) {
	r := &Registry{byVariant: make(map[string][]Definition)}
	seen := make(map[string]string)

	for _, group := range defs {
		for _, d := range group {
			if d.PolicyID == "" {
				return nil, fmt.Errorf("policy with empty id for %s/%s", d.Provider, d.ResourceKind)
			}
			if d.Check == nil {
				return nil, fmt.Errorf("policy %s has no check", d.PolicyID)
			}
			if prev, dup := seen[d.PolicyID]; dup {
				return nil, fmt.Errorf("duplicate policy id %s (already registered for %s)", d.PolicyID, prev)
			}
			seen[d.PolicyID] = variantKey(d.Provider, d.ResourceKind)

			key := variantKey(d.Provider, d.ResourceKind)
			r.byVariant[key] = append(r.byVariant[key], d)
			r.count++
		}
	}

	return r, nil
}

// Lookup returns the ordered policies for a resource variant. A variant with
// no registered policies yields an empty slice; that is not an error.
func (r *Registry) Lookup(provider, kind string) []Definition {
	return r.byVariant[variantKey(provider, kind)]
}

// Len returns the total number of registered policies.
func (r *Registry) Len() int {
	return r.count
}

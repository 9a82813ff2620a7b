package backup

import "sort"

// Resolve orders the enabled types so each one comes after its dependencies.
// Ties are broken by declaration order, so identical input always yields the
// same plan. It fails with a *ConfigError when an enabled type depends on a
// disabled one or when the table contains a cycle.
func (r *Registry) Resolve(enabled []string) ([]EntityDescriptor, error) {
	want := setFromSlice(enabled)
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := r.index[name]; !ok {
			return nil, &ConfigError{Type: name, Err: ErrUnknownType}
		}
	}
	var pending []EntityDescriptor
	for _, e := range r.entities {
		if _, ok := want[e.Type]; !ok {
			continue
		}
		for _, dep := range e.Dependencies {
			if _, ok := want[dep]; !ok {
				return nil, &ConfigError{Type: e.Type, Dependency: dep, Err: ErrMissingDependency}
			}
		}
		pending = append(pending, e)
	}

	placed := make(map[string]bool, len(pending))
	order := make([]EntityDescriptor, 0, len(pending))
	for len(pending) > 0 {
		next := -1
		for i, e := range pending {
			ready := true
			for _, dep := range e.Dependencies {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, &ConfigError{Type: pending[0].Type, Err: ErrCycle}
		}
		e := pending[next]
		placed[e.Type] = true
		order = append(order, e)
		pending = append(pending[:next], pending[next+1:]...)
	}
	return order, nil
}

// Plan is a convenience returning only the ordered type names.
func (r *Registry) Plan(enabled []string) ([]string, error) {
	order, err := r.Resolve(enabled)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(order))
	for i, e := range order {
		names[i] = e.Type
	}
	return names, nil
}

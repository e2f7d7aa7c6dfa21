package lifecycle

import "github.com/loomkit/loom/pkg/diagnostics"

// node is one component's view into the dependency graph the Manager
// topologically sorts before running any phase.
type node struct {
	name string
	deps []string
}

// topoSort runs Kahn's algorithm over nodes, returning a dependency-
// respecting order (a dependency always precedes its dependents). Ties
// among components with no remaining precedence constraint are broken by
// registration order, for a deterministic startup sequence.
func topoSort(nodes []node) ([]string, error) {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.name] = i
	}

	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string)
	for _, n := range nodes {
		if _, ok := indegree[n.name]; !ok {
			indegree[n.name] = 0
		}
		for _, dep := range n.deps {
			indegree[n.name]++
			dependents[dep] = append(dependents[dep], n.name)
		}
	}

	var ready []string
	for _, n := range nodes {
		if indegree[n.name] == 0 {
			ready = append(ready, n.name)
		}
	}

	var order []string
	for len(ready) > 0 {
		// pick the lowest-registration-order-index ready node for a
		// deterministic, reproducible startup sequence.
		best := 0
		for i := 1; i < len(ready); i++ {
			if index[ready[i]] < index[ready[best]] {
				best = i
			}
		}
		name := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, name)

		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(nodes) {
		var remaining []string
		for _, n := range nodes {
			if indegree[n.name] > 0 {
				remaining = append(remaining, n.name)
			}
		}
		return nil, diagnostics.NewCircularDependency(remaining)
	}
	return order, nil
}

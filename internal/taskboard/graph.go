// Dependency graph queries over the store's id → dependency-list map.
//
// Every walk carries its own visited set, so cyclic graphs terminate and
// re-entrant calls never short-circuit each other.
package taskboard

import (
	"sort"
	"strings"
)

// DependencySatisfied reports whether every dependency of id resolves to an
// existing complete task. No dependencies is trivially satisfied; a self
// reference or a missing id never is.
func (s *Store) DependencySatisfied(id string) bool {
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	return len(s.unsatisfied(id)) == 0
}

// unsatisfied returns the dependencies of id that block it, in list order.
func (s *Store) unsatisfied(id string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, depID := range s.deps[id] {
		if _, dup := seen[depID]; dup {
			continue
		}
		seen[depID] = struct{}{}
		dep := s.tasks[depID]
		if depID == id || dep == nil || dep.Status != StatusComplete {
			out = append(out, depID)
		}
	}
	return out
}

// BlockedBy returns the dependency ids keeping id out of todo. This is the
// "blocked by" annotation shown on blocked tasks.
func (s *Store) BlockedBy(id string) []string {
	return s.unsatisfied(id)
}

// Dependents returns the ids of tasks that list id as a dependency, sorted.
func (s *Store) Dependents(id string) []string {
	return s.dependents(id)
}

func (s *Store) dependents(id string) []string {
	var out []string
	for taskID, deps := range s.deps {
		if taskID != id && containsString(deps, id) {
			out = append(out, taskID)
		}
	}
	sort.Strings(out)
	return out
}

// DependencyChain returns the transitive dependency closure of id in
// post-order (deepest first), without duplicates and without id itself.
func (s *Store) DependencyChain(id string) []string {
	visited := make(map[string]struct{})
	inChain := make(map[string]struct{})
	var chain []string
	var walk func(string)
	walk = func(current string) {
		if _, seen := visited[current]; seen {
			return
		}
		visited[current] = struct{}{}
		for _, depID := range s.deps[current] {
			walk(depID)
			if depID == id {
				continue
			}
			if _, dup := inChain[depID]; !dup {
				inChain[depID] = struct{}{}
				chain = append(chain, depID)
			}
		}
	}
	walk(id)
	return chain
}

// InCycle reports whether id can reach itself through its dependencies.
func (s *Store) InCycle(id string) bool {
	visited := make(map[string]struct{})
	var reaches func(string) bool
	reaches = func(current string) bool {
		for _, depID := range s.deps[current] {
			if depID == id {
				return true
			}
			if _, seen := visited[depID]; seen {
				continue
			}
			visited[depID] = struct{}{}
			if reaches(depID) {
				return true
			}
		}
		return false
	}
	return reaches(id)
}

// Cycles enumerates the dependency cycles in the graph. Each cycle is listed
// once, rotated to start at its smallest id, and closed (first id repeated
// at the end).
func (s *Store) Cycles() [][]string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(s.deps))
	var stack []string
	onStack := make(map[string]int) // id → index in stack
	seen := make(map[string]struct{})
	var cycles [][]string

	var visit func(string)
	visit = func(id string) {
		color[id] = grey
		onStack[id] = len(stack)
		stack = append(stack, id)
		for _, depID := range s.deps[id] {
			if _, exists := s.tasks[depID]; !exists {
				continue
			}
			switch color[depID] {
			case white:
				visit(depID)
			case grey:
				cycle := canonicalCycle(stack[onStack[depID]:])
				key := strings.Join(cycle, "\x00")
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					cycles = append(cycles, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		delete(onStack, id)
		color[id] = black
	}

	for _, id := range sortedKeys(s.tasks) {
		if color[id] == white {
			visit(id)
		}
	}
	return cycles
}

func canonicalCycle(path []string) []string {
	start := 0
	for i, id := range path {
		if id < path[start] {
			start = i
		}
	}
	out := make([]string, 0, len(path)+1)
	out = append(out, path[start:]...)
	out = append(out, path[:start]...)
	return append(out, out[0])
}

// MissingDependencies maps each task id to dependency ids that do not exist.
func (s *Store) MissingDependencies() map[string][]string {
	out := make(map[string][]string)
	for id, deps := range s.deps {
		for _, depID := range deps {
			if _, ok := s.tasks[depID]; !ok && !containsString(out[id], depID) {
				out[id] = append(out[id], depID)
			}
		}
	}
	return out
}

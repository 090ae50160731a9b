package validator

import (
	"fmt"
	"sort"
	"strings"
)

// dependencyGraph maps standing → standings it waits for.
type dependencyGraph map[string][]string

// buildDependencyGraph constructs the stage dependency graph.
//
// For each rule, the standing of its slot depends on:
//   - the rule's pre_finished standing
//   - every per-role pre_finished_override
//   - every standing a role is ranked from
func (v *validation) buildDependencyGraph() dependencyGraph {
	graph := make(dependencyGraph)
	for _, s := range v.slots {
		if graph[s.Standing] == nil {
			graph[s.Standing] = []string{}
		}
	}

	for _, r := range v.tmpl.Rules {
		slot, ok := v.tmpl.Slot(r.SlotID)
		if !ok {
			continue // reported by checkRules
		}
		from := slot.Standing
		deps := []string{r.PreFinished}
		for _, urt := range r.Teams {
			deps = append(deps, urt.Standing)
			if urt.PreFinishedOverride != "" {
				deps = append(deps, urt.PreFinishedOverride)
			}
		}
		for _, to := range deps {
			if to == "" {
				continue
			}
			if !contains(graph[from], to) {
				graph[from] = append(graph[from], to)
			}
		}
	}

	for node := range graph {
		sort.Strings(graph[node])
	}
	return graph
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// checkCycles reports every strongly connected component of the stage graph
// with more than one node, and every self-loop.
//
// A slot whose rule waits on a standing that (transitively) waits on the
// slot's own standing can never resolve.
func (v *validation) checkCycles() {
	graph := v.buildDependencyGraph()
	for _, scc := range tarjanSCC(graph) {
		if len(scc) == 1 && !hasSelfLoop(scc[0], graph) {
			continue
		}
		path := reconstructCyclePath(scc, graph)
		v.errorf(ErrCircularDependency, v.slotsInStandings(scc),
			"circular stage dependency: %s", strings.Join(path, " → "))
	}
}

// slotsInStandings returns ids of rule-bound slots whose standing is in set.
func (v *validation) slotsInStandings(set []string) []int64 {
	var ids []int64
	for _, s := range v.slots {
		if !contains(set, s.Standing) {
			continue
		}
		if _, ok := v.tmpl.RuleForSlot(s.ID); ok {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	return contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results are deterministic.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	sort.Slice(sccs, func(i, j int) bool { return sccs[i][0] < sccs[j][0] })
	return sccs
}

// reconstructCyclePath returns the shortest cycle through the first
// standing of an SCC, starting and ending on it. For self-loops the path is
// [standing, standing].
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}
	start := scc[0]

	// Breadth-first over edges inside the SCC; every member reaches start.
	parent := make(map[string]string)
	queue := []string{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range graph[node] {
			if !contains(scc, next) {
				continue
			}
			if next == start {
				return closeCycle(start, node, parent)
			}
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = node
			queue = append(queue, next)
		}
	}
	return []string{quote(start)}
}

// closeCycle unwinds parent links from last back to start.
func closeCycle(start, last string, parent map[string]string) []string {
	var between []string
	for n := last; n != start; n = parent[n] {
		between = append(between, n)
	}
	path := []string{quote(start)}
	for i := len(between) - 1; i >= 0; i-- {
		path = append(path, quote(between[i]))
	}
	return append(path, quote(start))
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}

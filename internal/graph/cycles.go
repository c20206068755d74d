package graph

import "sort"

// Cycles returns one import cycle per strongly connected group of modules,
// ordered by first path. Each cycle is the shortest loop through the group's
// smallest path and starts and ends with that path.
func (s *Store) Cycles() [][]string {
	t := &tarjan{
		store:   s,
		index:   make(map[string]int),
		low:     make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, path := range s.Paths() {
		if _, seen := t.index[path]; !seen {
			t.visit(path)
		}
	}

	var cycles [][]string
	for _, group := range t.groups {
		if cycle := s.loopThrough(group); cycle != nil {
			cycles = append(cycles, cycle)
		}
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})
	return cycles
}

func (s *Store) targets(path string) []string {
	if m, ok := s.modules[path]; ok {
		return m.Imports.Sorted()
	}
	return nil
}

// tarjan collects strongly connected groups with Tarjan's algorithm.
type tarjan struct {
	store   *Store
	index   map[string]int
	low     map[string]int
	onStack map[string]bool
	stack   []string
	next    int
	groups  [][]string
}

func (t *tarjan) visit(path string) {
	t.index[path] = t.next
	t.low[path] = t.next
	t.next++
	t.stack = append(t.stack, path)
	t.onStack[path] = true

	for _, dep := range t.store.targets(path) {
		if _, seen := t.index[dep]; !seen {
			t.visit(dep)
			t.low[path] = min(t.low[path], t.low[dep])
		} else if t.onStack[dep] {
			t.low[path] = min(t.low[path], t.index[dep])
		}
	}

	if t.low[path] != t.index[path] {
		return
	}
	var group []string
	for {
		top := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[top] = false
		group = append(group, top)
		if top == path {
			break
		}
	}
	t.groups = append(t.groups, group)
}

// loopThrough returns the shortest loop from the smallest path of group back
// to itself, or nil when the group is a single module without a self edge.
func (s *Store) loopThrough(group []string) []string {
	member := make(map[string]struct{}, len(group))
	start := group[0]
	for _, p := range group {
		member[p] = struct{}{}
		if p < start {
			start = p
		}
	}

	parent := make(map[string]string)
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range s.targets(cur) {
			if _, ok := member[dep]; !ok {
				continue
			}
			if dep == start {
				var loop []string
				for p := cur; p != start; p = parent[p] {
					loop = append(loop, p)
				}
				loop = append(loop, start)
				for i, j := 0, len(loop)-1; i < j; i, j = i+1, j-1 {
					loop[i], loop[j] = loop[j], loop[i]
				}
				return append(loop, start)
			}
			if _, seen := parent[dep]; !seen {
				parent[dep] = cur
				queue = append(queue, dep)
			}
		}
	}
	return nil
}

package construct

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
)

type (
	// Graph is a resource graph whose edges point from a dependent resource to its dependency
	// (for example, subnet -> vpc).
	Graph = graph.Graph[ResourceId, *Resource]
	Edge  = graph.Edge[ResourceId]
)

func NewGraph() Graph {
	return Graph(graph.New(
		func(r *Resource) ResourceId {
			return r.ID
		},
		graph.Directed(),
	))
}

func NewAcyclicGraph() Graph {
	return Graph(graph.New(
		func(r *Resource) ResourceId {
			return r.ID
		},
		graph.Directed(),
		graph.Acyclic(),
		graph.PreventCycles(),
	))
}

// AddDependency adds the edge `dependent -> dependency`. Both resources must already be in the graph.
func AddDependency(g Graph, dependent, dependency ResourceId) error {
	err := g.AddEdge(dependent, dependency)
	if errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not add dependency %s -> %s: %w", dependent, dependency, err)
	}
	return nil
}

// Hash returns a digest of the YAML rendering of `g`. Graphs hash equal only if they render identically.
func Hash(g Graph) ([]byte, error) {
	sum := sha256.New()
	err := GraphToYAML(g, sum)
	return sum.Sum(nil), err
}

// ListResources returns every resource matching `selector`, sorted by id.
func ListResources(g Graph, selector ResourceId) ([]*Resource, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	ids := make([]ResourceId, 0, len(adj))
	for id := range adj {
		if selector.Matches(id) {
			ids = append(ids, id)
		}
	}
	sort.Sort(sortedIds(ids))

	res := make([]*Resource, 0, len(ids))
	var errs error
	for _, id := range ids {
		r, err := g.Vertex(id)
		errs = errors.Join(errs, err)
		res = append(res, r)
	}
	return res, errs
}

// TopologicalSort provides a stable topological ordering of resource IDs: dependents come before
// their dependencies, with ties broken by id content.
func TopologicalSort(g Graph) ([]ResourceId, error) {
	if !g.Traits().IsDirected {
		return nil, fmt.Errorf("topological sort cannot be computed on undirected graph")
	}

	predecessorMap, err := g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to get predecessor map: %w", err)
	}
	if len(predecessorMap) == 0 {
		return nil, nil
	}

	queue := make([]ResourceId, 0)
	for vertex, predecessors := range predecessorMap {
		if len(predecessors) == 0 {
			queue = append(queue, vertex)
		}
	}
	sort.Sort(sortedIds(queue))

	order := make([]ResourceId, 0, len(predecessorMap))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		order = append(order, current)
		delete(predecessorMap, current)

		frontier := make([]ResourceId, 0)
		for vertex, predecessors := range predecessorMap {
			if _, ok := predecessors[current]; !ok {
				continue
			}
			delete(predecessors, current)
			if len(predecessors) == 0 {
				frontier = append(frontier, vertex)
			}
		}
		sort.Sort(sortedIds(frontier))
		queue = append(queue, frontier...)
		sort.Sort(sortedIds(queue))
	}

	if len(predecessorMap) > 0 {
		remaining := make([]ResourceId, 0, len(predecessorMap))
		for id := range predecessorMap {
			remaining = append(remaining, id)
		}
		sort.Sort(sortedIds(remaining))
		return nil, fmt.Errorf("graph contains a cycle among %v", remaining)
	}
	return order, nil
}

// ReverseTopologicalSort is like TopologicalSort, but returns the order in which resources
// need to be created (dependencies first).
func ReverseTopologicalSort(g Graph) ([]ResourceId, error) {
	topo, err := TopologicalSort(g)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(topo)/2; i++ {
		topo[i], topo[len(topo)-i-1] = topo[len(topo)-i-1], topo[i]
	}
	return topo, nil
}

// WalkGraphFunc is the callback for WalkGraph. A returned error is passed on to the next call as `nerr`.
type WalkGraphFunc func(id ResourceId, resource *Resource, nerr error) error

// WalkGraph visits every resource in creation order (dependencies before dependents).
func WalkGraph(g Graph, fn WalkGraphFunc) error {
	ids, err := ReverseTopologicalSort(g)
	if err != nil {
		return err
	}
	for _, id := range ids {
		v, verr := g.Vertex(id)
		err = errors.Join(err, verr)
		err = fn(id, v, err)
	}
	return err
}

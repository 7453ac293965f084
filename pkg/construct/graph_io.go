package construct

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type ioEdge struct {
	Source ResourceId
	Target ResourceId
}

func (e ioEdge) String() string {
	return fmt.Sprintf("%s -> %s", e.Source, e.Target)
}

func (e *ioEdge) UnmarshalText(data []byte) error {
	source, target, found := strings.Cut(string(data), " -> ")
	if !found {
		return errors.New("invalid edge format, expected `source -> target`")
	}
	srcErr := e.Source.UnmarshalText([]byte(source))
	tgtErr := e.Target.UnmarshalText([]byte(target))
	return errors.Join(srcErr, tgtErr)
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// sortMappings orders the keys of every mapping under `n` so typed structs render the same as the maps
// they are read back into.
func sortMappings(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		pairs := make([][2]*yaml.Node, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			pairs = append(pairs, [2]*yaml.Node{n.Content[i], n.Content[i+1]})
		}
		sort.SliceStable(pairs, func(i, j int) bool {
			return pairs[i][0].Value < pairs[j][0].Value
		})
		for i, p := range pairs {
			n.Content[2*i], n.Content[2*i+1] = p[0], p[1]
		}
	}
	for _, c := range n.Content {
		sortMappings(c)
	}
}

// GraphToYAML renders `g` as YAML to `w`. Resources are written in creation order and
// property keys are sorted so the output is byte-stable for identical graphs.
func GraphToYAML(g Graph, w io.Writer) error {
	order, err := ReverseTopologicalSort(g)
	if err != nil {
		return err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	resources := &yaml.Node{Kind: yaml.MappingNode}
	edges := &yaml.Node{Kind: yaml.SequenceNode}
	var errs error
	for _, id := range order {
		r, err := g.Vertex(id)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		props := &yaml.Node{}
		if err := props.Encode(map[string]any(r.Properties)); err != nil {
			errs = errors.Join(errs, fmt.Errorf("could not encode properties of %s: %w", id, err))
			continue
		}
		sortMappings(props)
		resources.Content = append(resources.Content, scalar(id.String()), props)

		targets := make([]ResourceId, 0, len(adj[id]))
		for t := range adj[id] {
			targets = append(targets, t)
		}
		sort.Sort(sortedIds(targets))
		for _, t := range targets {
			edges.Content = append(edges.Content, scalar(ioEdge{Source: id, Target: t}.String()))
		}
	}
	if errs != nil {
		return errs
	}

	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			scalar("resources"), resources,
			scalar("edges"), edges,
		},
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// AddFromYAML reads a document written by GraphToYAML into `g`.
func AddFromYAML(g Graph, r io.Reader) error {
	var y struct {
		Resources map[string]Properties `yaml:"resources"`
		Edges     []string              `yaml:"edges"`
	}
	if err := yaml.NewDecoder(r).Decode(&y); err != nil {
		return err
	}

	var errs error
	for rid, props := range y.Resources {
		id, err := ParseResourceId(rid)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		if props == nil {
			props = make(Properties)
		}
		errs = errors.Join(errs, g.AddVertex(&Resource{ID: id, Properties: props}))
	}
	if errs != nil {
		return errs
	}
	for _, e := range y.Edges {
		var edge ioEdge
		if err := edge.UnmarshalText([]byte(e)); err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		errs = errors.Join(errs, g.AddEdge(edge.Source, edge.Target))
	}
	return errs
}

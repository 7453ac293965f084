package dot

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/klothoplatform/vpcstack/pkg/construct"
)

var shapes = map[string]string{
	"vpc":            "folder",
	"subnet":         "box",
	"security_group": "octagon",
}

func nodeAttributes(id construct.ResourceId) map[string]string {
	a := map[string]string{
		"label": fmt.Sprintf(`%s\n%s`, id.Name, id.QualifiedTypeName()),
		"shape": "ellipse",
	}
	if shape, ok := shapes[id.Type]; ok {
		a["shape"] = shape
	}
	return a
}

func edgeAttributes(src, tgt construct.ResourceId) map[string]string {
	if src.Type == tgt.Type {
		// a rule referencing a peer group
		return map[string]string{"color": "#3f822b", "penwidth": "2"}
	}
	return map[string]string{"style": "dashed", "color": "#808080"}
}

// WriteGraph renders `g` in DOT. Resources inside a VPC are grouped into a cluster named for it; the output
// is stable for identical graphs.
func WriteGraph(g construct.Graph, out io.Writer) error {
	var errs error
	printf := func(s string, args ...any) {
		_, err := fmt.Fprintf(out, s, args...)
		errs = errors.Join(errs, err)
	}

	order, err := construct.ReverseTopologicalSort(g)
	if err != nil {
		return err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	clusters := make(map[string][]construct.ResourceId)
	var clusterNames []string
	for _, id := range order {
		if _, ok := clusters[id.Namespace]; !ok {
			clusterNames = append(clusterNames, id.Namespace)
		}
		clusters[id.Namespace] = append(clusters[id.Namespace], id)
	}

	printf("digraph {\n  rankdir = BT\n")
	for _, ns := range clusterNames {
		indent := "  "
		if ns != "" {
			printf("  subgraph %q {\n    label = %q\n", "cluster_"+ns, ns)
			indent = "    "
		}
		for _, id := range clusters[ns] {
			printf("%s%q%s\n", indent, id.String(), AttributesToString(nodeAttributes(id)))
		}
		if ns != "" {
			printf("  }\n")
		}
	}
	for _, src := range order {
		targets := make([]construct.ResourceId, 0, len(adj[src]))
		for tgt := range adj[src] {
			targets = append(targets, tgt)
		}
		sort.Slice(targets, func(i, j int) bool { return construct.ResourceIdLess(targets[i], targets[j]) })
		for _, tgt := range targets {
			printf("  %q -> %q%s\n", src.String(), tgt.String(), AttributesToString(edgeAttributes(src, tgt)))
		}
	}
	printf("}\n")
	return errs
}

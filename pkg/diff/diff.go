// Package diff compares a freshly built topology against a previously written manifest.
package diff

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/klothoplatform/vpcstack/pkg/closenicely"
	"github.com/klothoplatform/vpcstack/pkg/construct"
	"github.com/klothoplatform/vpcstack/pkg/set"
	"github.com/pkg/errors"
	r3diff "github.com/r3labs/diff"
	"gopkg.in/yaml.v3"
)

type (
	ChangeType string

	// PropertyChange is one changed value within a resource's properties.
	PropertyChange struct {
		Type ChangeType
		Path string
		From any
		To   any
	}

	ResourceChange struct {
		ID         construct.ResourceId
		Type       ChangeType
		Properties []PropertyChange
	}

	Report struct {
		Resources    []ResourceChange
		AddedEdges   []string
		RemovedEdges []string
	}

	// snapshot is a graph normalised through its YAML rendering, so in-process and loaded graphs compare
	// the same way.
	snapshot struct {
		Resources map[string]map[string]any `yaml:"resources"`
		Edges     []string                  `yaml:"edges"`
	}
)

const (
	Create ChangeType = r3diff.CREATE
	Update ChangeType = r3diff.UPDATE
	Delete ChangeType = r3diff.DELETE
)

// LoadManifest reads a manifest written by the manifest engine.
func LoadManifest(path string) (construct.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer closenicely.OrDebug(f)

	g := construct.NewGraph()
	if err := construct.AddFromYAML(g, f); err != nil {
		return nil, errors.Wrapf(err, "could not read manifest %s", path)
	}
	return g, nil
}

func snapshotOf(g construct.Graph) (snapshot, error) {
	var s snapshot
	buf := new(bytes.Buffer)
	if err := construct.GraphToYAML(g, buf); err != nil {
		return s, err
	}
	err := yaml.Unmarshal(buf.Bytes(), &s)
	return s, err
}

// Compare reports what would change going from `previous` to `current`.
func Compare(previous, current construct.Graph) (*Report, error) {
	prev, err := snapshotOf(previous)
	if err != nil {
		return nil, errors.Wrap(err, "could not read previous graph")
	}
	cur, err := snapshotOf(current)
	if err != nil {
		return nil, errors.Wrap(err, "could not read current graph")
	}

	ids := keys(prev.Resources).Union(keys(cur.Resources))

	report := &Report{}
	for key := range ids {
		id, err := construct.ParseResourceId(key)
		if err != nil {
			return nil, err
		}
		before, inPrev := prev.Resources[key]
		after, inCur := cur.Resources[key]
		switch {
		case !inPrev:
			report.Resources = append(report.Resources, ResourceChange{ID: id, Type: Create})
		case !inCur:
			report.Resources = append(report.Resources, ResourceChange{ID: id, Type: Delete})
		default:
			// a Differ keeps its changelog across calls
			differ, err := r3diff.NewDiffer(r3diff.SliceOrdering(false))
			if err != nil {
				return nil, err
			}
			changes, err := differ.Diff(before, after)
			if err != nil {
				return nil, errors.Wrapf(err, "could not diff %s", id)
			}
			if len(changes) == 0 {
				continue
			}
			rc := ResourceChange{ID: id, Type: Update}
			for _, c := range changes {
				rc.Properties = append(rc.Properties, PropertyChange{
					Type: ChangeType(c.Type),
					Path: strings.Join(c.Path, "."),
					From: c.From,
					To:   c.To,
				})
			}
			sort.SliceStable(rc.Properties, func(i, j int) bool { return rc.Properties[i].Path < rc.Properties[j].Path })
			report.Resources = append(report.Resources, rc)
		}
	}
	sort.Slice(report.Resources, func(i, j int) bool {
		return construct.ResourceIdLess(report.Resources[i].ID, report.Resources[j].ID)
	})

	report.AddedEdges = subtract(cur.Edges, prev.Edges)
	report.RemovedEdges = subtract(prev.Edges, cur.Edges)
	return report, nil
}

func keys[V any](m map[string]V) set.Set[string] {
	s := make(set.Set[string], len(m))
	for k := range m {
		s.Add(k)
	}
	return s
}

// subtract returns the elements of a not in b, sorted.
func subtract(a, b []string) []string {
	res := set.Sorted(set.SetOf(a...).Difference(set.SetOf(b...)))
	if len(res) == 0 {
		return nil
	}
	return res
}

func (r *Report) HasChanges() bool {
	return len(r.Resources) > 0 || len(r.AddedEdges) > 0 || len(r.RemovedEdges) > 0
}

// Counts returns the number of created, updated and deleted resources.
func (r *Report) Counts() (created, updated, deleted int) {
	for _, rc := range r.Resources {
		switch rc.Type {
		case Create:
			created++
		case Update:
			updated++
		case Delete:
			deleted++
		}
	}
	return
}

var (
	createColor = color.New(color.FgGreen)
	updateColor = color.New(color.FgYellow)
	deleteColor = color.New(color.FgRed)
)

func symbol(t ChangeType) (string, *color.Color) {
	switch t {
	case Create:
		return "+", createColor
	case Delete:
		return "-", deleteColor
	default:
		return "~", updateColor
	}
}

// Print writes a summary of the report in the style of a plan: one line per resource and edge, with
// property changes indented beneath updated resources.
func (r *Report) Print(w io.Writer) error {
	var errs []error
	printf := func(c *color.Color, format string, args ...any) {
		_, err := c.Fprintf(w, format, args...)
		errs = append(errs, err)
	}
	plain := color.New()

	if !r.HasChanges() {
		printf(plain, "No changes.\n")
		return nil
	}
	for _, rc := range r.Resources {
		sym, c := symbol(rc.Type)
		printf(c, "%s %s\n", sym, rc.ID)
		for _, pc := range rc.Properties {
			psym, pcol := symbol(pc.Type)
			switch pc.Type {
			case Create:
				printf(pcol, "    %s %s: %v\n", psym, pc.Path, pc.To)
			case Delete:
				printf(pcol, "    %s %s: %v\n", psym, pc.Path, pc.From)
			default:
				printf(pcol, "    %s %s: %v -> %v\n", psym, pc.Path, pc.From, pc.To)
			}
		}
	}
	for _, e := range r.AddedEdges {
		printf(createColor, "+ %s\n", e)
	}
	for _, e := range r.RemovedEdges {
		printf(deleteColor, "- %s\n", e)
	}

	created, updated, deleted := r.Counts()
	printf(plain, "\n%d to create, %d to update, %d to delete.\n", created, updated, deleted)
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) String() string {
	buf := new(bytes.Buffer)
	if err := r.Print(buf); err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}
	return buf.String()
}

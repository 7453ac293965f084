package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klothoplatform/vpcstack/pkg/closenicely"
	"github.com/klothoplatform/vpcstack/pkg/construct"
	"github.com/klothoplatform/vpcstack/pkg/describe"
	"github.com/klothoplatform/vpcstack/pkg/diff"
	"github.com/klothoplatform/vpcstack/pkg/dot"
	"github.com/klothoplatform/vpcstack/pkg/stack"
	"github.com/klothoplatform/vpcstack/pkg/synth"
	"github.com/klothoplatform/vpcstack/pkg/topology"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultOutDir = "cdk.out"

var errChanges = errors.New("topology differs from manifest")

// engines returns the synthesis engines named in `names`, in the given order.
func engines(names []string, outDir string) ([]synth.Engine, error) {
	var res []synth.Engine
	for _, name := range names {
		switch strings.TrimSpace(name) {
		case "cdk":
			res = append(res, synth.CDKEngine{OutDir: outDir})
		case "manifest":
			res = append(res, synth.ManifestEngine{OutDir: outDir})
		default:
			return nil, errors.Errorf("unknown engine %q (expected cdk or manifest)", name)
		}
	}
	return res, nil
}

func buildTopology(cfgFlags *configFlags) (*topology.Topology, error) {
	cfg, err := cfgFlags.Load()
	if err != nil {
		return nil, err
	}
	return topology.Build(cfg)
}

// openOutput returns the writer for `path`, or stdout when `path` is empty or "-".
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func synthCmd(cfgFlags *configFlags) *cobra.Command {
	var (
		outDir      string
		engineNames []string
	)
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize the network stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := engines(engineNames, outDir)
			if err != nil {
				return err
			}
			cfg, err := cfgFlags.Load()
			if err != nil {
				return err
			}
			out, err := stack.Run(cmd.Context(), cfg, selected...)
			if err != nil {
				return err
			}
			hash, err := out.Topology.Hash()
			if err != nil {
				return err
			}
			for _, res := range out.Results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", res.Engine, res.Stack, res.OutputDir)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "topology %s\n", hash)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&outDir, "output", "o", defaultOutDir, "Output directory")
	flags.StringSliceVarP(&engineNames, "engine", "e", []string{"cdk", "manifest"}, "Engines to run, in order: cdk, manifest")
	return cmd
}

func validateCmd(cfgFlags *configFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the topology it produces without synthesizing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := buildTopology(cfgFlags)
			if err != nil {
				return err
			}
			if err := topo.Validate(); err != nil {
				return errors.Wrap(err, "topology failed validation")
			}
			order, err := topo.Graph.Order()
			if err != nil {
				return err
			}
			zap.S().Debugf("%s is valid", topo.StackName())
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d resources, %d security groups\n",
				topo.StackName(), order, len(topo.SecurityGroups.Groups()))
			return nil
		},
	}
}

func graphCmd(cfgFlags *configFlags) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the resource graph as yaml, dot or svg",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := buildTopology(cfgFlags)
			if err != nil {
				return err
			}
			w, closeOut, err := openOutput(cmd, output)
			if err != nil {
				return err
			}
			defer closenicely.FuncOrDebug(closeOut)

			switch format {
			case "yaml":
				return construct.GraphToYAML(topo.Graph, w)
			case "dot":
				return dot.WriteGraph(topo.Graph, w)
			case "svg":
				buf := new(bytes.Buffer)
				if err := dot.WriteGraph(topo.Graph, buf); err != nil {
					return err
				}
				svg, err := dot.ExecPan(cmd.Context(), buf)
				if err != nil {
					return err
				}
				_, err = io.WriteString(w, svg)
				return err
			default:
				return errors.Errorf("unknown format %q (expected yaml, dot or svg)", format)
			}
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&format, "format", "f", "yaml", "Output format: yaml, dot or svg")
	flags.StringVarP(&output, "output", "o", "", "Output file, default stdout")
	return cmd
}

func describeCmd(cfgFlags *configFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Summarize the VPC, subnets and security group rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := buildTopology(cfgFlags)
			if err != nil {
				return err
			}
			return describe.Write(cmd.OutOrStdout(), topo)
		},
	}
}

func diffCmd(cfgFlags *configFlags) *cobra.Command {
	var (
		manifest string
		exitCode bool
	)
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the topology against a previously synthesized manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := buildTopology(cfgFlags)
			if err != nil {
				return err
			}
			previous, err := diff.LoadManifest(manifest)
			if err != nil {
				return err
			}
			report, err := diff.Compare(previous, topo.Graph)
			if err != nil {
				return err
			}
			if err := report.Print(cmd.OutOrStdout()); err != nil {
				return err
			}
			if exitCode && report.HasChanges() {
				return errChanges
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&manifest, "manifest", "m", filepath.Join(defaultOutDir, synth.ManifestFile), "Manifest written by a previous synth")
	flags.BoolVar(&exitCode, "exit-code", false, "Fail when there are changes")
	return cmd
}

// Package stack runs a full synthesis pass: build the topology, check it, and hand it to each engine.
package stack

import (
	"context"

	"github.com/klothoplatform/vpcstack/pkg/config"
	"github.com/klothoplatform/vpcstack/pkg/logging"
	"github.com/klothoplatform/vpcstack/pkg/synth"
	"github.com/klothoplatform/vpcstack/pkg/topology"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Outcome struct {
	Topology *topology.Topology
	Results  []*synth.Result
}

// Run builds the topology for `cfg` and passes it to each engine in order. An invalid configuration fails
// before any resource is declared, and the first engine error stops the run.
func Run(ctx context.Context, cfg config.Config, engines ...synth.Engine) (*Outcome, error) {
	log := logging.GetLogger(ctx)

	topo, err := topology.Build(cfg)
	if err != nil {
		return nil, err
	}
	if err := topo.Validate(); err != nil {
		return nil, errors.Wrap(err, "topology failed validation")
	}

	out := &Outcome{Topology: topo}
	for _, engine := range engines {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		elog := log.With(logging.StackField(topo.StackName(), engine.Name()))
		res, err := engine.Synth(logging.WithLogger(ctx, elog), topo)
		if err != nil {
			return out, errors.Wrapf(err, "%s engine failed", engine.Name())
		}
		elog.Info("Synthesized", zap.String("dir", res.OutputDir), zap.Strings("files", res.Files))
		out.Results = append(out.Results, res)
	}
	return out, nil
}

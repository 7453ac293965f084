// Package synth hands a topology to a provisioning engine.
package synth

import (
	"context"

	"github.com/klothoplatform/vpcstack/pkg/topology"
)

//go:generate mockgen -source=./engine.go --destination=../stack/engine_mock_test.go --package=stack

type (
	// Engine turns a topology into the artifacts of one provisioning backend.
	Engine interface {
		Name() string
		Synth(ctx context.Context, t *topology.Topology) (*Result, error)
	}

	Result struct {
		Engine    string
		Stack     string
		OutputDir string
		// Files are the paths written, relative to OutputDir.
		Files []string
		// Hash is the digest of the topology that was synthesized.
		Hash string
	}
)

package synth

import (
	"context"
	"os"
	"path/filepath"

	"github.com/klothoplatform/vpcstack/pkg/logging"
	"github.com/klothoplatform/vpcstack/pkg/topology"
	"github.com/pkg/errors"
)

const ManifestFile = "resources.yaml"

// ManifestEngine writes the resource graph as YAML. The file is the snapshot `diff` compares against.
type ManifestEngine struct {
	OutDir string
}

func (e ManifestEngine) Name() string { return "manifest" }

func (e ManifestEngine) Synth(ctx context.Context, t *topology.Topology) (*Result, error) {
	log := logging.GetLogger(ctx).Named("synth.manifest").Sugar()

	content, err := t.YAML()
	if err != nil {
		return nil, err
	}
	hash, err := t.Hash()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.OutDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "could not create output directory %s", e.OutDir)
	}
	path := filepath.Join(e.OutDir, ManifestFile)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return nil, errors.Wrapf(err, "could not write %s", path)
	}
	log.Debugf("Wrote %d bytes to %s", len(content), path)

	return &Result{
		Engine:    e.Name(),
		Stack:     t.StackName(),
		OutputDir: e.OutDir,
		Files:     []string{ManifestFile},
		Hash:      hash,
	}, nil
}

// Package topology assembles the network and its security groups into a single resource graph.
package topology

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/klothoplatform/vpcstack/pkg/config"
	"github.com/klothoplatform/vpcstack/pkg/construct"
	"github.com/klothoplatform/vpcstack/pkg/network"
	"github.com/klothoplatform/vpcstack/pkg/securitygroup"
	perrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

type Topology struct {
	Config         config.Config
	Identity       config.Identity
	Roles          []securitygroup.Role
	Network        *network.Network
	SecurityGroups *securitygroup.Set
	Graph          construct.Graph
}

// Build validates `cfg` and constructs the full topology. Nothing is added to a graph until the
// configuration has passed validation.
func Build(cfg config.Config) (*Topology, error) {
	log := zap.L().Named("topology").Sugar()

	if err := cfg.Validate(); err != nil {
		return nil, perrors.Wrap(err, "invalid configuration")
	}
	roles, err := securitygroup.ParseRoles(cfg.Roles)
	if err != nil {
		return nil, err
	}
	zones := cfg.Zones()
	if err := securitygroup.CheckPlacement(roles, len(zones)); err != nil {
		return nil, err
	}

	t := &Topology{
		Config:   cfg,
		Identity: cfg.Identity(),
		Roles:    roles,
		Graph:    construct.NewAcyclicGraph(),
	}
	t.Network, err = network.Build(network.OptionsFromConfig(cfg), t.Graph)
	if err != nil {
		return nil, perrors.Wrap(err, "could not build network")
	}
	t.SecurityGroups, err = securitygroup.Derive(t.Identity, t.Network, roles, t.Graph)
	if err != nil {
		return nil, perrors.Wrap(err, "could not derive security groups")
	}

	order, _ := t.Graph.Order()
	log.Infof("Built topology %s: %d resources, %d security groups", t.Identity, order, len(t.SecurityGroups.Groups()))
	return t, nil
}

func (t *Topology) StackName() string {
	return t.Identity.StackName()
}

// Validate re-checks the invariants of an assembled topology.
func (t *Topology) Validate() error {
	var errs error
	if t.Network == nil || t.SecurityGroups == nil || t.Graph == nil {
		return errors.New("topology is incomplete")
	}
	errs = errors.Join(errs, t.Network.Validate())
	errs = errors.Join(errs, t.SecurityGroups.Validate())
	errs = errors.Join(errs, securitygroup.CheckPlacement(t.Roles, len(t.Network.AvailabilityZones)))
	if _, err := construct.TopologicalSort(t.Graph); err != nil {
		errs = errors.Join(errs, err)
	}
	errs = errors.Join(errs, t.checkCount(network.SubnetResourceType, len(t.Network.Subnets)))
	errs = errors.Join(errs, t.checkCount(securitygroup.SecurityGroupResourceType, len(t.SecurityGroups.Groups())))
	return errs
}

// checkCount verifies the graph holds exactly `want` resources of type `typ`.
func (t *Topology) checkCount(typ string, want int) error {
	res, err := construct.ListResources(t.Graph, construct.ResourceId{Type: typ})
	if err != nil {
		return err
	}
	if len(res) != want {
		return fmt.Errorf("graph has %d %s resources, expected %d", len(res), typ, want)
	}
	return nil
}

// YAML renders the resource graph. Identical topologies render to identical bytes.
func (t *Topology) YAML() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := construct.GraphToYAML(t.Graph, buf); err != nil {
		return nil, perrors.Wrap(err, "could not render topology")
	}
	return buf.Bytes(), nil
}

// Hash returns the hex digest of the YAML rendering.
func (t *Topology) Hash() (string, error) {
	sum, err := construct.Hash(t.Graph)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

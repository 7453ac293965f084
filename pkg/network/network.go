// Package network builds the VPC and its subnet groups.
package network

import (
	"fmt"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"
	"github.com/klothoplatform/vpcstack/pkg/config"
	"github.com/klothoplatform/vpcstack/pkg/construct"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	VpcResourceType    = "vpc"
	SubnetResourceType = "subnet"
)

type SubnetType string

const (
	// Public subnets route to the internet through an internet gateway.
	Public SubnetType = "public"
	// Private subnets reach out through a NAT gateway but are not reachable from outside.
	Private SubnetType = "private"
	// Isolated subnets have no route out of the VPC.
	Isolated SubnetType = "isolated"
)

type (
	Options struct {
		Identity       config.Identity
		CidrBlock      string
		Zones          []string
		NatGateways    int
		SubnetCidrMask int
		Isolated       bool
	}

	SubnetGroup struct {
		Name     string     `mapstructure:"Name" yaml:"Name"`
		Type     SubnetType `mapstructure:"Type" yaml:"Type"`
		CidrMask int        `mapstructure:"CidrMask" yaml:"CidrMask"`
	}

	Subnet struct {
		ID               construct.ResourceId
		Name             string
		Group            string
		Type             SubnetType
		AvailabilityZone string
		CidrBlock        string
	}

	Network struct {
		ID                construct.ResourceId
		Name              string
		CidrBlock         string
		AvailabilityZones []string
		NatGateways       int
		SubnetGroups      []SubnetGroup
		Subnets           []*Subnet
	}

	VpcProperties struct {
		Name               string        `mapstructure:"Name"`
		CidrBlock          string        `mapstructure:"CidrBlock"`
		AvailabilityZones  []string      `mapstructure:"AvailabilityZones"`
		NatGateways        int           `mapstructure:"NatGateways"`
		SubnetGroups       []SubnetGroup `mapstructure:"SubnetGroups"`
		EnableDnsHostnames bool          `mapstructure:"EnableDnsHostnames"`
		EnableDnsSupport   bool          `mapstructure:"EnableDnsSupport"`
	}

	SubnetProperties struct {
		Name             string     `mapstructure:"Name"`
		Group            string     `mapstructure:"Group"`
		Type             SubnetType `mapstructure:"Type"`
		AvailabilityZone string     `mapstructure:"AvailabilityZone"`
		CidrBlock        string     `mapstructure:"CidrBlock"`
	}
)

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Identity:       cfg.Identity(),
		CidrBlock:      cfg.CidrBlock,
		Zones:          cfg.Zones(),
		NatGateways:    cfg.NatGateways,
		SubnetCidrMask: cfg.SubnetCidrMask,
		Isolated:       cfg.IsolatedSubnets,
	}
}

// SubnetGroups returns the subnet groups for the options, in allocation order: public, then private
// when there are NAT gateways to route through, then isolated.
func (o Options) SubnetGroups() []SubnetGroup {
	groups := []SubnetGroup{{Name: "Public", Type: Public, CidrMask: o.SubnetCidrMask}}
	if o.NatGateways > 0 {
		groups = append(groups, SubnetGroup{Name: "Private", Type: Private, CidrMask: o.SubnetCidrMask})
	}
	if o.Isolated {
		groups = append(groups, SubnetGroup{Name: "Isolated", Type: Isolated, CidrMask: o.SubnetCidrMask})
	}
	return groups
}

func VpcId(id config.Identity) construct.ResourceId {
	return VpcIdNamed(id.Name("Vpc"))
}

// VpcIdNamed is the id of the VPC called `name`. Resources inside a VPC use its name as their namespace.
func VpcIdNamed(name string) construct.ResourceId {
	return construct.ResourceId{
		Provider: construct.AWSProvider,
		Type:     VpcResourceType,
		Name:     name,
	}
}

func subnetId(vpc construct.ResourceId, name string) construct.ResourceId {
	return construct.ResourceId{
		Provider:  construct.AWSProvider,
		Type:      SubnetResourceType,
		Namespace: vpc.Name,
		Name:      name,
	}
}

// Build lays out the network described by `opts` and registers it into `g`. Subnets are carved
// sequentially out of the VPC block, one per zone for each group.
func Build(opts Options, g construct.Graph) (*Network, error) {
	log := zap.L().Named("topology.network").Sugar()

	if len(opts.Zones) == 0 {
		return nil, errors.New("network requires at least one availability zone")
	}
	if opts.NatGateways > len(opts.Zones) {
		return nil, errors.Errorf("%d NAT gateways requested across %d availability zones", opts.NatGateways, len(opts.Zones))
	}
	_, block, err := net.ParseCIDR(opts.CidrBlock)
	if err != nil {
		return nil, errors.Wrap(err, "invalid network cidr block")
	}

	n := &Network{
		ID:                VpcId(opts.Identity),
		CidrBlock:         block.String(),
		AvailabilityZones: append([]string(nil), opts.Zones...),
		NatGateways:       opts.NatGateways,
		SubnetGroups:      opts.SubnetGroups(),
	}
	n.Name = n.ID.Name

	vpcBits, _ := block.Mask.Size()
	index := 0
	for _, group := range n.SubnetGroups {
		newBits := group.CidrMask - vpcBits
		for zi, zone := range n.AvailabilityZones {
			subnetNet, err := cidr.Subnet(block, newBits, index)
			if err != nil {
				return nil, errors.Wrapf(err, "could not allocate /%d subnet #%d in %s", group.CidrMask, index, block)
			}
			index++
			name := opts.Identity.Name(fmt.Sprintf("%s-Subnet%d", group.Name, zi+1))
			n.Subnets = append(n.Subnets, &Subnet{
				ID:               subnetId(n.ID, name),
				Name:             name,
				Group:            group.Name,
				Type:             group.Type,
				AvailabilityZone: zone,
				CidrBlock:        subnetNet.String(),
			})
		}
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}
	if err := n.register(g); err != nil {
		return nil, err
	}
	log.Debugf("Network %s (%s) with %d subnets across %v", n.Name, n.CidrBlock, len(n.Subnets), n.AvailabilityZones)
	return n, nil
}

// Validate checks that every subnet lies inside the network block and that no two subnets overlap.
func (n *Network) Validate() error {
	_, block, err := net.ParseCIDR(n.CidrBlock)
	if err != nil {
		return errors.Wrapf(err, "network %s", n.Name)
	}
	nets := make([]*net.IPNet, 0, len(n.Subnets))
	for _, s := range n.Subnets {
		_, sn, err := net.ParseCIDR(s.CidrBlock)
		if err != nil {
			return errors.Wrapf(err, "subnet %s", s.Name)
		}
		nets = append(nets, sn)
	}
	if err := cidr.VerifyNoOverlap(nets, block); err != nil {
		return errors.Wrapf(err, "subnets of network %s", n.Name)
	}
	return nil
}

func (n *Network) register(g construct.Graph) error {
	vpc, err := construct.NewResource(n.ID, VpcProperties{
		Name:               n.Name,
		CidrBlock:          n.CidrBlock,
		AvailabilityZones:  n.AvailabilityZones,
		NatGateways:        n.NatGateways,
		SubnetGroups:       n.SubnetGroups,
		EnableDnsHostnames: true,
		EnableDnsSupport:   true,
	})
	if err != nil {
		return err
	}
	if err := g.AddVertex(vpc); err != nil {
		return errors.Wrapf(err, "could not add %s", n.ID)
	}

	for _, s := range n.Subnets {
		res, err := construct.NewResource(s.ID, SubnetProperties{
			Name:             s.Name,
			Group:            s.Group,
			Type:             s.Type,
			AvailabilityZone: s.AvailabilityZone,
			CidrBlock:        s.CidrBlock,
		})
		if err != nil {
			return err
		}
		if err := g.AddVertex(res); err != nil {
			return errors.Wrapf(err, "could not add %s", s.ID)
		}
		if err := construct.AddDependency(g, s.ID, n.ID); err != nil {
			return err
		}
	}
	return nil
}

func (n *Network) SubnetsByType(t SubnetType) []*Subnet {
	var res []*Subnet
	for _, s := range n.Subnets {
		if s.Type == t {
			res = append(res, s)
		}
	}
	return res
}

func (n *Network) SubnetsInZone(zone string) []*Subnet {
	var res []*Subnet
	for _, s := range n.Subnets {
		if s.AvailabilityZone == zone {
			res = append(res, s)
		}
	}
	return res
}

// Subnet returns the subnet of type `t` in `zone`.
func (n *Network) Subnet(t SubnetType, zone string) (*Subnet, bool) {
	for _, s := range n.Subnets {
		if s.Type == t && s.AvailabilityZone == zone {
			return s, true
		}
	}
	return nil, false
}

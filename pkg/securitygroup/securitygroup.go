// Package securitygroup creates one security group per role and attaches the fixed rule set that
// connects them.
package securitygroup

import (
	"errors"
	"fmt"

	"github.com/klothoplatform/vpcstack/pkg/config"
	"github.com/klothoplatform/vpcstack/pkg/construct"
	"github.com/klothoplatform/vpcstack/pkg/network"
	"go.uber.org/zap"
)

const SecurityGroupResourceType = "security_group"

var (
	ErrPeerNotFound      = errors.New("peer security group not found")
	ErrInsufficientAZs   = errors.New("not enough availability zones")
	ErrDuplicateGroup    = errors.New("security group already exists")
	ErrInvalidRule       = errors.New("invalid rule")
	ErrGroupNotInNetwork = errors.New("security group belongs to another network")
	ErrUnrequestedOwner  = errors.New("rule owner not present")
)

type (
	SecurityGroup struct {
		ID               construct.ResourceId
		Name             string
		Role             Role
		Description      string
		AllowAllOutbound bool
		Vpc              construct.ResourceId
		IngressRules     []Rule
		EgressRules      []Rule
	}

	SecurityGroupProperties struct {
		Name             string `mapstructure:"Name"`
		Role             Role   `mapstructure:"Role"`
		Description      string `mapstructure:"Description"`
		AllowAllOutbound bool   `mapstructure:"AllowAllOutbound"`
		IngressRules     []Rule `mapstructure:"IngressRules"`
		EgressRules      []Rule `mapstructure:"EgressRules"`
	}

	// Set is the security groups of one network, keyed by role.
	Set struct {
		network *network.Network
		graph   construct.Graph
		byRole  map[Role]*SecurityGroup
		order   []Role
	}

	ruleSpec struct {
		Owner Role
		Rule  Rule
	}
)

// rules is the fixed rule table. A Peer of kind PeerCidr with an empty Cidr refers to the network's own block.
var rules = []ruleSpec{
	{LoadBalancer, NewRule(Ingress, AnyIPv4(), TCPPort(80), "Allow HTTP from anywhere")},
	{ComputeCluster, NewRule(Ingress, GroupPeer(LoadBalancer), AllTCP(), "Allow all TCP from the load balancer")},
	{ComputeCluster, NewRule(Ingress, AnyIPv4(), TCPPort(22), "Allow SSH from anywhere")},
	{SharedFilesystem, NewRule(Ingress, GroupPeer(ComputeCluster), TCPPort(2049), "Allow NFS from the ECS cluster")},
	{SharedFilesystem, NewRule(Ingress, GroupPeer(DeveloperAccess), TCPPort(2049), "Allow NFS from developer hosts")},
	{Database, NewRule(Ingress, GroupPeer(ComputeCluster), TCPPort(3306), "Allow MySQL from the ECS cluster")},
	{GenericIngress, NewRule(Ingress, CidrPeer(""), TCPPort(3306), "Allow MySQL from within the VPC")},
	{GenericEgress, NewRule(Egress, AnyIPv4(), TCPPort(80), "Allow HTTP to anywhere")},
}

func (r Rule) Port() Port {
	return Port{Protocol: r.Protocol, From: r.FromPort, To: r.ToPort}
}

func GroupId(vpc construct.ResourceId, name string) construct.ResourceId {
	return construct.ResourceId{
		Provider:  construct.AWSProvider,
		Type:      SecurityGroupResourceType,
		Namespace: vpc.Name,
		Name:      name,
	}
}

// CheckPlacement returns ErrInsufficientAZs if any role needs more availability zones than `zones`.
func CheckPlacement(roles []Role, zones int) error {
	var errs error
	for _, role := range roles {
		spec, ok := SpecFor(role)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("%w %q", ErrUnknownRole, role))
			continue
		}
		if zones < spec.MinAvailabilityZones {
			errs = errors.Join(errs, fmt.Errorf("%w: %s requires at least %d, network has %d",
				ErrInsufficientAZs, role, spec.MinAvailabilityZones, zones))
		}
	}
	return errs
}

// Derive creates a security group for each role in `roles` within `n`, then attaches the rule table.
// Rules owned by roles that were not requested are skipped; rules whose peer was not requested fail
// with ErrPeerNotFound.
func Derive(id config.Identity, n *network.Network, roles []Role, g construct.Graph) (*Set, error) {
	log := zap.L().Named("topology.securitygroup").Sugar()

	set, err := NewSet(n, g)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		spec, ok := SpecFor(role)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownRole, role)
		}
		if _, err := set.Create(id, spec); err != nil {
			return nil, err
		}
	}

	var errs error
	for _, spec := range rules {
		if _, ok := set.byRole[spec.Owner]; !ok {
			continue
		}
		errs = errors.Join(errs, set.Attach(spec.Owner, spec.Rule))
	}
	if errs != nil {
		return nil, errs
	}

	for _, role := range set.order {
		sg := set.byRole[role]
		log.Debugf("%s: %d ingress, %d egress rules", sg.Name, len(sg.IngressRules), len(sg.EgressRules))
	}
	return set, nil
}

func NewSet(n *network.Network, g construct.Graph) (*Set, error) {
	if n == nil {
		return nil, errors.New("security groups need a network")
	}
	return &Set{
		network: n,
		graph:   g,
		byRole:  make(map[Role]*SecurityGroup),
	}, nil
}

// Create adds the security group for `spec` to the set and registers it in the graph.
func (s *Set) Create(id config.Identity, spec RoleSpec) (*SecurityGroup, error) {
	if _, ok := s.byRole[spec.Role]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateGroup, spec.Role)
	}
	name := id.Name(spec.NameSuffix)
	sg := &SecurityGroup{
		ID:               GroupId(s.network.ID, name),
		Name:             name,
		Role:             spec.Role,
		Description:      spec.Description,
		AllowAllOutbound: spec.AllowAllOutbound,
		Vpc:              s.network.ID,
	}

	res, err := construct.NewResource(sg.ID, sg.properties())
	if err != nil {
		return nil, err
	}
	if err := s.graph.AddVertex(res); err != nil {
		return nil, fmt.Errorf("could not add %s: %w", sg.ID, err)
	}
	if err := construct.AddDependency(s.graph, sg.ID, s.network.ID); err != nil {
		return nil, err
	}

	s.byRole[spec.Role] = sg
	s.order = append(s.order, spec.Role)
	return sg, nil
}

// Attach adds `rule` to the group for `owner`. A group peer must already be in the set and in the same
// network; the owner then depends on the peer in the graph.
func (s *Set) Attach(owner Role, rule Rule) error {
	sg, ok := s.byRole[owner]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnrequestedOwner, owner)
	}
	if err := rule.Port().Validate(); err != nil {
		return fmt.Errorf("%w on %s: %v", ErrInvalidRule, sg.Name, err)
	}
	if rule.Direction != Ingress && rule.Direction != Egress {
		return fmt.Errorf("%w on %s: unknown direction %q", ErrInvalidRule, sg.Name, rule.Direction)
	}

	switch rule.Peer.Kind {
	case PeerAnyIPv4:

	case PeerCidr:
		if rule.Peer.Cidr == "" {
			rule.Peer.Cidr = s.network.CidrBlock
		}

	case PeerGroup:
		peer, ok := s.byRole[rule.Peer.Group]
		if !ok {
			return fmt.Errorf("%w: %s rule %q references %s", ErrPeerNotFound, sg.Name, rule.Description, rule.Peer.Group)
		}
		if peer.Vpc != sg.Vpc {
			return fmt.Errorf("%w: %s is in %s, %s is in %s", ErrGroupNotInNetwork, peer.Name, peer.Vpc.Name, sg.Name, sg.Vpc.Name)
		}
		rule.Peer.GroupName = peer.Name
		if peer.ID != sg.ID {
			if err := construct.AddDependency(s.graph, sg.ID, peer.ID); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("%w on %s: unknown peer kind %q", ErrInvalidRule, sg.Name, rule.Peer.Kind)
	}

	if rule.Direction == Ingress {
		sg.IngressRules = append(sg.IngressRules, rule)
	} else {
		sg.EgressRules = append(sg.EgressRules, rule)
	}
	return s.sync(sg)
}

// sync rewrites the group's graph properties from its current rules.
func (s *Set) sync(sg *SecurityGroup) error {
	res, err := s.graph.Vertex(sg.ID)
	if err != nil {
		return err
	}
	updated, err := construct.NewResource(sg.ID, sg.properties())
	if err != nil {
		return err
	}
	res.Properties = updated.Properties
	return nil
}

func (sg *SecurityGroup) properties() SecurityGroupProperties {
	return SecurityGroupProperties{
		Name:             sg.Name,
		Role:             sg.Role,
		Description:      sg.Description,
		AllowAllOutbound: sg.AllowAllOutbound,
		IngressRules:     append([]Rule{}, sg.IngressRules...),
		EgressRules:      append([]Rule{}, sg.EgressRules...),
	}
}

func (s *Set) Get(role Role) (*SecurityGroup, bool) {
	sg, ok := s.byRole[role]
	return sg, ok
}

// Groups returns the groups in creation order.
func (s *Set) Groups() []*SecurityGroup {
	res := make([]*SecurityGroup, len(s.order))
	for i, role := range s.order {
		res[i] = s.byRole[role]
	}
	return res
}

// Validate re-checks that every group peer exists in the set and shares the owner's network.
func (s *Set) Validate() error {
	var errs error
	for _, sg := range s.Groups() {
		if sg.Vpc != s.network.ID {
			errs = errors.Join(errs, fmt.Errorf("%w: %s", ErrGroupNotInNetwork, sg.Name))
		}
		for _, r := range append(append([]Rule{}, sg.IngressRules...), sg.EgressRules...) {
			if r.Peer.Kind != PeerGroup {
				continue
			}
			peer, ok := s.byRole[r.Peer.Group]
			if !ok {
				errs = errors.Join(errs, fmt.Errorf("%w: %s references %s", ErrPeerNotFound, sg.Name, r.Peer.Group))
				continue
			}
			if peer.Vpc != sg.Vpc {
				errs = errors.Join(errs, fmt.Errorf("%w: %s", ErrGroupNotInNetwork, peer.Name))
			}
		}
	}
	return errs
}

package synth

import (
	"context"
	"os"
	"sort"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/iancoleman/strcase"
	"github.com/klothoplatform/vpcstack/pkg/construct"
	"github.com/klothoplatform/vpcstack/pkg/logging"
	"github.com/klothoplatform/vpcstack/pkg/network"
	"github.com/klothoplatform/vpcstack/pkg/securitygroup"
	"github.com/klothoplatform/vpcstack/pkg/topology"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CDKEngine declares the topology as an AWS CDK stack and synthesizes it into a cloud assembly.
type CDKEngine struct {
	OutDir string
}

// NetworkStack is the CDK stack for a topology with its constructs exposed for other stacks to reference.
type NetworkStack struct {
	awscdk.Stack

	Vpc            awsec2.Vpc
	SecurityGroups map[securitygroup.Role]awsec2.SecurityGroup
}

type stackBuilder struct {
	stack  awscdk.Stack
	vpcs   map[construct.ResourceId]awsec2.Vpc
	groups map[construct.ResourceId]awsec2.SecurityGroup
	roles  map[securitygroup.Role]awsec2.SecurityGroup
}

func (e CDKEngine) Name() string { return "cdk" }

func (e CDKEngine) Synth(ctx context.Context, t *topology.Topology) (*Result, error) {
	log := logging.GetLogger(ctx).Named("synth.cdk").Sugar()

	hash, err := t.Hash()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(e.OutDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "could not create output directory %s", e.OutDir)
	}

	app := awscdk.NewApp(&awscdk.AppProps{
		Outdir: jsii.String(e.OutDir),
	})
	if _, err := NewNetworkStack(app, t); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Infof("Synthesizing %s into %s", t.StackName(), e.OutDir)
	assembly := app.Synth(nil)

	var files []string
	for _, artifact := range *assembly.Stacks() {
		files = append(files, *artifact.TemplateFile())
	}
	files = append(files, "manifest.json")
	sort.Strings(files)

	return &Result{
		Engine:    e.Name(),
		Stack:     t.StackName(),
		OutputDir: *assembly.Directory(),
		Files:     files,
		Hash:      hash,
	}, nil
}

// NewNetworkStack declares every resource of `t` in a new stack under `scope`, in creation order.
func NewNetworkStack(scope constructs.Construct, t *topology.Topology) (*NetworkStack, error) {
	stack := awscdk.NewStack(scope, jsii.String(t.StackName()), &awscdk.StackProps{
		StackName: jsii.String(t.StackName()),
		Env: &awscdk.Environment{
			Account: jsii.String(t.Config.Account),
			Region:  jsii.String(t.Config.Region),
		},
	})
	log := zap.L().Named("synth.cdk")
	b := &stackBuilder{
		stack:  stack,
		vpcs:   make(map[construct.ResourceId]awsec2.Vpc),
		groups: make(map[construct.ResourceId]awsec2.SecurityGroup),
		roles:  make(map[securitygroup.Role]awsec2.SecurityGroup),
	}

	err := construct.WalkGraph(t.Graph, func(id construct.ResourceId, res *construct.Resource, nerr error) error {
		if nerr != nil {
			return nerr
		}
		log.Debug("Declaring", logging.ResourceField(id))
		switch id.Type {
		case network.VpcResourceType:
			return b.addVpc(res)
		case network.SubnetResourceType:
			// subnets are declared by their VPC's subnet configuration
			return nil
		case securitygroup.SecurityGroupResourceType:
			return b.addSecurityGroup(res)
		default:
			return errors.Errorf("unsupported resource %s", id)
		}
	})
	if err != nil {
		return nil, err
	}

	ns := &NetworkStack{
		Stack:          stack,
		Vpc:            b.vpcs[t.Network.ID],
		SecurityGroups: b.roles,
	}
	b.addOutputs(t)
	return ns, nil
}

func constructId(name string) *string {
	return jsii.String(strcase.ToCamel(name))
}

func cdkSubnetType(t network.SubnetType) (awsec2.SubnetType, error) {
	switch t {
	case network.Public:
		return awsec2.SubnetType_PUBLIC, nil
	case network.Private:
		return awsec2.SubnetType_PRIVATE_WITH_EGRESS, nil
	case network.Isolated:
		return awsec2.SubnetType_PRIVATE_ISOLATED, nil
	default:
		return "", errors.Errorf("unknown subnet type %q", t)
	}
}

func (b *stackBuilder) addVpc(res *construct.Resource) error {
	var props network.VpcProperties
	if err := res.DecodeProperties(&props); err != nil {
		return err
	}

	subnets := make([]*awsec2.SubnetConfiguration, 0, len(props.SubnetGroups))
	for _, group := range props.SubnetGroups {
		st, err := cdkSubnetType(group.Type)
		if err != nil {
			return errors.Wrapf(err, "subnet group %s of %s", group.Name, res.ID)
		}
		subnets = append(subnets, &awsec2.SubnetConfiguration{
			Name:       jsii.String(group.Name),
			SubnetType: st,
			CidrMask:   jsii.Number(float64(group.CidrMask)),
		})
	}

	b.vpcs[res.ID] = awsec2.NewVpc(b.stack, constructId(props.Name), &awsec2.VpcProps{
		VpcName:             jsii.String(props.Name),
		IpAddresses:         awsec2.IpAddresses_Cidr(jsii.String(props.CidrBlock)),
		AvailabilityZones:   jsii.Strings(props.AvailabilityZones...),
		NatGateways:         jsii.Number(float64(props.NatGateways)),
		SubnetConfiguration: &subnets,
		EnableDnsHostnames:  jsii.Bool(props.EnableDnsHostnames),
		EnableDnsSupport:    jsii.Bool(props.EnableDnsSupport),
	})
	return nil
}

func (b *stackBuilder) addSecurityGroup(res *construct.Resource) error {
	var props securitygroup.SecurityGroupProperties
	if err := res.DecodeProperties(&props); err != nil {
		return err
	}
	vpcId := network.VpcIdNamed(res.ID.Namespace)
	vpc, ok := b.vpcs[vpcId]
	if !ok {
		return errors.Errorf("%s: vpc %s has not been declared", res.ID, vpcId)
	}

	sg := awsec2.NewSecurityGroup(b.stack, constructId(props.Name), &awsec2.SecurityGroupProps{
		Vpc:               vpc,
		SecurityGroupName: jsii.String(props.Name),
		Description:       jsii.String(props.Description),
		AllowAllOutbound:  jsii.Bool(props.AllowAllOutbound),
	})
	b.groups[res.ID] = sg
	b.roles[props.Role] = sg

	for _, rule := range append(append([]securitygroup.Rule{}, props.IngressRules...), props.EgressRules...) {
		peer, err := b.peer(vpcId, rule.Peer)
		if err != nil {
			return errors.Wrapf(err, "%s rule %q", props.Name, rule)
		}
		port, err := cdkPort(rule)
		if err != nil {
			return errors.Wrapf(err, "%s rule %q", props.Name, rule)
		}
		var desc *string
		if rule.Description != "" {
			desc = jsii.String(rule.Description)
		}
		if rule.Direction == securitygroup.Egress {
			sg.AddEgressRule(peer, port, desc, jsii.Bool(false))
		} else {
			sg.AddIngressRule(peer, port, desc, jsii.Bool(false))
		}
	}
	return nil
}

func (b *stackBuilder) peer(vpc construct.ResourceId, p securitygroup.Peer) (awsec2.IPeer, error) {
	switch p.Kind {
	case securitygroup.PeerAnyIPv4:
		return awsec2.Peer_AnyIpv4(), nil
	case securitygroup.PeerCidr:
		return awsec2.Peer_Ipv4(jsii.String(p.Cidr)), nil
	case securitygroup.PeerGroup:
		id := securitygroup.GroupId(vpc, p.GroupName)
		sg, ok := b.groups[id]
		if !ok {
			return nil, errors.Wrapf(securitygroup.ErrPeerNotFound, "%s", id)
		}
		return sg, nil
	default:
		return nil, errors.Errorf("unknown peer kind %q", p.Kind)
	}
}

func cdkPort(r securitygroup.Rule) (awsec2.Port, error) {
	if r.Protocol != securitygroup.TCP {
		return nil, errors.Errorf("unsupported protocol %q", r.Protocol)
	}
	switch {
	case r.IsAllPorts():
		return awsec2.Port_AllTcp(), nil
	case r.FromPort == r.ToPort:
		return awsec2.Port_Tcp(jsii.Number(float64(r.FromPort))), nil
	default:
		return awsec2.Port_TcpRange(jsii.Number(float64(r.FromPort)), jsii.Number(float64(r.ToPort))), nil
	}
}

// addOutputs exports the VPC and security group ids so dependent stacks can import them by name.
func (b *stackBuilder) addOutputs(t *topology.Topology) {
	vpc := b.vpcs[t.Network.ID]
	awscdk.NewCfnOutput(b.stack, jsii.String("VpcId"), &awscdk.CfnOutputProps{
		Value:      vpc.VpcId(),
		ExportName: jsii.String(t.Network.Name + "-Id"),
	})
	for _, sg := range t.SecurityGroups.Groups() {
		awscdk.NewCfnOutput(b.stack, jsii.String(strcase.ToCamel(sg.Name)+"Id"), &awscdk.CfnOutputProps{
			Value:      b.groups[sg.ID].SecurityGroupId(),
			ExportName: jsii.String(sg.Name + "-Id"),
		})
	}
}

package network

import (
	"net"
	"testing"

	"github.com/klothoplatform/vpcstack/pkg/config"
	"github.com/klothoplatform/vpcstack/pkg/construct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		Identity:       config.Identity{Prefix: "acme", Stage: "dev"},
		CidrBlock:      "172.17.0.0/16",
		Zones:          []string{"ap-southeast-1a", "ap-southeast-1b"},
		SubnetCidrMask: 24,
		Isolated:       true,
	}
}

func TestBuild(t *testing.T) {
	type subnet struct {
		name, zone, cidr string
		typ              SubnetType
	}
	tests := []struct {
		name    string
		modify  func(*Options)
		want    []subnet
		wantErr string
	}{
		{
			name:   "public and isolated per zone",
			modify: func(*Options) {},
			want: []subnet{
				{"acme-dev-Public-Subnet1", "ap-southeast-1a", "172.17.0.0/24", Public},
				{"acme-dev-Public-Subnet2", "ap-southeast-1b", "172.17.1.0/24", Public},
				{"acme-dev-Isolated-Subnet1", "ap-southeast-1a", "172.17.2.0/24", Isolated},
				{"acme-dev-Isolated-Subnet2", "ap-southeast-1b", "172.17.3.0/24", Isolated},
			},
		},
		{
			name:   "public only",
			modify: func(o *Options) { o.Isolated = false; o.Zones = o.Zones[:1] },
			want: []subnet{
				{"acme-dev-Public-Subnet1", "ap-southeast-1a", "172.17.0.0/24", Public},
			},
		},
		{
			name: "nat gateways add a private group",
			modify: func(o *Options) {
				o.NatGateways = 1
				o.SubnetCidrMask = 20
			},
			want: []subnet{
				{"acme-dev-Public-Subnet1", "ap-southeast-1a", "172.17.0.0/20", Public},
				{"acme-dev-Public-Subnet2", "ap-southeast-1b", "172.17.16.0/20", Public},
				{"acme-dev-Private-Subnet1", "ap-southeast-1a", "172.17.32.0/20", Private},
				{"acme-dev-Private-Subnet2", "ap-southeast-1b", "172.17.48.0/20", Private},
				{"acme-dev-Isolated-Subnet1", "ap-southeast-1a", "172.17.64.0/20", Isolated},
				{"acme-dev-Isolated-Subnet2", "ap-southeast-1b", "172.17.80.0/20", Isolated},
			},
		},
		{
			name:    "no zones",
			modify:  func(o *Options) { o.Zones = nil },
			wantErr: "at least one availability zone",
		},
		{
			name:    "too many nat gateways",
			modify:  func(o *Options) { o.NatGateways = 3 },
			wantErr: "NAT gateways",
		},
		{
			name: "block too small for the subnets",
			modify: func(o *Options) {
				o.CidrBlock = "10.0.0.0/24"
				o.SubnetCidrMask = 25
			},
			wantErr: "could not allocate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			opts := testOptions()
			tt.modify(&opts)
			g := construct.NewAcyclicGraph()

			n, err := Build(opts, g)
			if tt.wantErr != "" {
				assert.ErrorContains(err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			assert.Equal("acme-dev-Vpc", n.Name)
			got := make([]subnet, 0, len(n.Subnets))
			for _, s := range n.Subnets {
				got = append(got, subnet{s.Name, s.AvailabilityZone, s.CidrBlock, s.Type})
			}
			assert.Equal(tt.want, got)

			order, err := g.Order()
			require.NoError(t, err)
			assert.Equal(len(tt.want)+1, order)
			size, err := g.Size()
			require.NoError(t, err)
			assert.Equal(len(tt.want), size, "every subnet depends on the vpc")
		})
	}
}

func TestBuild_SubnetsContainedAndDisjoint(t *testing.T) {
	opts := testOptions()
	opts.Zones = []string{"us-east-1a", "us-east-1b", "us-east-1c"}
	opts.NatGateways = 2
	n, err := Build(opts, construct.NewAcyclicGraph())
	require.NoError(t, err)

	_, block, _ := net.ParseCIDR(n.CidrBlock)
	for i, a := range n.Subnets {
		_, an, err := net.ParseCIDR(a.CidrBlock)
		require.NoError(t, err)
		assert.True(t, block.Contains(an.IP), "%s outside %s", a.CidrBlock, n.CidrBlock)
		for _, b := range n.Subnets[i+1:] {
			_, bn, _ := net.ParseCIDR(b.CidrBlock)
			assert.False(t, an.Contains(bn.IP) || bn.Contains(an.IP), "%s overlaps %s", a.CidrBlock, b.CidrBlock)
		}
	}
}

func TestNetwork_Validate(t *testing.T) {
	n := &Network{
		Name:      "acme-dev-Vpc",
		CidrBlock: "172.17.0.0/16",
		Subnets: []*Subnet{
			{Name: "a", CidrBlock: "172.17.0.0/24"},
			{Name: "b", CidrBlock: "172.17.0.128/25"},
		},
	}
	assert.Error(t, n.Validate(), "overlapping subnets")

	n.Subnets[1].CidrBlock = "10.0.0.0/24"
	assert.Error(t, n.Validate(), "subnet outside the block")

	n.Subnets[1].CidrBlock = "172.17.1.0/24"
	assert.NoError(t, n.Validate())
}

func TestNetwork_Lookup(t *testing.T) {
	assert := assert.New(t)
	n, err := Build(testOptions(), construct.NewAcyclicGraph())
	require.NoError(t, err)

	assert.Len(n.SubnetsByType(Public), 2)
	assert.Len(n.SubnetsByType(Isolated), 2)
	assert.Empty(n.SubnetsByType(Private))
	assert.Len(n.SubnetsInZone("ap-southeast-1b"), 2)

	s, ok := n.Subnet(Isolated, "ap-southeast-1b")
	require.True(t, ok)
	assert.Equal("172.17.3.0/24", s.CidrBlock)

	_, ok = n.Subnet(Private, "ap-southeast-1a")
	assert.False(ok)
}

func TestBuild_RegistersProperties(t *testing.T) {
	g := construct.NewAcyclicGraph()
	n, err := Build(testOptions(), g)
	require.NoError(t, err)

	r, err := g.Vertex(n.ID)
	require.NoError(t, err)
	var props VpcProperties
	require.NoError(t, r.DecodeProperties(&props))
	assert.Equal(t, "172.17.0.0/16", props.CidrBlock)
	assert.Equal(t, []string{"ap-southeast-1a", "ap-southeast-1b"}, props.AvailabilityZones)
	assert.Equal(t, n.SubnetGroups, props.SubnetGroups)
	assert.True(t, props.EnableDnsSupport)

	sr, err := g.Vertex(n.Subnets[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "aws:subnet:acme-dev-Vpc:acme-dev-Public-Subnet1", sr.ID.String())
	assert.Equal(t, "172.17.0.0/24", sr.Properties["CidrBlock"])
}

package securitygroup

import (
	"testing"

	"github.com/klothoplatform/vpcstack/pkg/config"
	"github.com/klothoplatform/vpcstack/pkg/construct"
	"github.com/klothoplatform/vpcstack/pkg/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdentity = config.Identity{Prefix: "acme", Stage: "dev"}

func testNetwork(t *testing.T, g construct.Graph) *network.Network {
	n, err := network.Build(network.Options{
		Identity:       testIdentity,
		CidrBlock:      "172.17.0.0/16",
		Zones:          []string{"ap-southeast-1a", "ap-southeast-1b"},
		SubnetCidrMask: 24,
		Isolated:       true,
	}, g)
	require.NoError(t, err)
	return n
}

func TestDerive_AllRoles(t *testing.T) {
	g := construct.NewAcyclicGraph()
	n := testNetwork(t, g)

	set, err := Derive(testIdentity, n, AllRoles(), g)
	require.NoError(t, err)

	group := func(name string, peer Peer, from, to int) Rule {
		return Rule{Direction: Ingress, Peer: Peer{Kind: PeerGroup, Group: peer.Group, GroupName: name}, Protocol: TCP, FromPort: from, ToPort: to}
	}
	type want struct {
		name             string
		allowAllOutbound bool
		ingress          []Rule
		egress           []Rule
	}
	tests := map[Role]want{
		LoadBalancer: {
			name:             "acme-dev-ECS-ELB-SG",
			allowAllOutbound: true,
			ingress:          []Rule{{Direction: Ingress, Peer: AnyIPv4(), Protocol: TCP, FromPort: 80, ToPort: 80}},
		},
		ComputeCluster: {
			name:             "acme-dev-ECS-Cluster-SG",
			allowAllOutbound: true,
			ingress: []Rule{
				group("acme-dev-ECS-ELB-SG", GroupPeer(LoadBalancer), 0, 65535),
				{Direction: Ingress, Peer: AnyIPv4(), Protocol: TCP, FromPort: 22, ToPort: 22},
			},
		},
		SharedFilesystem: {
			name:             "acme-dev-EFS-SG",
			allowAllOutbound: true,
			ingress: []Rule{
				group("acme-dev-ECS-Cluster-SG", GroupPeer(ComputeCluster), 2049, 2049),
				group("acme-dev-EFS-Dev-EC2-SG", GroupPeer(DeveloperAccess), 2049, 2049),
			},
		},
		DeveloperAccess: {
			name:             "acme-dev-EFS-Dev-EC2-SG",
			allowAllOutbound: true,
		},
		Database: {
			name:             "acme-dev-RDS-SG",
			allowAllOutbound: true,
			ingress: []Rule{
				group("acme-dev-ECS-Cluster-SG", GroupPeer(ComputeCluster), 3306, 3306),
			},
		},
		GenericIngress: {
			name:    "acme-dev-Ingress-SG",
			ingress: []Rule{{Direction: Ingress, Peer: CidrPeer("172.17.0.0/16"), Protocol: TCP, FromPort: 3306, ToPort: 3306}},
		},
		GenericEgress: {
			name:   "acme-dev-Egress-SG",
			egress: []Rule{{Direction: Egress, Peer: AnyIPv4(), Protocol: TCP, FromPort: 80, ToPort: 80}},
		},
	}

	assert.Len(t, set.Groups(), len(tests))
	for role, want := range tests {
		t.Run(string(role), func(t *testing.T) {
			assert := assert.New(t)
			sg, ok := set.Get(role)
			require.True(t, ok)

			stripDescriptions := func(rules []Rule) []Rule {
				var res []Rule
				for _, r := range rules {
					r.Description = ""
					res = append(res, r)
				}
				return res
			}
			assert.Equal(want.name, sg.Name)
			assert.Equal(want.allowAllOutbound, sg.AllowAllOutbound)
			assert.Equal(want.ingress, stripDescriptions(sg.IngressRules))
			assert.Equal(want.egress, stripDescriptions(sg.EgressRules))
			assert.Equal(n.ID, sg.Vpc)
		})
	}
	assert.NoError(t, set.Validate())
}

func TestDerive_GraphEdges(t *testing.T) {
	g := construct.NewAcyclicGraph()
	n := testNetwork(t, g)
	_, err := Derive(testIdentity, n, AllRoles(), g)
	require.NoError(t, err)

	adj, err := g.AdjacencyMap()
	require.NoError(t, err)

	id := func(suffix string) construct.ResourceId { return GroupId(n.ID, testIdentity.Name(suffix)) }
	deps := func(from construct.ResourceId) []string {
		var res []string
		for target := range adj[from] {
			res = append(res, target.Name)
		}
		return res
	}
	assert.ElementsMatch(t, []string{"acme-dev-Vpc", "acme-dev-ECS-ELB-SG"}, deps(id("ECS-Cluster-SG")))
	assert.ElementsMatch(t, []string{"acme-dev-Vpc", "acme-dev-ECS-Cluster-SG", "acme-dev-EFS-Dev-EC2-SG"}, deps(id("EFS-SG")))
	assert.ElementsMatch(t, []string{"acme-dev-Vpc", "acme-dev-ECS-Cluster-SG"}, deps(id("RDS-SG")))
	assert.ElementsMatch(t, []string{"acme-dev-Vpc"}, deps(id("Egress-SG")))

	// peers are created before the groups that reference them
	order, err := construct.ReverseTopologicalSort(g)
	require.NoError(t, err)
	pos := make(map[construct.ResourceId]int)
	for i, rid := range order {
		pos[rid] = i
	}
	assert.Less(t, pos[id("ECS-ELB-SG")], pos[id("ECS-Cluster-SG")])
	assert.Less(t, pos[id("ECS-Cluster-SG")], pos[id("EFS-SG")])
	assert.Less(t, pos[id("EFS-Dev-EC2-SG")], pos[id("EFS-SG")])
}

func TestDerive_Properties(t *testing.T) {
	g := construct.NewAcyclicGraph()
	n := testNetwork(t, g)
	set, err := Derive(testIdentity, n, AllRoles(), g)
	require.NoError(t, err)

	sg, _ := set.Get(SharedFilesystem)
	r, err := g.Vertex(sg.ID)
	require.NoError(t, err)

	var props SecurityGroupProperties
	require.NoError(t, r.DecodeProperties(&props))
	assert.Equal(t, sg.Name, props.Name)
	assert.Equal(t, SharedFilesystem, props.Role)
	assert.Equal(t, sg.IngressRules, props.IngressRules)
	assert.Empty(t, props.EgressRules)
}

func TestDerive_MissingPeer(t *testing.T) {
	tests := []struct {
		name  string
		roles []Role
	}{
		{name: "database without cluster", roles: []Role{Database}},
		{name: "filesystem without developer hosts", roles: []Role{LoadBalancer, ComputeCluster, SharedFilesystem}},
		{name: "cluster without load balancer", roles: []Role{ComputeCluster}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := construct.NewAcyclicGraph()
			_, err := Derive(testIdentity, testNetwork(t, g), tt.roles, g)
			assert.ErrorIs(t, err, ErrPeerNotFound)
		})
	}
}

func TestDerive_Subset(t *testing.T) {
	g := construct.NewAcyclicGraph()
	set, err := Derive(testIdentity, testNetwork(t, g), []Role{LoadBalancer, ComputeCluster, GenericEgress}, g)
	require.NoError(t, err)
	assert.Len(t, set.Groups(), 3)
	_, ok := set.Get(Database)
	assert.False(t, ok)
}

func TestSet_Attach(t *testing.T) {
	g := construct.NewAcyclicGraph()
	n := testNetwork(t, g)
	set, err := NewSet(n, g)
	require.NoError(t, err)
	lb, _ := SpecFor(LoadBalancer)
	_, err = set.Create(testIdentity, lb)
	require.NoError(t, err)

	_, err = set.Create(testIdentity, lb)
	assert.ErrorIs(t, err, ErrDuplicateGroup)

	assert.ErrorIs(t, set.Attach(Database, NewRule(Ingress, AnyIPv4(), TCPPort(3306), "")), ErrUnrequestedOwner)
	assert.ErrorIs(t, set.Attach(LoadBalancer, NewRule(Ingress, AnyIPv4(), Port{Protocol: TCP, From: 10, To: 1}, "")), ErrInvalidRule)
	assert.ErrorIs(t, set.Attach(LoadBalancer, NewRule("sideways", AnyIPv4(), TCPPort(1), "")), ErrInvalidRule)
	assert.ErrorIs(t, set.Attach(LoadBalancer, NewRule(Ingress, GroupPeer(ComputeCluster), TCPPort(1), "")), ErrPeerNotFound)

	require.NoError(t, set.Attach(LoadBalancer, NewRule(Ingress, CidrPeer("10.1.0.0/16"), TCPPort(443), "")))
	sg, _ := set.Get(LoadBalancer)
	require.Len(t, sg.IngressRules, 1)
	assert.Equal(t, "ingress tcp/443 from 10.1.0.0/16", sg.IngressRules[0].String())
}

func TestCheckPlacement(t *testing.T) {
	assert.NoError(t, CheckPlacement(AllRoles(), 2))
	assert.NoError(t, CheckPlacement([]Role{LoadBalancer, ComputeCluster}, 1))
	assert.ErrorIs(t, CheckPlacement([]Role{Database}, 1), ErrInsufficientAZs)
	assert.ErrorIs(t, CheckPlacement([]Role{"cache"}, 3), ErrUnknownRole)
}

func TestParseRoles(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []Role
		wantErr bool
	}{
		{name: "empty selects all", in: nil, want: AllRoles()},
		{name: "blank selects all", in: []string{" "}, want: AllRoles()},
		{name: "catalog order and dedup", in: []string{"database", " Compute-Cluster", "database"}, want: []Role{ComputeCluster, Database}},
		{name: "unknown", in: []string{"cache"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoles(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRule_String(t *testing.T) {
	assert.Equal(t, "ingress tcp/all from acme-dev-ECS-ELB-SG",
		Rule{Direction: Ingress, Protocol: TCP, FromPort: 0, ToPort: 65535, Peer: Peer{Kind: PeerGroup, GroupName: "acme-dev-ECS-ELB-SG"}}.String())
	assert.Equal(t, "egress tcp/80 to 0.0.0.0/0", NewRule(Egress, AnyIPv4(), TCPPort(80), "").String())
	assert.Equal(t, "ingress tcp/8000-8080 from 10.0.0.0/8", NewRule(Ingress, CidrPeer("10.0.0.0/8"), Port{TCP, 8000, 8080}, "").String())
}

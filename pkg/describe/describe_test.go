package describe

import (
	"strings"
	"testing"

	"github.com/klothoplatform/vpcstack/pkg/config"
	"github.com/klothoplatform/vpcstack/pkg/topology"
	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	cfg := config.Defaults()
	cfg.Prefix = "acme"
	cfg.Stage = "dev"
	cfg.Account = "123456789012"
	cfg.Roles = []string{"load-balancer", "compute-cluster", "generic-egress"}
	topo, err := topology.Build(cfg)
	require.NoError(t, err)
	hash, err := topo.Hash()
	require.NoError(t, err)

	buf := new(strings.Builder)
	require.NoError(t, Write(buf, topo))

	want := strings.TrimPrefix(dedent.Dedent(`
		Stack acme-dev-VpcStack (123456789012 / ap-southeast-1)
		Topology `+hash[:12]+`

		VPC acme-dev-Vpc 172.17.0.0/16
		  Zones: ap-southeast-1a, ap-southeast-1b
		  NAT gateways: 0
		  acme-dev-Public-Subnet1      public    ap-southeast-1a  172.17.0.0/24
		  acme-dev-Public-Subnet2      public    ap-southeast-1b  172.17.1.0/24
		  acme-dev-Isolated-Subnet1    isolated  ap-southeast-1a  172.17.2.0/24
		  acme-dev-Isolated-Subnet2    isolated  ap-southeast-1b  172.17.3.0/24

		Security groups
		  acme-dev-ECS-ELB-SG (load-balancer)
		    ingress tcp/80 from 0.0.0.0/0
		  acme-dev-ECS-Cluster-SG (compute-cluster)
		    ingress tcp/all from acme-dev-ECS-ELB-SG
		    ingress tcp/22 from 0.0.0.0/0
		  acme-dev-Egress-SG (generic-egress), no default egress
		    egress tcp/80 to 0.0.0.0/0
		`), "\n")
	assert.Equal(t, want, buf.String())
}

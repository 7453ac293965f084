package synth

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/jsii-runtime-go"
	"github.com/klothoplatform/vpcstack/pkg/config"
	"github.com/klothoplatform/vpcstack/pkg/network"
	"github.com/klothoplatform/vpcstack/pkg/securitygroup"
	"github.com/klothoplatform/vpcstack/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acmeDev(t *testing.T) *topology.Topology {
	cfg := config.Defaults()
	cfg.Prefix = "acme"
	cfg.Stage = "dev"
	cfg.Account = "123456789012"
	topo, err := topology.Build(cfg)
	require.NoError(t, err)
	return topo
}

// requireNode skips tests that need the jsii runtime, which runs on node.
func requireNode(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("node is not on PATH")
	}
}

func TestManifestEngine(t *testing.T) {
	topo := acmeDev(t)
	dir := filepath.Join(t.TempDir(), "out")

	res, err := ManifestEngine{OutDir: dir}.Synth(context.Background(), topo)
	require.NoError(t, err)

	assert.Equal(t, "manifest", res.Engine)
	assert.Equal(t, "acme-dev-VpcStack", res.Stack)
	assert.Equal(t, []string{ManifestFile}, res.Files)

	content, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	want, err := topo.YAML()
	require.NoError(t, err)
	assert.Equal(t, string(want), string(content))

	hash, err := topo.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, res.Hash)
}

func TestCdkSubnetType(t *testing.T) {
	tests := []struct {
		in   network.SubnetType
		want awsec2.SubnetType
	}{
		{network.Public, awsec2.SubnetType_PUBLIC},
		{network.Private, awsec2.SubnetType_PRIVATE_WITH_EGRESS},
		{network.Isolated, awsec2.SubnetType_PRIVATE_ISOLATED},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, err := cdkSubnetType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := cdkSubnetType("dmz")
	assert.Error(t, err)
}

func TestNewNetworkStack(t *testing.T) {
	requireNode(t)
	topo := acmeDev(t)

	app := awscdk.NewApp(nil)
	ns, err := NewNetworkStack(app, topo)
	require.NoError(t, err)
	assert.Equal(t, "acme-dev-VpcStack", *ns.StackName())
	assert.Len(t, ns.SecurityGroups, len(securitygroup.Catalog))

	tmpl := assertions.Template_FromStack(ns.Stack, nil)
	tmpl.ResourceCountIs(jsii.String("AWS::EC2::VPC"), jsii.Number(1))
	tmpl.ResourceCountIs(jsii.String("AWS::EC2::Subnet"), jsii.Number(4))
	tmpl.ResourceCountIs(jsii.String("AWS::EC2::NatGateway"), jsii.Number(0))
	tmpl.ResourceCountIs(jsii.String("AWS::EC2::SecurityGroup"), jsii.Number(7))
	// rules between groups are separate resources; rules to addresses are inline
	tmpl.ResourceCountIs(jsii.String("AWS::EC2::SecurityGroupIngress"), jsii.Number(4))

	tmpl.HasResourceProperties(jsii.String("AWS::EC2::VPC"), map[string]any{
		"CidrBlock": "172.17.0.0/16",
	})
	tmpl.HasResourceProperties(jsii.String("AWS::EC2::Subnet"), map[string]any{
		"CidrBlock":        "172.17.3.0/24",
		"AvailabilityZone": "ap-southeast-1b",
	})
	tmpl.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroup"), map[string]any{
		"GroupName": "acme-dev-ECS-ELB-SG",
		"SecurityGroupIngress": []any{
			map[string]any{"CidrIp": "0.0.0.0/0", "IpProtocol": "tcp", "FromPort": 80, "ToPort": 80},
		},
	})
	tmpl.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroup"), map[string]any{
		"GroupName": "acme-dev-Egress-SG",
		"SecurityGroupEgress": []any{
			map[string]any{"CidrIp": "0.0.0.0/0", "IpProtocol": "tcp", "FromPort": 80, "ToPort": 80},
		},
	})
	tmpl.HasResourceProperties(jsii.String("AWS::EC2::SecurityGroupIngress"), map[string]any{
		"IpProtocol": "tcp",
		"FromPort":   3306,
		"ToPort":     3306,
	})
	tmpl.HasOutput(jsii.String("VpcId"), map[string]any{
		"Export": map[string]any{"Name": "acme-dev-Vpc-Id"},
	})
}

func TestCDKEngine(t *testing.T) {
	requireNode(t)
	topo := acmeDev(t)
	dir := t.TempDir()

	res, err := CDKEngine{OutDir: dir}.Synth(context.Background(), topo)
	require.NoError(t, err)
	assert.Equal(t, "cdk", res.Engine)
	assert.Contains(t, res.Files, "acme-dev-VpcStack.template.json")
	assert.FileExists(t, filepath.Join(res.OutputDir, "acme-dev-VpcStack.template.json"))
}

// Package describe renders a readable summary of a topology.
package describe

import (
	"embed"
	"io"

	"github.com/klothoplatform/vpcstack/pkg/network"
	"github.com/klothoplatform/vpcstack/pkg/securitygroup"
	"github.com/klothoplatform/vpcstack/pkg/templateutils"
	"github.com/klothoplatform/vpcstack/pkg/topology"
)

//go:embed describe.tmpl
var files embed.FS

var describeTemplate = templateutils.MustTemplate(files, "describe.tmpl")

type view struct {
	StackName string
	Account   string
	Region    string
	Hash      string
	Network   *network.Network
	Groups    []*securitygroup.SecurityGroup
}

func Write(w io.Writer, t *topology.Topology) error {
	hash, err := t.Hash()
	if err != nil {
		return err
	}
	return describeTemplate.Execute(w, view{
		StackName: t.StackName(),
		Account:   t.Config.Account,
		Region:    t.Config.Region,
		Hash:      hash,
		Network:   t.Network,
		Groups:    t.SecurityGroups.Groups(),
	})
}

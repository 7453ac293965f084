package securitygroup

import "fmt"

type (
	Direction string
	PeerKind  string
	Protocol  string

	// Peer is the other side of a rule: any IPv4 address, a CIDR block, or another security group.
	Peer struct {
		Kind      PeerKind `mapstructure:"Kind" yaml:"Kind"`
		Cidr      string   `mapstructure:"Cidr" yaml:"Cidr,omitempty"`
		Group     Role     `mapstructure:"Group" yaml:"Group,omitempty"`
		GroupName string   `mapstructure:"GroupName" yaml:"GroupName,omitempty"`
	}

	Rule struct {
		Direction   Direction `mapstructure:"Direction" yaml:"Direction"`
		Peer        Peer      `mapstructure:"Peer" yaml:"Peer"`
		Protocol    Protocol  `mapstructure:"Protocol" yaml:"Protocol"`
		FromPort    int       `mapstructure:"FromPort" yaml:"FromPort"`
		ToPort      int       `mapstructure:"ToPort" yaml:"ToPort"`
		Description string    `mapstructure:"Description" yaml:"Description"`
	}
)

const (
	Ingress Direction = "ingress"
	Egress  Direction = "egress"

	PeerAnyIPv4 PeerKind = "any_ipv4"
	PeerCidr    PeerKind = "cidr"
	PeerGroup   PeerKind = "group"

	TCP Protocol = "tcp"

	maxPort = 65535
)

func AnyIPv4() Peer {
	return Peer{Kind: PeerAnyIPv4}
}

func CidrPeer(cidr string) Peer {
	return Peer{Kind: PeerCidr, Cidr: cidr}
}

func GroupPeer(role Role) Peer {
	return Peer{Kind: PeerGroup, Group: role}
}

func (p Peer) String() string {
	switch p.Kind {
	case PeerAnyIPv4:
		return "0.0.0.0/0"
	case PeerCidr:
		return p.Cidr
	case PeerGroup:
		if p.GroupName != "" {
			return p.GroupName
		}
		return string(p.Group)
	default:
		return fmt.Sprintf("<unknown peer %q>", p.Kind)
	}
}

// IsAllPorts reports whether the rule covers the whole port range of its protocol.
func (r Rule) IsAllPorts() bool {
	return r.FromPort == 0 && r.ToPort == maxPort
}

func (r Rule) Ports() string {
	switch {
	case r.IsAllPorts():
		return "all"
	case r.FromPort == r.ToPort:
		return fmt.Sprintf("%d", r.FromPort)
	default:
		return fmt.Sprintf("%d-%d", r.FromPort, r.ToPort)
	}
}

func (r Rule) String() string {
	verb := "from"
	if r.Direction == Egress {
		verb = "to"
	}
	return fmt.Sprintf("%s %s/%s %s %s", r.Direction, r.Protocol, r.Ports(), verb, r.Peer)
}

// Port is a protocol and an inclusive port range.
type Port struct {
	Protocol Protocol
	From     int
	To       int
}

func TCPPort(port int) Port {
	return Port{Protocol: TCP, From: port, To: port}
}

func AllTCP() Port {
	return Port{Protocol: TCP, From: 0, To: maxPort}
}

func (p Port) Validate() error {
	if p.From < 0 || p.To > maxPort || p.From > p.To {
		return fmt.Errorf("invalid port range %d-%d", p.From, p.To)
	}
	return nil
}

func NewRule(dir Direction, peer Peer, port Port, description string) Rule {
	return Rule{
		Direction:   dir,
		Peer:        peer,
		Protocol:    port.Protocol,
		FromPort:    port.From,
		ToPort:      port.To,
		Description: description,
	}
}

package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

type (
	// Config holds the parameters of one network deployment. It is read once at startup and
	// passed explicitly to the topology builder.
	Config struct {
		Prefix  string `json:"prefix" yaml:"prefix" toml:"prefix" mapstructure:"PREFIX"`
		Stage   string `json:"stage" yaml:"stage" toml:"stage" mapstructure:"STAGE"`
		Account string `json:"account" yaml:"account" toml:"account" mapstructure:"CDK_ACCOUNT"`
		Region  string `json:"region" yaml:"region" toml:"region" mapstructure:"CDK_REGION"`

		CidrBlock       string `json:"cidr_block" yaml:"cidr_block" toml:"cidr_block" mapstructure:"VPC_CIDR"`
		MaxAzs          int    `json:"max_azs" yaml:"max_azs" toml:"max_azs" mapstructure:"MAX_AZS"`
		NatGateways     int    `json:"nat_gateways" yaml:"nat_gateways" toml:"nat_gateways" mapstructure:"NAT_GATEWAYS"`
		SubnetCidrMask  int    `json:"subnet_cidr_mask" yaml:"subnet_cidr_mask" toml:"subnet_cidr_mask" mapstructure:"SUBNET_CIDR_MASK"`
		IsolatedSubnets bool   `json:"isolated_subnets" yaml:"isolated_subnets" toml:"isolated_subnets" mapstructure:"ISOLATED_SUBNETS"`

		// AvailabilityZones pins the zone names. When empty, zones are derived from Region.
		AvailabilityZones []string `json:"availability_zones,omitempty" yaml:"availability_zones,omitempty" toml:"availability_zones,omitempty" mapstructure:"AVAILABILITY_ZONES"`
		// Roles selects which access-control groups to create. When empty, every role is created.
		Roles []string `json:"roles,omitempty" yaml:"roles,omitempty" toml:"roles,omitempty" mapstructure:"ROLES"`

		// Format is what format the config file was in, if any.
		Format string `json:"-" yaml:"-" toml:"-" mapstructure:"-"`
	}

	// Identity is the (prefix, stage) pair every resource name is derived from.
	Identity struct {
		Prefix string
		Stage  string
	}
)

const (
	DefaultCidrBlock      = "172.17.0.0/16"
	DefaultMaxAzs         = 2
	DefaultSubnetCidrMask = 24
	DefaultRegion         = "ap-southeast-1"

	maxSubnetCidrMask = 28
)

var (
	ErrMissingValue = errors.New("missing required value")
	ErrInvalidValue = errors.New("invalid value")

	identityPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]{0,31}$`)
	accountPattern  = regexp.MustCompile(`^[0-9]{12}$`)
	regionPattern   = regexp.MustCompile(`^[a-z]{2}(-gov)?-[a-z]+-[0-9]$`)
	zonePattern     = regexp.MustCompile(`^[a-z]{2}(-gov)?-[a-z]+-[0-9][a-z]$`)
)

func Defaults() Config {
	return Config{
		Region:          DefaultRegion,
		CidrBlock:       DefaultCidrBlock,
		MaxAzs:          DefaultMaxAzs,
		SubnetCidrMask:  DefaultSubnetCidrMask,
		IsolatedSubnets: true,
	}
}

func (c Config) Identity() Identity {
	return Identity{Prefix: c.Prefix, Stage: c.Stage}
}

// Zones returns the availability zones the network spans: the first MaxAzs of the pinned zones,
// or `<region>a`, `<region>b`, ... when none are pinned.
func (c Config) Zones() []string {
	if len(c.AvailabilityZones) > 0 {
		n := c.MaxAzs
		if n > len(c.AvailabilityZones) {
			n = len(c.AvailabilityZones)
		}
		return append([]string(nil), c.AvailabilityZones[:n]...)
	}
	zones := make([]string, 0, c.MaxAzs)
	for i := 0; i < c.MaxAzs && i < 26; i++ {
		zones = append(zones, fmt.Sprintf("%s%c", c.Region, 'a'+i))
	}
	return zones
}

func invalid(field string, format string, args ...any) error {
	return fmt.Errorf("%w %s: %s", ErrInvalidValue, field, fmt.Sprintf(format, args...))
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var errs error
	required := func(field, value string) bool {
		if strings.TrimSpace(value) == "" {
			errs = errors.Join(errs, fmt.Errorf("%w: %s", ErrMissingValue, field))
			return false
		}
		return true
	}

	if required("prefix", c.Prefix) && !identityPattern.MatchString(c.Prefix) {
		errs = errors.Join(errs, invalid("prefix", "%q must match %s", c.Prefix, identityPattern))
	}
	if required("stage", c.Stage) && !identityPattern.MatchString(c.Stage) {
		errs = errors.Join(errs, invalid("stage", "%q must match %s", c.Stage, identityPattern))
	}
	if required("account", c.Account) && !accountPattern.MatchString(c.Account) {
		errs = errors.Join(errs, invalid("account", "%q must be a 12 digit account id", c.Account))
	}
	if required("region", c.Region) && !regionPattern.MatchString(c.Region) {
		errs = errors.Join(errs, invalid("region", "%q is not a region name", c.Region))
	}

	var vpcBits int
	if required("cidr_block", c.CidrBlock) {
		ip, ipnet, err := net.ParseCIDR(c.CidrBlock)
		switch {
		case err != nil:
			errs = errors.Join(errs, invalid("cidr_block", "%v", err))
		case ip.To4() == nil:
			errs = errors.Join(errs, invalid("cidr_block", "%q is not an IPv4 block", c.CidrBlock))
		case !ip.Equal(ipnet.IP):
			errs = errors.Join(errs, invalid("cidr_block", "%q has host bits set, use %s", c.CidrBlock, ipnet))
		default:
			vpcBits, _ = ipnet.Mask.Size()
			if vpcBits < 16 || vpcBits > 28 {
				errs = errors.Join(errs, invalid("cidr_block", "%q must have a prefix length between /16 and /28", c.CidrBlock))
				vpcBits = 0
			}
		}
	}

	if c.MaxAzs < 1 {
		errs = errors.Join(errs, invalid("max_azs", "must be at least 1, got %d", c.MaxAzs))
	}
	if c.NatGateways < 0 || c.NatGateways > c.MaxAzs {
		errs = errors.Join(errs, invalid("nat_gateways", "must be between 0 and max_azs (%d), got %d", c.MaxAzs, c.NatGateways))
	}
	if vpcBits > 0 && (c.SubnetCidrMask <= vpcBits || c.SubnetCidrMask > maxSubnetCidrMask) {
		errs = errors.Join(errs, invalid("subnet_cidr_mask", "must be between /%d and /%d, got /%d", vpcBits+1, maxSubnetCidrMask, c.SubnetCidrMask))
	}

	if len(c.AvailabilityZones) > 0 {
		if len(c.AvailabilityZones) < c.MaxAzs {
			errs = errors.Join(errs, invalid("availability_zones", "%d zones given but max_azs is %d", len(c.AvailabilityZones), c.MaxAzs))
		}
		seen := make(map[string]struct{}, len(c.AvailabilityZones))
		for _, z := range c.AvailabilityZones {
			if !zonePattern.MatchString(z) || !strings.HasPrefix(z, c.Region) {
				errs = errors.Join(errs, invalid("availability_zones", "%q is not a zone of %s", z, c.Region))
			}
			if _, dup := seen[z]; dup {
				errs = errors.Join(errs, invalid("availability_zones", "%q listed more than once", z))
			}
			seen[z] = struct{}{}
		}
	} else if c.MaxAzs > 26 {
		errs = errors.Join(errs, invalid("max_azs", "at most 26 zones can be derived from a region, got %d", c.MaxAzs))
	}
	return errs
}

// Name returns the deterministic name of a resource with the given suffix, `<prefix>-<stage>-<suffix>`.
func (id Identity) Name(suffix string) string {
	return id.Prefix + "-" + id.Stage + "-" + suffix
}

func (id Identity) StackName() string {
	return id.Name("VpcStack")
}

func (id Identity) String() string {
	return id.Prefix + "/" + id.Stage
}

package main

import (
	"github.com/klothoplatform/vpcstack/pkg/config"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// configFlags are the flags that select and override the deployment configuration. A flag only
// overrides the loaded configuration when it is set on the command line.
type configFlags struct {
	file   string
	dotEnv string

	flags *pflag.FlagSet
	cfg   config.Config
}

func addConfigFlags(flags *pflag.FlagSet, f *configFlags) {
	f.flags = flags
	flags.StringVarP(&f.file, "config", "c", "", "Config file (.json, .yaml or .toml)")
	flags.StringVar(&f.dotEnv, "env-file", ".env", "Dotenv file, read beneath the process environment")

	flags.StringVar(&f.cfg.Prefix, "prefix", "", "Name prefix (PREFIX)")
	flags.StringVar(&f.cfg.Stage, "stage", "", "Deployment stage (STAGE)")
	flags.StringVar(&f.cfg.Account, "account", "", "AWS account id (CDK_ACCOUNT)")
	flags.StringVar(&f.cfg.Region, "region", config.DefaultRegion, "AWS region (CDK_REGION)")
	flags.StringVar(&f.cfg.CidrBlock, "cidr", config.DefaultCidrBlock, "VPC address block (VPC_CIDR)")
	flags.IntVar(&f.cfg.MaxAzs, "max-azs", config.DefaultMaxAzs, "Number of availability zones (MAX_AZS)")
	flags.IntVar(&f.cfg.NatGateways, "nat-gateways", 0, "Number of NAT gateways; adds private subnets when non-zero (NAT_GATEWAYS)")
	flags.IntVar(&f.cfg.SubnetCidrMask, "subnet-mask", config.DefaultSubnetCidrMask, "Prefix length of each subnet (SUBNET_CIDR_MASK)")
	flags.BoolVar(&f.cfg.IsolatedSubnets, "isolated-subnets", true, "Add an isolated subnet per zone (ISOLATED_SUBNETS)")
	flags.StringSliceVar(&f.cfg.Roles, "roles", nil, "Security group roles to create, default all (ROLES)")
	flags.StringSliceVar(&f.cfg.AvailabilityZones, "zones", nil, "Pin availability zone names (AVAILABILITY_ZONES)")
}

// Load reads the configuration from file, dotenv and environment, then applies any flags that were set.
func (f *configFlags) Load() (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{File: f.file, DotEnv: f.dotEnv})
	if err != nil {
		return cfg, err
	}

	overrides := map[string]func(){
		"prefix":           func() { cfg.Prefix = f.cfg.Prefix },
		"stage":            func() { cfg.Stage = f.cfg.Stage },
		"account":          func() { cfg.Account = f.cfg.Account },
		"region":           func() { cfg.Region = f.cfg.Region },
		"cidr":             func() { cfg.CidrBlock = f.cfg.CidrBlock },
		"max-azs":          func() { cfg.MaxAzs = f.cfg.MaxAzs },
		"nat-gateways":     func() { cfg.NatGateways = f.cfg.NatGateways },
		"subnet-mask":      func() { cfg.SubnetCidrMask = f.cfg.SubnetCidrMask },
		"isolated-subnets": func() { cfg.IsolatedSubnets = f.cfg.IsolatedSubnets },
		"roles":            func() { cfg.Roles = f.cfg.Roles },
		"zones":            func() { cfg.AvailabilityZones = f.cfg.AvailabilityZones },
	}
	log := zap.S().Named("config")
	f.flags.VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			return
		}
		if apply, ok := overrides[flag.Name]; ok {
			apply()
			log.Debugf("--%s overrides configured value", flag.Name)
		}
	})
	return cfg, nil
}

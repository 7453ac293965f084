package securitygroup

import (
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	LoadBalancer     Role = "load-balancer"
	ComputeCluster   Role = "compute-cluster"
	SharedFilesystem Role = "shared-filesystem"
	DeveloperAccess  Role = "developer-access"
	Database         Role = "database"
	GenericIngress   Role = "generic-ingress"
	GenericEgress    Role = "generic-egress"
)

type RoleSpec struct {
	Role        Role
	NameSuffix  string
	Description string
	// AllowAllOutbound keeps the provider's default allow-all egress rule.
	AllowAllOutbound bool
	// MinAvailabilityZones is how many zones the resources using this group need to be placed in.
	MinAvailabilityZones int
}

// Catalog lists every role in creation order.
var Catalog = []RoleSpec{
	{
		Role:                 LoadBalancer,
		NameSuffix:           "ECS-ELB-SG",
		Description:          "Load balancer in front of the ECS cluster",
		AllowAllOutbound:     true,
		MinAvailabilityZones: 1,
	},
	{
		Role:                 ComputeCluster,
		NameSuffix:           "ECS-Cluster-SG",
		Description:          "ECS cluster instances",
		AllowAllOutbound:     true,
		MinAvailabilityZones: 1,
	},
	{
		Role:                 DeveloperAccess,
		NameSuffix:           "EFS-Dev-EC2-SG",
		Description:          "Developer EC2 hosts mounting EFS",
		AllowAllOutbound:     true,
		MinAvailabilityZones: 1,
	},
	{
		Role:                 SharedFilesystem,
		NameSuffix:           "EFS-SG",
		Description:          "EFS mount targets",
		AllowAllOutbound:     true,
		MinAvailabilityZones: 1,
	},
	{
		Role:                 Database,
		NameSuffix:           "RDS-SG",
		Description:          "RDS database instances",
		AllowAllOutbound:     true,
		MinAvailabilityZones: 2,
	},
	{
		Role:                 GenericIngress,
		NameSuffix:           "Ingress-SG",
		Description:          "MySQL ingress from within the VPC",
		MinAvailabilityZones: 1,
	},
	{
		Role:                 GenericEgress,
		NameSuffix:           "Egress-SG",
		Description:          "HTTP egress only",
		MinAvailabilityZones: 1,
	},
}

var ErrUnknownRole = errors.New("unknown role")

func AllRoles() []Role {
	roles := make([]Role, len(Catalog))
	for i, spec := range Catalog {
		roles[i] = spec.Role
	}
	return roles
}

func SpecFor(role Role) (RoleSpec, bool) {
	for _, spec := range Catalog {
		if spec.Role == role {
			return spec, true
		}
	}
	return RoleSpec{}, false
}

// ParseRoles converts role names into roles in catalog order, dropping duplicates.
// An empty list selects every role.
func ParseRoles(names []string) ([]Role, error) {
	if len(names) == 0 {
		return AllRoles(), nil
	}
	requested := make(map[Role]struct{}, len(names))
	var errs error
	for _, name := range names {
		role := Role(strings.ToLower(strings.TrimSpace(name)))
		if role == "" {
			continue
		}
		if _, ok := SpecFor(role); !ok {
			errs = errors.Join(errs, fmt.Errorf("%w %q (known roles: %v)", ErrUnknownRole, name, AllRoles()))
			continue
		}
		requested[role] = struct{}{}
	}
	if errs != nil {
		return nil, errs
	}
	if len(requested) == 0 {
		return AllRoles(), nil
	}

	roles := make([]Role, 0, len(requested))
	for _, spec := range Catalog {
		if _, ok := requested[spec.Role]; ok {
			roles = append(roles, spec.Role)
		}
	}
	return roles, nil
}

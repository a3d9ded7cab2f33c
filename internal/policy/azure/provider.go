// Package azure holds the compiled-in posture policies for Azure resource
// variants: storage accounts, network security groups, virtual machines.
package azure

import "github.com/hugh/go-warden/internal/policy"

const Provider = "azure"

const (
	KindStorageAccount       = "StorageAccount"
	KindNetworkSecurityGroup = "NetworkSecurityGroup"
	KindVirtualMachine       = "VirtualMachine"
)

// Policies returns every Azure policy in registration order.
func Policies() []policy.Definition {
	var defs []policy.Definition
	defs = append(defs, storagePolicies()...)
	defs = append(defs, networkPolicies()...)
	defs = append(defs, vmPolicies()...)
	return defs
}

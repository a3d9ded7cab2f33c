// Package gcp holds the compiled-in posture policies for GCP resource
// variants: storage buckets, VPC firewall rules, GKE clusters.
package gcp

import "github.com/hugh/go-warden/internal/policy"

const Provider = "gcp"

const (
	KindStorageBucket = "StorageBucket"
	KindFirewallRule  = "FirewallRule"
	KindGKECluster    = "GKECluster"
)

// Policies returns every GCP policy in registration order.
func Policies() []policy.Definition {
	var defs []policy.Definition
	defs = append(defs, storagePolicies()...)
	defs = append(defs, firewallPolicies()...)
	defs = append(defs, gkePolicies()...)
	return defs
}

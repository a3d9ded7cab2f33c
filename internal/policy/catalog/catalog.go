// Package catalog assembles the default policy registry from every provider
// package. Policies are compiled in; there is no runtime registration.
package catalog

import (
	"github.com/hugh/go-warden/internal/policy"
	"github.com/hugh/go-warden/internal/policy/aws"
	"github.com/hugh/go-warden/internal/policy/azure"
	"github.com/hugh/go-warden/internal/policy/gcp"
)

// Default builds the registry of all compiled-in policies. It is called once
// at process start; a failure here is a programming error (duplicate or
// malformed policy id) and should abort startup.
func Default() (*policy.Registry, error) {
	return policy.NewRegistry(
		aws.Policies(),
		azure.Policies(),
		gcp.Policies(),
	)
}

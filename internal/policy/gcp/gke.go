package gcp

import (
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/policy"
)

func gkePolicies() []policy.Definition {
	return []policy.Definition{
		{
			PolicyID:       "GCP_GKE_Public_Endpoint",
			Title:          "GKE cluster control plane is publicly reachable",
			Description:    "The cluster API endpoint is exposed to the internet without a private endpoint.",
			Severity:       models.SeverityMedium,
			Recommendation: "Enable private endpoint access and restrict master authorized networks.",
			Provider:       Provider,
			ResourceKind:   KindGKECluster,
			Check:          checkGKEPublicEndpoint,
		},
		{
			PolicyID:       "GCP_GKE_Legacy_ABAC",
			Title:          "GKE cluster has legacy ABAC enabled",
			Description:    "Legacy attribute-based access control bypasses Kubernetes RBAC and grants broad permissions.",
			Severity:       models.SeverityHigh,
			Recommendation: "Disable legacy ABAC and manage access through RBAC roles.",
			Provider:       Provider,
			ResourceKind:   KindGKECluster,
			Check:          checkGKELegacyABAC,
		},
	}
}

func checkGKEPublicEndpoint(res policy.Resource) (*policy.Finding, error) {
	if res.Bool("private_endpoint_enabled") {
		return nil, nil
	}
	// Authorized networks mitigate a public endpoint when no world range is
	// whitelisted.
	restricted := res.Bool("master_authorized_networks_enabled")
	for _, cidr := range res.StrSlice("master_authorized_networks") {
		if cidr == "0.0.0.0/0" {
			restricted = false
		}
	}
	if restricted {
		return nil, nil
	}
	details := models.Details{}
	details.Set("cluster_name", res.ID)
	details.Set("endpoint", res.Str("endpoint"))
	return &policy.Finding{Details: details}, nil
}

func checkGKELegacyABAC(res policy.Resource) (*policy.Finding, error) {
	if !res.Bool("legacy_abac_enabled") {
		return nil, nil
	}
	details := models.Details{}
	details.Set("cluster_name", res.ID)
	return &policy.Finding{Details: details}, nil
}

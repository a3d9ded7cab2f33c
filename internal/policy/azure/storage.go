package azure

import (
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/policy"
)

func storagePolicies() []policy.Definition {
	return []policy.Definition{
		{
			PolicyID:       "Azure_Storage_Public_Blob_Access",
			Title:          "Storage account allows public blob access",
			Description:    "Containers on this account may be configured for anonymous read access.",
			Severity:       models.SeverityHigh,
			Recommendation: "Set allowBlobPublicAccess to false on the storage account.",
			Provider:       Provider,
			ResourceKind:   KindStorageAccount,
			Check:          checkStoragePublicBlob,
		},
		{
			PolicyID:       "Azure_Storage_Insecure_Transfer",
			Title:          "Storage account accepts unencrypted transport",
			Description:    "The account does not enforce HTTPS-only traffic.",
			Severity:       models.SeverityMedium,
			Recommendation: "Enable 'secure transfer required' on the storage account.",
			Provider:       Provider,
			ResourceKind:   KindStorageAccount,
			Check:          checkStorageHTTPSOnly,
		},
		{
			PolicyID:       "Azure_Storage_Open_Network",
			Title:          "Storage account is reachable from all networks",
			Description:    "The account's network rule set defaults to Allow, accepting traffic from any source.",
			Severity:       models.SeverityMedium,
			Recommendation: "Set the default network action to Deny and whitelist the required VNets and IP ranges.",
			Provider:       Provider,
			ResourceKind:   KindStorageAccount,
			Check:          checkStorageOpenNetwork,
		},
	}
}

func checkStoragePublicBlob(res policy.Resource) (*policy.Finding, error) {
	if !res.Bool("allow_blob_public_access") {
		return nil, nil
	}
	details := models.Details{}
	details.Set("account_name", res.ID)
	if containers := res.StrSlice("public_containers"); len(containers) > 0 {
		details.Set("public_containers", containers)
	}
	return &policy.Finding{Details: details}, nil
}

func checkStorageHTTPSOnly(res policy.Resource) (*policy.Finding, error) {
	if res.Bool("https_traffic_only") {
		return nil, nil
	}
	details := models.Details{}
	details.Set("account_name", res.ID)
	return &policy.Finding{Details: details}, nil
}

func checkStorageOpenNetwork(res policy.Resource) (*policy.Finding, error) {
	if res.Str("network_default_action") != "Allow" {
		return nil, nil
	}
	details := models.Details{}
	details.Set("account_name", res.ID)
	details.Set("network_default_action", "Allow")
	return &policy.Finding{Details: details}, nil
}

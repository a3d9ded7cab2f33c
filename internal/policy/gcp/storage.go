package gcp

import (
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/policy"
)

// publicMembers are the IAM members that make a bucket world-readable.
var publicMembers = map[string]bool{
	"allUsers":              true,
	"allAuthenticatedUsers": true,
}

func storagePolicies() []policy.Definition {
	return []policy.Definition{
		{
			PolicyID:       "GCP_Bucket_Public_IAM",
			Title:          "Storage bucket is shared with allUsers",
			Description:    "An IAM binding grants bucket access to allUsers or allAuthenticatedUsers.",
			Severity:       models.SeverityHigh,
			Recommendation: "Remove the public members from the bucket's IAM policy and enable public access prevention.",
			Provider:       Provider,
			ResourceKind:   KindStorageBucket,
			Check:          checkBucketPublicIAM,
		},
		{
			PolicyID:       "GCP_Bucket_No_Uniform_Access",
			Title:          "Storage bucket uses legacy per-object ACLs",
			Description:    "Uniform bucket-level access is disabled, leaving object ACLs as a second, easily-missed grant path.",
			Severity:       models.SeverityMedium,
			Recommendation: "Enable uniform bucket-level access.",
			Provider:       Provider,
			ResourceKind:   KindStorageBucket,
			Check:          checkBucketUniformAccess,
		},
	}
}

func checkBucketPublicIAM(res policy.Resource) (*policy.Finding, error) {
	type grant struct {
		Role   string `json:"role"`
		Member string `json:"member"`
	}
	var offending []grant
	for _, binding := range res.MapSlice("iam_bindings") {
		role, _ := binding["role"].(string)
		members, _ := binding["members"].([]any)
		for _, m := range members {
			member, ok := m.(string)
			if ok && publicMembers[member] {
				offending = append(offending, grant{Role: role, Member: member})
			}
		}
	}
	if len(offending) == 0 {
		return nil, nil
	}
	details := models.Details{}
	details.Set("bucket_name", res.ID)
	details.Set("public_bindings", offending)
	return &policy.Finding{Details: details}, nil
}

func checkBucketUniformAccess(res policy.Resource) (*policy.Finding, error) {
	if res.Bool("uniform_bucket_level_access") {
		return nil, nil
	}
	details := models.Details{}
	details.Set("bucket_name", res.ID)
	return &policy.Finding{Details: details}, nil
}

package aws

import (
	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/internal/policy"
)

// publicACLGrantees are the S3 grantee URIs that expose a bucket to the world.
var publicACLGrantees = map[string]bool{
	"http://acs.amazonaws.com/groups/global/AllUsers":           true,
	"http://acs.amazonaws.com/groups/global/AuthenticatedUsers": true,
	"AllUsers":           true,
	"AuthenticatedUsers": true,
}

func s3Policies() []policy.Definition {
	return []policy.Definition{
		{
			PolicyID:       "S3_Public_Policy",
			Title:          "S3 bucket policy allows public access",
			Description:    "The bucket policy grants access to anonymous principals, exposing the bucket contents to the internet.",
			Severity:       models.SeverityHigh,
			Recommendation: "Remove the public statements from the bucket policy and enable the account-level public access block.",
			Provider:       Provider,
			ResourceKind:   KindS3Bucket,
			Check:          checkS3PublicPolicy,
		},
		{
			PolicyID:       "S3_Public_ACL",
			Title:          "S3 bucket ACL grants public access",
			Description:    "The bucket ACL contains a grant to AllUsers or AuthenticatedUsers.",
			Severity:       models.SeverityHigh,
			Recommendation: "Remove the public ACL grants and prefer bucket policies with explicit principals.",
			Provider:       Provider,
			ResourceKind:   KindS3Bucket,
			Check:          checkS3PublicACL,
		},
		{
			PolicyID:       "S3_No_Default_Encryption",
			Title:          "S3 bucket has no default encryption",
			Description:    "Objects written without an explicit encryption header are stored unencrypted.",
			Severity:       models.SeverityMedium,
			Recommendation: "Enable default bucket encryption with SSE-S3 or SSE-KMS.",
			Provider:       Provider,
			ResourceKind:   KindS3Bucket,
			Check:          checkS3Encryption,
		},
		{
			PolicyID:       "S3_Versioning_Disabled",
			Title:          "S3 bucket versioning is disabled",
			Description:    "Without versioning, overwritten or deleted objects cannot be recovered.",
			Severity:       models.SeverityLow,
			Recommendation: "Enable versioning on buckets holding data you cannot afford to lose.",
			Provider:       Provider,
			ResourceKind:   KindS3Bucket,
			Check:          checkS3Versioning,
		},
		{
			PolicyID:       "S3_Access_Logging_Disabled",
			Title:          "S3 bucket access logging is disabled",
			Description:    "Requests against the bucket leave no audit trail.",
			Severity:       models.SeverityLow,
			Recommendation: "Enable server access logging to a dedicated log bucket.",
			Provider:       Provider,
			ResourceKind:   KindS3Bucket,
			Check:          checkS3Logging,
		},
	}
}

func checkS3PublicPolicy(res policy.Resource) (*policy.Finding, error) {
	if !res.Bool("policy_allows_public") {
		return nil, nil
	}
	details := models.Details{}
	details.Set("bucket_name", res.ID)
	if stmts := res.StrSlice("public_statements"); len(stmts) > 0 {
		details.Set("public_statements", stmts)
	}
	return &policy.Finding{Details: details}, nil
}

func checkS3PublicACL(res policy.Resource) (*policy.Finding, error) {
	var offending []string
	for _, grant := range res.MapSlice("acl_grants") {
		grantee, _ := grant["grantee"].(string)
		if publicACLGrantees[grantee] {
			offending = append(offending, grantee)
		}
	}
	if len(offending) == 0 {
		return nil, nil
	}
	details := models.Details{}
	details.Set("bucket_name", res.ID)
	details.Set("public_grantees", offending)
	return &policy.Finding{Details: details}, nil
}

func checkS3Encryption(res policy.Resource) (*policy.Finding, error) {
	if res.Bool("default_encryption_enabled") {
		return nil, nil
	}
	details := models.Details{}
	details.Set("bucket_name", res.ID)
	return &policy.Finding{Details: details}, nil
}

func checkS3Versioning(res policy.Resource) (*policy.Finding, error) {
	if res.Str("versioning_status") == "Enabled" {
		return nil, nil
	}
	details := models.Details{}
	details.Set("bucket_name", res.ID)
	details.Set("versioning_status", res.Str("versioning_status"))
	return &policy.Finding{Details: details}, nil
}

func checkS3Logging(res policy.Resource) (*policy.Finding, error) {
	if res.Str("logging_target_bucket") != "" {
		return nil, nil
	}
	details := models.Details{}
	details.Set("bucket_name", res.ID)
	return &policy.Finding{Details: details}, nil
}
